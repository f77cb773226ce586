// Command midiboard turns a MIDI controller into a shell-command macro pad.
// See SPEC_FULL.md for the full command surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/midiboard/midiboard/internal/config"
	"github.com/midiboard/midiboard/internal/device"
	"github.com/midiboard/midiboard/internal/diag"
	"github.com/midiboard/midiboard/internal/dispatch"
	"github.com/midiboard/midiboard/internal/midiio"
	"github.com/midiboard/midiboard/internal/portresolver"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "devices":
		return devicesCmd(args[1:])
	case "config":
		return configCmd(args[1:])
	case "run":
		return runCmd(args[1:])
	default:
		usage()
		return 2
	}
}

func usage() {
	fmt.Println("midiboard")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  devices list              list MIDI input ports")
	fmt.Println("  devices input <DEVICE>    print raw (key, value) pairs from a port")
	fmt.Println("  config generate [--path P]  write a skeleton config")
	fmt.Println("  config validate [--path P]  validate a config file")
	fmt.Println("  run [--path P]              run the daemon")
}

func devicesCmd(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "list":
		return devicesList()
	case "input":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "devices input: missing DEVICE argument")
			return 2
		}
		return devicesInput(args[1])
	default:
		usage()
		return 2
	}
}

func devicesList() int {
	for _, p := range midiio.Enumerate() {
		fmt.Printf("%d: %s\n", p.Index, p.Name)
	}
	return 0
}

// devicesInput implements SPEC_FULL.md §9's raw listen mode: it bypasses
// the Control Index and Classifier entirely and just prints what the
// backend decodes.
func devicesInput(deviceName string) int {
	ports := midiio.Enumerate()
	resolved, err := portresolver.Resolve(deviceName, ports)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devices input: %v\n", err)
		return 1
	}

	fmt.Printf("listening on %s (Ctrl-C to stop)\n", resolved.Name)

	conn, err := midiio.Listen(resolved.Handle, func(key, value uint8, now time.Time) {
		fmt.Printf("[%s] key=%d value=%d\n", now.Format("15:04:05.000"), key, value)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "devices input: %v\n", err)
		return 1
	}
	defer conn.Close()

	waitForSignal()
	return 0
}

func configCmd(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "generate":
		return configGenerate(args[1:])
	case "validate":
		return configValidate(args[1:])
	default:
		usage()
		return 2
	}
}

func configGenerate(args []string) int {
	fs := flag.NewFlagSet("config generate", flag.ContinueOnError)
	path := fs.String("path", "", "config file path (default $HOME/midiboard.json)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	written, err := config.Generate(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config generate: %v\n", err)
		return 1
	}
	fmt.Printf("wrote %s\n", written)
	return 0
}

func configValidate(args []string) int {
	fs := flag.NewFlagSet("config validate", flag.ContinueOnError)
	path := fs.String("path", "", "config file path (default $HOME/midiboard.json)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config validate: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validate: %v\n", err)
		return 2
	}
	fmt.Println("config is valid")
	return 0
}

func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	path := fs.String("path", "", "config file path (default $HOME/midiboard.json)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 1
	}

	log := diag.NewStdout(diag.ParseLevel(string(cfg.LogLevel)))
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		cancel()
	}()

	disp := dispatch.New(log)

	var wg sync.WaitGroup
	for _, d := range cfg.Devices {
		d := d
		r := device.New(d, disp, midiio.Enumerate, listenAdapter)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				log.Error(fmt.Sprintf("device %q stopped: %v", d.Name, err))
			}
		}()
	}

	wg.Wait()
	return 0
}

// listenAdapter bridges internal/midiio's concrete *Connection to the
// io.Closer shape internal/device.Listener expects, keeping internal/device
// free of a direct midiio import.
func listenAdapter(handle any, onEvent func(key, value uint8, now time.Time)) (io.Closer, error) {
	return midiio.Listen(handle, onEvent)
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
