// Package device implements spec.md §4.6, the Device Runner that
// orchestrates the Port Resolver, Control Index, Key-State Store,
// Classifier, and Command Dispatcher for one configured Device.
package device

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/midiboard/midiboard/internal/classify"
	"github.com/midiboard/midiboard/internal/config"
	"github.com/midiboard/midiboard/internal/controlindex"
	"github.com/midiboard/midiboard/internal/dispatch"
	"github.com/midiboard/midiboard/internal/keystate"
	"github.com/midiboard/midiboard/internal/portresolver"
)

// Enumerator lists the MIDI input ports currently visible to the backend.
// Production code uses internal/midiio.Enumerate; tests inject a fake.
type Enumerator func() []portresolver.Port[any]

// Listener opens handle and threads decoded (key, value, now) samples into
// onEvent, returning a closer that releases the connection. Production code
// uses internal/midiio.Listen; tests inject a fake.
type Listener func(handle any, onEvent func(key, value uint8, now time.Time)) (io.Closer, error)

// Runner owns the pipeline for one configured Device.
type Runner struct {
	device     config.Device
	dispatcher *dispatch.Dispatcher
	enumerate  Enumerator
	listen     Listener

	onActivation func(controlName string, act classify.Activation) // test hook
}

// New builds a Runner for device, reporting through dispatcher.
func New(device config.Device, dispatcher *dispatch.Dispatcher, enumerate Enumerator, listen Listener) *Runner {
	return &Runner{
		device:     device,
		dispatcher: dispatcher,
		enumerate:  enumerate,
		listen:     listen,
	}
}

// Run resolves the device's port, opens the MIDI input, and blocks until
// ctx is done. It returns an error without blocking if the port cannot be
// resolved, the Control Index cannot be built, or the connection fails to
// open: callers (the orchestrator) treat that as fatal for this one device
// only, per spec.md §7.
func (r *Runner) Run(ctx context.Context) error {
	ports := r.enumerate()
	resolved, err := portresolver.Resolve(r.device.Name, ports)
	if err != nil {
		return fmt.Errorf("device %q: %w", r.device.Name, err)
	}

	idx, err := controlindex.Build(r.device)
	if err != nil {
		return fmt.Errorf("device %q: %w", r.device.Name, err)
	}

	store := keystate.New(idx.Keys())

	conn, err := r.listen(resolved.Handle, func(key, value uint8, now time.Time) {
		r.handleEvent(store, idx, key, value, now)
	})
	if err != nil {
		return fmt.Errorf("device %q: open connection: %w", r.device.Name, err)
	}
	defer conn.Close()

	<-ctx.Done()
	return nil
}

func (r *Runner) handleEvent(store *keystate.Store, idx *controlindex.Index, key, value uint8, now time.Time) {
	act, err := classify.Classify(store, idx, key, value, now)
	if err != nil {
		return
	}
	if !act.Valid {
		return
	}

	name, ctrl, err := idx.ControlForKey(key)
	if err != nil {
		return
	}

	if r.onActivation != nil {
		r.onActivation(name, act)
	}

	r.dispatcher.Dispatch(name, ctrl.Command, act)
}
