// Package dispatch implements spec.md §4.5: given an Activation and the
// control's configured Command, select the right CommandData variant, spawn
// a child process, capture its output, and report success/failure.
package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"

	"github.com/midiboard/midiboard/internal/classify"
	"github.com/midiboard/midiboard/internal/config"
	"github.com/midiboard/midiboard/internal/diag"
)

var ErrKindMismatch = errors.New("dispatch: activation kind does not match command kind")

// Dispatcher spawns child processes for committed Activations and logs
// their outcome through a diag.Logger.
type Dispatcher struct {
	log *diag.Logger
}

// New builds a Dispatcher that reports through log.
func New(log *diag.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// Dispatch implements spec.md §4.5 steps 1-5. controlName appears in the
// diagnostic output and in the returned message or error.
func (d *Dispatcher) Dispatch(controlName string, cmd config.Command, act classify.Activation) (string, error) {
	data, err := selectCommandData(cmd, act)
	if err != nil {
		d.log.Error(fmt.Sprintf("%s: %v", controlName, err))
		return "", err
	}

	execCmd := exec.Command(data.Cmd, data.Args...)
	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	runErr := execCmd.Run()

	if stdout.Len() > 0 {
		d.log.Message(data.Cmd, stdout.String())
	}
	if stderr.Len() > 0 {
		d.log.Message(data.Cmd, stderr.String())
	}

	if runErr != nil {
		msg := fmt.Sprintf("%s failed to execute", controlName)
		d.log.Error(msg)
		return "", fmt.Errorf("%s: %w", msg, runErr)
	}

	msg := fmt.Sprintf("%s successfully", controlName)
	d.log.Success(msg)
	return msg, nil
}

// selectCommandData implements spec.md §4.5 steps 1-2: verify the
// Activation's kind agrees with the Command's tag, then pick the variant.
func selectCommandData(cmd config.Command, act classify.Activation) (config.CommandData, error) {
	switch act.Kind {
	case classify.EncoderUp:
		if cmd.Kind != config.CommandEncoder {
			return config.CommandData{}, ErrKindMismatch
		}
		return *cmd.Increase, nil
	case classify.EncoderDown:
		if cmd.Kind != config.CommandEncoder {
			return config.CommandData{}, ErrKindMismatch
		}
		return *cmd.Decrease, nil
	case classify.SwitchOn:
		if cmd.Kind != config.CommandSwitch {
			return config.CommandData{}, ErrKindMismatch
		}
		return *cmd.On, nil
	case classify.SwitchOff:
		if cmd.Kind != config.CommandSwitch {
			return config.CommandData{}, ErrKindMismatch
		}
		return *cmd.Off, nil
	case classify.TriggerFire:
		if cmd.Kind != config.CommandTrigger {
			return config.CommandData{}, ErrKindMismatch
		}
		return *cmd.Execute, nil
	default:
		return config.CommandData{}, fmt.Errorf("dispatch: unknown activation kind %q", act.Kind)
	}
}
