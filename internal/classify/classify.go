// Package classify implements spec.md §4.4, the debounce/classification
// state machine that turns raw (key, value, timestamp) triples into typed
// Activations (EncoderUp/Down, SwitchOn/Off, TriggerFire).
package classify

import (
	"fmt"
	"time"

	"github.com/midiboard/midiboard/internal/config"
	"github.com/midiboard/midiboard/internal/controlindex"
	"github.com/midiboard/midiboard/internal/keystate"
)

// ActivationKind is the typed, committed interpretation of a key's event
// sequence.
type ActivationKind string

const (
	EncoderUp   ActivationKind = "EncoderUp"
	EncoderDown ActivationKind = "EncoderDown"
	SwitchOn    ActivationKind = "SwitchOn"
	SwitchOff   ActivationKind = "SwitchOff"
	TriggerFire ActivationKind = "TriggerFire"
)

// Activation is the ephemeral result of one Classify call.
type Activation struct {
	Valid bool
	Kind  ActivationKind
}

// switchOffSentinel marks the OFF side of the toggle convention described
// in spec.md §4.4.3: raw MIDI 1.0 velocities are 7-bit, so 255 can never
// arrive on the wire and is safe to use as an internal marker.
const switchOffSentinel uint8 = 255

// switchOnMarker is an arbitrary non-255, non-wire value standing for ON.
const switchOnMarker uint8 = 200

// Classify consumes one raw MIDI sample for key and returns the Activation
// it produces, if any. It mutates store in place, per spec.md §4.3/§4.4.
func Classify(store *keystate.Store, idx *controlindex.Index, key uint8, rawValue uint8, now time.Time) (Activation, error) {
	if !store.Configured(key) {
		// UnknownKey: silent drop, per spec.md §7.
		return Activation{}, nil
	}

	slot := store.Get(key)
	if slot == nil {
		state, err := newState(idx, key, rawValue, now)
		if err != nil {
			return Activation{}, err
		}
		store.Set(key, state)
		return Activation{}, nil
	}

	slot.Detections = append(slot.Detections, rawValue)
	elapsed := now.Sub(slot.Start)

	kind, threshold, err := idx.ThresholdFor(key)
	if err != nil {
		return Activation{}, err
	}

	switch kind {
	case config.CommandEncoder:
		return classifyEncoder(store, key, slot, threshold, elapsed)
	case config.CommandSwitch:
		return classifySwitch(store, key, slot, threshold, elapsed, now)
	case config.CommandTrigger:
		return classifyTrigger(store, key, slot, threshold, elapsed, now)
	default:
		return Activation{}, fmt.Errorf("classify: unknown command kind %q for key %d", kind, key)
	}
}

func newState(idx *controlindex.Index, key uint8, rawValue uint8, now time.Time) (*keystate.State, error) {
	name, ctrl, err := idx.ControlForKey(key)
	if err != nil {
		return nil, err
	}
	kind, threshold, err := idx.ThresholdFor(key)
	if err != nil {
		return nil, err
	}

	state := &keystate.State{
		ControlName:         name,
		ActivationThreshold: time.Duration(threshold.Activation) * time.Millisecond,
		Detections:          []uint8{rawValue},
		Start:               now,
	}
	if kind == config.CommandEncoder {
		state.DetectionThreshold = time.Duration(threshold.Detection) * time.Millisecond
	}
	if kind == config.CommandSwitch {
		on := ctrl.Command.InitialState == config.SwitchOn
		state.InitialState = &on
	}
	return state, nil
}

// classifyEncoder implements spec.md §4.4.2.
func classifyEncoder(store *keystate.Store, key uint8, slot *keystate.State, threshold config.Threshold, elapsed time.Duration) (Activation, error) {
	activationMs := time.Duration(threshold.Activation) * time.Millisecond
	detectionMs := time.Duration(threshold.Detection) * time.Millisecond

	switch {
	case elapsed > activationMs:
		sum := 0
		for i, v := range slot.Detections {
			if i%2 == 0 {
				sum += int(v)
			} else {
				sum -= int(v)
			}
		}
		store.Clear(key)
		if sum < 0 {
			return Activation{Valid: true, Kind: EncoderDown}, nil
		}
		return Activation{Valid: true, Kind: EncoderUp}, nil

	case elapsed < detectionMs:
		// Noise: drop the just-appended sample.
		slot.Detections = slot.Detections[:len(slot.Detections)-1]
		return Activation{}, nil

	default:
		// Between thresholds: keep accumulating, no activation yet.
		return Activation{}, nil
	}
}

// classifySwitch implements spec.md §4.4.3.
func classifySwitch(store *keystate.Store, key uint8, slot *keystate.State, threshold config.Threshold, elapsed time.Duration, now time.Time) (Activation, error) {
	activationMs := time.Duration(threshold.Activation) * time.Millisecond

	if elapsed <= activationMs {
		slot.Detections = slot.Detections[:len(slot.Detections)-1]
		return Activation{}, nil
	}

	var result Activation

	if len(slot.Detections) == 2 {
		// First commit for this key: the activation is always Off, per
		// spec.md §9, Open Question 1 — preserved exactly as specified.
		if slot.InitialState != nil && *slot.InitialState {
			slot.Detections = []uint8{switchOnMarker, switchOnMarker}
		} else {
			slot.Detections = []uint8{switchOffSentinel, switchOffSentinel}
		}
		result = Activation{Valid: true, Kind: SwitchOff}
	} else {
		slot.Detections = slot.Detections[:len(slot.Detections)-1]
		last := slot.Detections[len(slot.Detections)-1]
		if last == switchOffSentinel {
			slot.Detections = append(slot.Detections, switchOnMarker)
			result = Activation{Valid: true, Kind: SwitchOn}
		} else {
			slot.Detections = append(slot.Detections, switchOffSentinel)
			result = Activation{Valid: true, Kind: SwitchOff}
		}
	}

	slot.Start = now

	if len(slot.Detections) > 50 {
		n := len(slot.Detections)
		slot.Detections = append([]uint8{}, slot.Detections[n-3:]...)
	}

	store.Set(key, slot)
	return result, nil
}

// classifyTrigger implements spec.md §4.4.4.
func classifyTrigger(store *keystate.Store, key uint8, slot *keystate.State, threshold config.Threshold, elapsed time.Duration, now time.Time) (Activation, error) {
	activationMs := time.Duration(threshold.Activation) * time.Millisecond

	if elapsed <= activationMs {
		slot.Detections = slot.Detections[:len(slot.Detections)-1]
		return Activation{}, nil
	}

	slot.Start = now
	slot.Detections = nil
	store.Set(key, slot)
	return Activation{Valid: true, Kind: TriggerFire}, nil
}
