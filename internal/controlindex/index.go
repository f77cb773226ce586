// Package controlindex builds the two lookup views spec.md §4.2 derives
// from a Device: key→control-name and control-name→control definition.
package controlindex

import (
	"errors"
	"fmt"

	"github.com/midiboard/midiboard/internal/config"
)

var (
	ErrDuplicateKey   = errors.New("controlindex: duplicate key")
	ErrUnknownKey     = errors.New("controlindex: unknown key")
	ErrMissingControl = errors.New("controlindex: missing control")
)

// Index is the immutable control lookup for one Device.
type Index struct {
	byName map[string]config.Control
	byKey  map[uint8]string
	thresh config.ThresholdSet
}

// Build constructs an Index from a Device, failing eagerly with
// ErrDuplicateKey if two controls share a key (spec.md §9, Open Question 2 —
// this resolves the source's silent last-writer-wins into a hard error).
func Build(d config.Device) (*Index, error) {
	byKey := make(map[uint8]string, len(d.Controls))
	for name, ctrl := range d.Controls {
		if other, ok := byKey[ctrl.Key]; ok {
			return nil, fmt.Errorf("%w: key %d used by both %q and %q", ErrDuplicateKey, ctrl.Key, other, name)
		}
		byKey[ctrl.Key] = name
	}
	return &Index{byName: d.Controls, byKey: byKey, thresh: d.Thresholds}, nil
}

// GetControl returns the Control registered under name.
func (idx *Index) GetControl(name string) (config.Control, error) {
	ctrl, ok := idx.byName[name]
	if !ok {
		return config.Control{}, fmt.Errorf("%w: %s", ErrMissingControl, name)
	}
	return ctrl, nil
}

// NameForKey returns the control name mapped to key, or ErrUnknownKey.
func (idx *Index) NameForKey(key uint8) (string, error) {
	name, ok := idx.byKey[key]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}
	return name, nil
}

// ControlForKey is a convenience composing NameForKey and GetControl.
func (idx *Index) ControlForKey(key uint8) (string, config.Control, error) {
	name, err := idx.NameForKey(key)
	if err != nil {
		return "", config.Control{}, err
	}
	ctrl, err := idx.GetControl(name)
	return name, ctrl, err
}

// Keys returns every configured key, for pre-seeding the Key-State Store.
func (idx *Index) Keys() []uint8 {
	keys := make([]uint8, 0, len(idx.byKey))
	for k := range idx.byKey {
		keys = append(keys, k)
	}
	return keys
}

// ThresholdFor returns the relevant ThresholdSet slice for key's control kind.
func (idx *Index) ThresholdFor(key uint8) (config.CommandKind, config.Threshold, error) {
	_, ctrl, err := idx.ControlForKey(key)
	if err != nil {
		return "", config.Threshold{}, err
	}
	switch ctrl.Command.Kind {
	case config.CommandEncoder:
		return config.CommandEncoder, idx.thresh.Encoder, nil
	case config.CommandSwitch:
		return config.CommandSwitch, idx.thresh.Switch, nil
	case config.CommandTrigger:
		return config.CommandTrigger, idx.thresh.Trigger, nil
	default:
		return "", config.Threshold{}, fmt.Errorf("controlindex: control with key %d has unknown command kind %q", ctrl.Key, ctrl.Command.Kind)
	}
}
