// Package keystate implements spec.md §4.3: a per-device mapping from MIDI
// key number to a small per-key state record, pre-seeded at device-open
// time and accessed only from that device's MIDI callback.
package keystate

import "time"

// State is the per-key runtime record (spec.md §3 KeyState).
type State struct {
	ControlName        string
	ActivationThreshold time.Duration
	DetectionThreshold  time.Duration // set only for encoders; zero for switches and triggers
	Detections          []uint8
	Start               time.Time
	InitialState        *bool // non-nil only for Switch controls; true == ON
}

// Store is a mapping from key∈0..127 to *State. A missing entry means "not
// a configured control, ignore"; a present nil-State slot is represented by
// storing a nil *State; a non-nil slot means "activation in progress".
//
// Only the owning device's callback ever touches a Store: MIDI backends
// deliver callbacks serially per connection, so no locking is needed
// (spec.md §4.3, §5 "Ordering guarantees").
type Store struct {
	slots map[uint8]*State
}

// New pre-seeds a Store with a nil slot for every key in keys.
func New(keys []uint8) *Store {
	slots := make(map[uint8]*State, len(keys))
	for _, k := range keys {
		slots[k] = nil
	}
	return &Store{slots: slots}
}

// Configured reports whether key has a slot at all (vs. being unmapped).
func (s *Store) Configured(key uint8) bool {
	_, ok := s.slots[key]
	return ok
}

// Get returns the current slot for key (nil if idle or unconfigured).
func (s *Store) Get(key uint8) *State {
	return s.slots[key]
}

// Set stores a new slot for key. Only valid for configured keys.
func (s *Store) Set(key uint8, state *State) {
	s.slots[key] = state
}

// Clear resets key's slot to idle (nil), keeping it configured.
func (s *Store) Clear(key uint8) {
	s.slots[key] = nil
}
