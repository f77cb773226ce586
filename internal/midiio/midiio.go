// Package midiio adapts gitlab.com/gomidi/midi/v2 (the real MIDI backend)
// to the small enumerator/listener shapes the core pipeline is specified
// against, so internal/device and internal/portresolver stay backend-
// agnostic and testable with fakes. Callers must blank-import
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv (or another driver) to
// register a concrete backend before calling Enumerate/Listen — this
// package never does so itself, matching the teacher's own registration
// site in its cmd/miditest and midi/manager.go.
package midiio

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/midiboard/midiboard/internal/portresolver"
)

// Enumerate lists the MIDI input ports currently visible to the backend,
// in the shape the Port Resolver (spec.md §4.1) expects.
func Enumerate() []portresolver.Port[any] {
	ins := gomidi.GetInPorts()
	ports := make([]portresolver.Port[any], len(ins))
	for i, p := range ins {
		ports[i] = portresolver.Port[any]{Index: i, Handle: p, Name: p.String()}
	}
	return ports
}

// RawHandler receives every decoded (key, value) sample, with the status
// nibble's channel ignored, matching spec.md §4.6.
type RawHandler func(key, value uint8, now time.Time)

// Connection owns one open MIDI input; Close releases it.
type Connection struct {
	stop func()
}

// Close stops delivery and releases the underlying connection.
func (c *Connection) Close() error {
	if c.stop != nil {
		c.stop()
	}
	return nil
}

// Listen opens handle (expected to be a drivers.In, as returned by
// Enumerate) and threads decoded Note On/Off and Control Change messages
// into handler. This is the callback shape spec.md §4.6 describes as
// "(timestamp, bytes, user-data)"; gomidi already decodes the three-byte
// message for us, so handler only ever sees (key, value).
func Listen(handle any, handler RawHandler) (*Connection, error) {
	port, ok := handle.(drivers.In)
	if !ok {
		return nil, errUnsupportedHandle
	}

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		var channel, key, value uint8
		now := time.Now()
		switch {
		case msg.GetNoteOn(&channel, &key, &value):
			handler(key, value, now)
		case msg.GetNoteOff(&channel, &key, &value):
			handler(key, 0, now)
		case msg.GetControlChange(&channel, &key, &value):
			handler(key, value, now)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Connection{stop: stop}, nil
}

var errUnsupportedHandle = unsupportedHandleError{}

type unsupportedHandleError struct{}

func (unsupportedHandleError) Error() string { return "midiio: handle is not a drivers.In" }
