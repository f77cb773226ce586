package classify

import (
	"testing"
	"time"

	"github.com/midiboard/midiboard/internal/config"
	"github.com/midiboard/midiboard/internal/controlindex"
	"github.com/midiboard/midiboard/internal/keystate"
)

func newIndex(t *testing.T, d config.Device) *controlindex.Index {
	t.Helper()
	idx, err := controlindex.Build(d)
	if err != nil {
		t.Fatalf("controlindex.Build: %v", err)
	}
	return idx
}

func epoch() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
func at(ms int) time.Time { return epoch().Add(time.Duration(ms) * time.Millisecond) }

// Scenario 1: Encoder increase/decrease via the alternating-sign accumulator.
func TestEncoder_Scenario1_CommitsDown(t *testing.T) {
	d := config.Device{
		Name: "dev",
		Thresholds: config.ThresholdSet{Encoder: config.Threshold{Activation: 100, Detection: 10}},
		Controls: map[string]config.Control{
			"vol": {Key: 20, Command: config.Command{
				Kind:     config.CommandEncoder,
				Increase: &config.CommandData{Cmd: "echo", Args: []string{"UP"}},
				Decrease: &config.CommandData{Cmd: "echo", Args: []string{"DOWN"}},
			}},
		},
	}
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	events := []struct {
		ms  int
		val uint8
	}{{0, 64}, {20, 66}, {40, 68}, {150, 70}}

	var last Activation
	for i, e := range events {
		act, err := Classify(store, idx, 20, e.val, at(e.ms))
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if i < 3 && act.Valid {
			t.Fatalf("event %d: unexpected activation %+v", i, act)
		}
		last = act
	}
	if !last.Valid || last.Kind != EncoderDown {
		t.Fatalf("got %+v, want valid EncoderDown (accumulator +64-66+68-70=-4)", last)
	}
}

// P3: no activation on the very first event after idle.
func TestEncoder_NoActivationOnFirstEvent(t *testing.T) {
	d := config.Device{
		Name:       "dev",
		Thresholds: config.ThresholdSet{Encoder: config.Threshold{Activation: 100, Detection: 10}},
		Controls: map[string]config.Control{
			"vol": {Key: 20, Command: config.Command{
				Kind:     config.CommandEncoder,
				Increase: &config.CommandData{Cmd: "echo"},
				Decrease: &config.CommandData{Cmd: "echo"},
			}},
		},
	}
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	act, err := Classify(store, idx, 20, 64, at(0))
	if err != nil {
		t.Fatal(err)
	}
	if act.Valid {
		t.Fatalf("expected no activation on first event, got %+v", act)
	}
	if store.Get(20) == nil {
		t.Fatal("expected a slot to be created on first event")
	}
}

// Scenario 2 / P4: noise rejection drops the sample, elapsed < detection_ms.
func TestEncoder_Scenario2_NoiseRejected(t *testing.T) {
	d := config.Device{
		Name:       "dev",
		Thresholds: config.ThresholdSet{Encoder: config.Threshold{Activation: 100, Detection: 10}},
		Controls: map[string]config.Control{
			"vol": {Key: 20, Command: config.Command{
				Kind:     config.CommandEncoder,
				Increase: &config.CommandData{Cmd: "echo"},
				Decrease: &config.CommandData{Cmd: "echo"},
			}},
		},
	}
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	if _, err := Classify(store, idx, 20, 64, at(0)); err != nil {
		t.Fatal(err)
	}
	act, err := Classify(store, idx, 20, 65, at(5))
	if err != nil {
		t.Fatal(err)
	}
	if act.Valid {
		t.Fatalf("expected no activation for noise sample, got %+v", act)
	}
	slot := store.Get(20)
	if slot == nil {
		t.Fatal("expected slot to persist")
	}
	if len(slot.Detections) != 1 || slot.Detections[0] != 64 {
		t.Fatalf("got detections %v, want [64] (noisy sample dropped)", slot.Detections)
	}
}

func switchDevice(initial config.SwitchState) config.Device {
	return config.Device{
		Name:       "dev",
		Thresholds: config.ThresholdSet{Switch: config.Threshold{Activation: 50}},
		Controls: map[string]config.Control{
			"mute": {Key: 30, Command: config.Command{
				Kind:         config.CommandSwitch,
				InitialState: initial,
				On:           &config.CommandData{Cmd: "echo", Args: []string{"ON"}},
				Off:          &config.CommandData{Cmd: "echo", Args: []string{"OFF"}},
			}},
		},
	}
}

// Scenario 3: first press always emits SwitchOff, regardless of initial state.
func TestSwitch_Scenario3_FirstPressEmitsOff(t *testing.T) {
	d := switchDevice(config.SwitchOff)
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	if _, err := Classify(store, idx, 30, 127, at(0)); err != nil {
		t.Fatal(err)
	}
	act, err := Classify(store, idx, 30, 0, at(80))
	if err != nil {
		t.Fatal(err)
	}
	if !act.Valid || act.Kind != SwitchOff {
		t.Fatalf("got %+v, want valid SwitchOff", act)
	}
}

// Scenario 4 / R2: second press flips to SwitchOn.
func TestSwitch_Scenario4_SecondPressFlipsToOn(t *testing.T) {
	d := switchDevice(config.SwitchOff)
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	mustClassify(t, store, idx, 30, 127, at(0))
	mustClassify(t, store, idx, 30, 0, at(80))

	act := mustClassify(t, store, idx, 30, 127, at(200))
	if !act.Valid || act.Kind != SwitchOn {
		t.Fatalf("got %+v, want valid SwitchOn", act)
	}
}

// R2: alternating sequence is Off, On, Off, ... regardless of initial state.
func TestSwitch_R2_AlternatesRegardlessOfInitialState(t *testing.T) {
	for _, initial := range []config.SwitchState{config.SwitchOn, config.SwitchOff} {
		d := switchDevice(initial)
		idx := newIndex(t, d)
		store := keystate.New(idx.Keys())

		want := []ActivationKind{SwitchOff, SwitchOn, SwitchOff, SwitchOn}
		ms := 0
		for i, w := range want {
			mustClassify(t, store, idx, 30, 127, at(ms))
			ms += 60
			act := mustClassify(t, store, idx, 30, 0, at(ms))
			ms += 60
			if !act.Valid || act.Kind != w {
				t.Fatalf("initial=%v step %d: got %+v, want %v", initial, i, act, w)
			}
		}
	}
}

// P6: switch detections length stays bounded at 50.
func TestSwitch_P6_DetectionsBounded(t *testing.T) {
	d := switchDevice(config.SwitchOff)
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	ms := 0
	mustClassify(t, store, idx, 30, 127, at(ms))
	for i := 0; i < 60; i++ {
		ms += 60
		mustClassify(t, store, idx, 30, 127, at(ms))
		if len(store.Get(30).Detections) > 50 {
			t.Fatalf("iteration %d: detections length %d exceeds 50", i, len(store.Get(30).Detections))
		}
	}
}

// Scenario 5: Trigger fires once elapsed exceeds activation threshold.
func TestTrigger_Scenario5_Fires(t *testing.T) {
	d := config.Device{
		Name:       "dev",
		Thresholds: config.ThresholdSet{Trigger: config.Threshold{Activation: 30}},
		Controls: map[string]config.Control{
			"lock": {Key: 40, Command: config.Command{
				Kind:    config.CommandTrigger,
				Execute: &config.CommandData{Cmd: "true"},
			}},
		},
	}
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	mustClassify(t, store, idx, 40, 127, at(0))
	act := mustClassify(t, store, idx, 40, 127, at(50))
	if !act.Valid || act.Kind != TriggerFire {
		t.Fatalf("got %+v, want valid TriggerFire", act)
	}
}

// Scenario 6: unconfigured key never creates a slot or an activation.
func TestClassify_Scenario6_UnconfiguredKeyIsIgnored(t *testing.T) {
	d := config.Device{
		Name:       "dev",
		Thresholds: config.ThresholdSet{Trigger: config.Threshold{Activation: 30}},
		Controls: map[string]config.Control{
			"lock": {Key: 40, Command: config.Command{
				Kind:    config.CommandTrigger,
				Execute: &config.CommandData{Cmd: "true"},
			}},
		},
	}
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	act := mustClassify(t, store, idx, 99, 127, at(0))
	if act.Valid {
		t.Fatalf("expected no activation for unconfigured key, got %+v", act)
	}
	if store.Configured(99) {
		t.Fatal("unconfigured key must not gain a slot")
	}
}

// P5: elapsed values are non-negative and non-decreasing within one phase.
func TestEncoder_P5_ElapsedMonotonic(t *testing.T) {
	d := config.Device{
		Name:       "dev",
		Thresholds: config.ThresholdSet{Encoder: config.Threshold{Activation: 1000, Detection: 0}},
		Controls: map[string]config.Control{
			"vol": {Key: 20, Command: config.Command{
				Kind:     config.CommandEncoder,
				Increase: &config.CommandData{Cmd: "echo"},
				Decrease: &config.CommandData{Cmd: "echo"},
			}},
		},
	}
	idx := newIndex(t, d)
	store := keystate.New(idx.Keys())

	mustClassify(t, store, idx, 20, 64, at(0))
	start := store.Get(20).Start
	var prevElapsed time.Duration
	for _, ms := range []int{10, 20, 30} {
		mustClassify(t, store, idx, 20, 64, at(ms))
		elapsed := at(ms).Sub(start)
		if elapsed < 0 || elapsed < prevElapsed {
			t.Fatalf("elapsed not monotonic: %v after %v", elapsed, prevElapsed)
		}
		prevElapsed = elapsed
	}
}

func mustClassify(t *testing.T, store *keystate.Store, idx *controlindex.Index, key, val uint8, now time.Time) Activation {
	t.Helper()
	act, err := Classify(store, idx, key, val, now)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	return act
}
