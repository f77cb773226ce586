// Package config loads and validates the midiboard configuration file.
package config

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrConfigNotFound = errors.New("config: file not found")
	ErrConfigParse    = errors.New("config: parse error")
	ErrConfigExists   = errors.New("config: file already exists")
)

//go:embed skeleton.json
var skeletonFS embed.FS

// LogLevel is the configured verbosity of diagnostic output.
type LogLevel string

const (
	LogLevelError LogLevel = "Error"
	LogLevelWarn  LogLevel = "Warn"
	LogLevelInfo  LogLevel = "Info"
	LogLevelDebug LogLevel = "Debug"
	LogLevelTrace LogLevel = "Trace"
)

// SwitchState is the initial on/off state of a Switch control.
type SwitchState string

const (
	SwitchOn  SwitchState = "ON"
	SwitchOff SwitchState = "OFF"
)

// CommandData is a single executable and its argv, passed verbatim to the OS.
type CommandData struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args"`
}

// CommandKind discriminates the tagged Command variant.
type CommandKind string

const (
	CommandEncoder CommandKind = "Encoder"
	CommandSwitch  CommandKind = "Switch"
	CommandTrigger CommandKind = "Trigger"
)

// Command is the tagged variant described in spec.md §3: exactly one of
// Encoder, Switch, or Trigger fields is meaningful, selected by Kind.
type Command struct {
	Kind CommandKind `json:"kind"`

	// Encoder
	Increase *CommandData `json:"increase,omitempty"`
	Decrease *CommandData `json:"decrease,omitempty"`

	// Switch
	On           *CommandData `json:"on,omitempty"`
	Off          *CommandData `json:"off,omitempty"`
	InitialState SwitchState  `json:"initial_state,omitempty"`

	// Trigger
	Execute *CommandData `json:"execute,omitempty"`
}

// Validate checks that the fields required for Kind are present.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandEncoder:
		if c.Increase == nil || c.Decrease == nil {
			return fmt.Errorf("encoder command requires both increase and decrease")
		}
	case CommandSwitch:
		if c.On == nil || c.Off == nil {
			return fmt.Errorf("switch command requires both on and off")
		}
		if c.InitialState != SwitchOn && c.InitialState != SwitchOff {
			return fmt.Errorf("switch command requires initial_state of ON or OFF")
		}
	case CommandTrigger:
		if c.Execute == nil {
			return fmt.Errorf("trigger command requires execute")
		}
	default:
		return fmt.Errorf("unknown command kind %q", c.Kind)
	}
	return nil
}

// Control maps one MIDI key to a Command.
type Control struct {
	Key     uint8   `json:"key"`
	Command Command `json:"command"`
}

// Threshold is a single activation/detection timing pair, in milliseconds.
type Threshold struct {
	Activation int `json:"activation"`
	Detection  int `json:"detection,omitempty"`
}

// ThresholdSet holds the per-kind timing thresholds for one Device.
type ThresholdSet struct {
	Encoder Threshold `json:"encoder"`
	Switch  Threshold `json:"switch"`
	Trigger Threshold `json:"trigger"`
}

// Device is one MIDI controller's worth of configuration.
type Device struct {
	Name       string             `json:"device"`
	Thresholds ThresholdSet       `json:"thresholds"`
	Controls   map[string]Control `json:"controls"`
}

// Validate checks key uniqueness and per-control command shape.
func (d Device) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("device: missing name")
	}
	seen := make(map[uint8]string, len(d.Controls))
	for name, ctrl := range d.Controls {
		if ctrl.Key > 127 {
			return fmt.Errorf("device %q: control %q: key %d out of range 0..127", d.Name, name, ctrl.Key)
		}
		if other, ok := seen[ctrl.Key]; ok {
			return fmt.Errorf("device %q: key %d used by both %q and %q", d.Name, ctrl.Key, other, name)
		}
		seen[ctrl.Key] = name
		if err := ctrl.Command.Validate(); err != nil {
			return fmt.Errorf("device %q: control %q: %w", d.Name, name, err)
		}
	}
	return nil
}

// ConfigFile is the top-level document at $HOME/midiboard.json.
type ConfigFile struct {
	LogLevel LogLevel `json:"log_level"`
	Devices  []Device `json:"config"`
}

// Validate runs every Device's Validate.
func (c ConfigFile) Validate() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("config: no devices configured")
	}
	for _, d := range c.Devices {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPath returns $HOME/midiboard.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, "midiboard.json"), nil
}

// Load reads and parses the config file at path, or at DefaultPath if path is empty.
func Load(path string) (*ConfigFile, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, resolved)
		}
		return nil, err
	}

	var cfg ConfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, resolved, err)
	}
	return &cfg, nil
}

// Generate writes the embedded skeleton config to path (or DefaultPath),
// failing with ErrConfigExists if a file is already present there.
func Generate(path string) (string, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(resolved); err == nil {
		return "", fmt.Errorf("%w: %s", ErrConfigExists, resolved)
	} else if !os.IsNotExist(err) {
		return "", err
	}

	skeleton, err := skeletonFS.ReadFile("skeleton.json")
	if err != nil {
		return "", fmt.Errorf("config: read embedded skeleton: %w", err)
	}

	if dir := filepath.Dir(resolved); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(resolved, skeleton, 0o644); err != nil {
		return "", err
	}
	return resolved, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultPath()
}
