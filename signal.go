package mpisys

import (
	"fmt"

	"github.com/thediveo/enumflag/v2"
)

// Signal is the two-valued profile selector read from the build environment.
type Signal int

const (
	// SignalGeneric selects the generic Unix profile.
	SignalGeneric Signal = iota
	// SignalCray selects the Cray/HPC cluster profile.
	SignalCray
)

// DefaultSignalVariable is the environment variable holding the raw signal.
const DefaultSignalVariable = "CRAY"

// signalValues is the complete set of recognized raw values.
var signalValues = enumflag.EnumIdentifiers[Signal]{
	SignalGeneric: {"0"},
	SignalCray:    {"1"},
}

func (s Signal) String() string {
	switch s {
	case SignalGeneric:
		return "generic"
	case SignalCray:
		return "cray"
	default:
		return fmt.Sprintf("Signal(%d)", s)
	}
}

// ParseSignal maps a raw value onto a [Signal]. Values outside the
// recognized set are an error; there is no default.
func ParseSignal(variable, raw string) (Signal, error) {
	var s Signal
	v := enumflag.New(&s, "signal", signalValues, enumflag.EnumCaseSensitive)
	if err := v.Set(raw); err != nil {
		return 0, &ConfigError{
			Variable: variable,
			Value:    raw,
			Err:      fmt.Errorf("%w: %v", ErrUnrecognizedValue, err),
		}
	}
	return s, nil
}

// ReadSignal returns the profile selector carried by cfg.
// An unset variable is a *[ConfigError] wrapping [ErrMissingVariable].
func ReadSignal(cfg Config) (Signal, error) {
	variable := cfg.signalVariable()
	if !cfg.Signal.Set {
		return 0, &ConfigError{Variable: variable, Err: ErrMissingVariable}
	}
	return ParseSignal(variable, cfg.Signal.Value)
}
