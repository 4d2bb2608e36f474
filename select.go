package mpisys

import "fmt"

// Selection is the result of mapping a [Signal] onto the profile registry.
type Selection struct {
	Profile  Profile
	Library  LibraryProfile
	Compiler string
}

// Select returns the profile for s together with its compiler wrapper.
func Select(s Signal) (Selection, error) {
	var p Profile
	switch s {
	case SignalCray:
		p = ProfileArcher2CrayMPICH
	case SignalGeneric:
		p = ProfileUnixOpenMPI
	default:
		return Selection{}, &ConfigError{
			Variable: "signal",
			Value:    s.String(),
			Err:      fmt.Errorf("%w: no profile for %s", ErrUnrecognizedValue, s),
		}
	}

	lib := p.Library()
	if err := lib.Validate(); err != nil {
		return Selection{}, err
	}
	return Selection{Profile: p, Library: lib, Compiler: p.Compiler()}, nil
}
