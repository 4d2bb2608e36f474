package mpisys

import (
	"errors"
	"reflect"
	"testing"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		signal   Signal
		profile  Profile
		compiler string
	}{
		{SignalGeneric, ProfileUnixOpenMPI, "mpicc"},
		{SignalCray, ProfileArcher2CrayMPICH, "cc"},
	}
	for _, tt := range tests {
		t.Run(tt.signal.String(), func(t *testing.T) {
			sel, err := Select(tt.signal)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if sel.Profile != tt.profile || sel.Compiler != tt.compiler {
				t.Fatalf("Select() = %v/%q, want %v/%q", sel.Profile, sel.Compiler, tt.profile, tt.compiler)
			}
			if !reflect.DeepEqual(sel.Library, tt.profile.Library()) {
				t.Fatalf("Select() library = %+v", sel.Library)
			}
		})
	}
}

func TestSelect_Unknown(t *testing.T) {
	_, err := Select(Signal(3))
	if !errors.Is(err, ErrUnrecognizedValue) {
		t.Fatalf("Select() error = %v, want ErrUnrecognizedValue", err)
	}
}

func TestSelect_ReturnsCopy(t *testing.T) {
	sel, err := Select(SignalCray)
	if err != nil {
		t.Fatal(err)
	}
	sel.Library.LibPaths[0] = "/tmp/evil"

	again, _ := Select(SignalCray)
	if again.Library.LibPaths[0] == "/tmp/evil" {
		t.Fatal("Select() exposed the registry entry to mutation")
	}
}
