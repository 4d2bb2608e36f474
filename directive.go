package mpisys

import (
	"fmt"
	"io"
)

// DirectivePrefix starts every line written to the harness control channel.
const DirectivePrefix = "mpisys:"

// DirectiveKind enumerates harness directives.
type DirectiveKind int

const (
	// DirectiveLinkSearch adds a native library search directory.
	DirectiveLinkSearch DirectiveKind = iota
	// DirectiveLinkLib links a library by name.
	DirectiveLinkLib
	// DirectiveLinkStaticLib links a static library by name.
	DirectiveLinkStaticLib
	// DirectiveCfg enables a conditional-compilation name.
	DirectiveCfg
)

// Directive is a single instruction to the build harness.
type Directive struct {
	Kind  DirectiveKind `json:"kind"`
	Value string        `json:"value"`
}

func (d Directive) String() string {
	switch d.Kind {
	case DirectiveLinkSearch:
		return DirectivePrefix + "link-search=native=" + d.Value
	case DirectiveLinkLib:
		return DirectivePrefix + "link-lib=" + d.Value
	case DirectiveLinkStaticLib:
		return DirectivePrefix + "link-lib=static=" + d.Value
	case DirectiveCfg:
		return DirectivePrefix + "cfg=" + d.Value
	default:
		return fmt.Sprintf("%sunknown(%d)=%s", DirectivePrefix, d.Kind, d.Value)
	}
}

// MarshalText renders d as its control line.
func (d Directive) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LinkDirectives returns one search directive per lib path followed by one
// link directive per library, both in profile order. Paths are not checked.
func LinkDirectives(lib LibraryProfile) []Directive {
	ds := make([]Directive, 0, len(lib.LibPaths)+len(lib.Libs))
	for _, dir := range lib.LibPaths {
		ds = append(ds, Directive{Kind: DirectiveLinkSearch, Value: dir})
	}
	for _, name := range lib.Libs {
		ds = append(ds, Directive{Kind: DirectiveLinkLib, Value: name})
	}
	return ds
}

// EmitDirectives writes ds to w, one per line.
func EmitDirectives(w io.Writer, ds []Directive) error {
	for _, d := range ds {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return fmt.Errorf("emit directive %s: %w", d, err)
		}
	}
	return nil
}

// CgoLDFLAGS renders link directives as cgo LDFLAGS arguments, one per
// element and unquoted.
func CgoLDFLAGS(ds []Directive) []string {
	var flags []string
	for _, d := range ds {
		switch d.Kind {
		case DirectiveLinkSearch:
			flags = append(flags, "-L"+d.Value)
		case DirectiveLinkLib, DirectiveLinkStaticLib:
			flags = append(flags, "-l"+d.Value)
		}
	}
	return flags
}
