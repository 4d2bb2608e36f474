package bindgen

import "fmt"

// Origin is the source location class of a declaration.
type Origin struct {
	File   string
	System bool
}

// Builtin reports whether the declaration was predefined by the compiler
// or passed on its command line.
func (o Origin) Builtin() bool {
	switch o.File {
	case "<built-in>", "<command line>", "<command-line>":
		return true
	}
	return false
}

// Kind classifies a declaration.
type Kind int

const (
	// KindMacro is an object-like #define with a literal value.
	KindMacro Kind = iota
	// KindEnumConst is an enumerator.
	KindEnumConst
	// KindTypedef is a typedef name.
	KindTypedef
	// KindVar is an extern object.
	KindVar
	// KindFunc is a function prototype.
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindMacro:
		return "macro"
	case KindEnumConst:
		return "enum constant"
	case KindTypedef:
		return "typedef"
	case KindVar:
		return "variable"
	case KindFunc:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Param is one function parameter.
type Param struct {
	Name string
	// Type is the C type with the parameter name removed.
	Type string
	// FuncPtr is set for function pointer parameters.
	FuncPtr bool
	// Array is set for parameters declared with [].
	Array bool
}

// Decl is one top-level declaration.
type Decl struct {
	Kind   Kind
	Name   string
	Origin Origin

	// Value is the Go literal of a macro.
	Value string
	// Type is the aliased type of a typedef, the object type of a variable,
	// or the return type of a function.
	Type string
	// Array marks array-typed variables.
	Array bool

	Params   []Param
	Variadic bool

	// Refs are the identifiers mentioned by the declaration's types.
	Refs []string
}

// Unit is a parsed translation unit.
type Unit struct {
	Decls []Decl
}

// Lookup returns the first declaration called name.
func (u *Unit) Lookup(name string) (Decl, bool) {
	for _, d := range u.Decls {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}
