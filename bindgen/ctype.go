package bindgen

import (
	"errors"
	"fmt"
	"strings"
)

var errUnsupported = errors.New("unsupported type")

// goType maps a C type to the type cgo exposes for it. A void return maps to
// the empty string.
func goType(c string) (string, error) {
	stars := strings.Count(c, "*")
	var words []string
	for _, w := range strings.Fields(strings.ReplaceAll(c, "*", " ")) {
		switch w {
		case "const", "volatile", "register":
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return "", fmt.Errorf("%w: %q", errUnsupported, c)
	}

	base, err := baseType(words)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, c)
	}
	if base == "" {
		if stars == 0 {
			return "", nil
		}
		return strings.Repeat("*", stars-1) + "unsafe.Pointer", nil
	}
	return strings.Repeat("*", stars) + base, nil
}

func baseType(words []string) (string, error) {
	switch words[0] {
	case "struct", "union", "enum":
		if len(words) != 2 {
			return "", errUnsupported
		}
		return "C." + words[0] + "_" + words[1], nil
	}

	if len(words) == 1 && !typeWords[words[0]] {
		if strings.HasPrefix(words[0], "__int128") {
			return "", errUnsupported
		}
		return "C." + words[0], nil
	}

	var signed, unsigned, char, short, integer, float, double, void bool
	long := 0
	for _, w := range words {
		switch w {
		case "signed":
			signed = true
		case "unsigned":
			unsigned = true
		case "char":
			char = true
		case "short":
			short = true
		case "int":
			integer = true
		case "long":
			long++
		case "float":
			float = true
		case "double":
			double = true
		case "void":
			void = true
		default:
			return "", errUnsupported
		}
	}

	switch {
	case void:
		return "", nil
	case double && long > 0:
		return "", errUnsupported
	case double:
		return "C.double", nil
	case float:
		return "C.float", nil
	case char && unsigned:
		return "C.uchar", nil
	case char && signed:
		return "C.schar", nil
	case char:
		return "C.char", nil
	case short && unsigned:
		return "C.ushort", nil
	case short:
		return "C.short", nil
	case long >= 2 && unsigned:
		return "C.ulonglong", nil
	case long >= 2:
		return "C.longlong", nil
	case long == 1 && unsigned:
		return "C.ulong", nil
	case long == 1:
		return "C.long", nil
	case unsigned:
		return "C.uint", nil
	case integer || signed:
		return "C.int", nil
	}
	return "", errUnsupported
}

// paramType maps a parameter, decaying arrays and function pointers.
func paramType(p Param) (string, error) {
	if p.FuncPtr {
		return "*[0]byte", nil
	}
	t := p.Type
	if p.Array {
		t += " *"
	}
	gt, err := goType(t)
	if err != nil {
		return "", err
	}
	if gt == "" {
		return "", fmt.Errorf("%w: void parameter", errUnsupported)
	}
	return gt, nil
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	"C": true, "unsafe": true,
}

// paramNames returns unique Go identifiers for params.
func paramNames(params []Param) []string {
	names := make([]string, len(params))
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		name := p.Name
		switch {
		case name == "":
			name = fmt.Sprintf("p%d", i)
		case goKeywords[name]:
			name += "_"
		}
		for seen[name] {
			name = fmt.Sprintf("%s%d", name, i)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}
