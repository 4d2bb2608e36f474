package bindgen

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/tools/imports"
)

// Options control what [Generate] emits.
type Options struct {
	// Package is the Go package name of the generated file.
	Package string
	// Source names the input in the generated-code header.
	Source string
	// Headers are included by the cgo preamble. Names wrapped in <> are
	// emitted as is, others are quoted.
	Headers []string
	// CFLAGS and LDFLAGS populate the #cgo lines. Each entry is one
	// argument and is quoted as needed.
	CFLAGS  []string
	LDFLAGS []string
	// Allow selects declarations from system headers by name.
	Allow *regexp.Regexp
	// EmitBuiltins adds compiler predefined integer macros and every
	// system typedef.
	EmitBuiltins bool
}

// Skipped records a declaration that has no Go rendition.
type Skipped struct {
	Name   string
	Reason string
}

var intValueRe = regexp.MustCompile(`^-?(?:0[xX][0-9a-fA-F]+|[0-9]+)$`)

// Generate renders u as formatted Go source.
func Generate(u *Unit, opts Options) ([]byte, []Skipped, error) {
	g := &generator{opts: opts, seen: make(map[string]bool)}
	g.collect(u)

	var buf bytes.Buffer
	g.header(&buf)
	g.constants(&buf)
	g.types(&buf)
	g.vars(&buf)
	g.functions(&buf)
	g.skippedNote(&buf)

	src, err := imports.Process(fileName(opts), g.withImports(buf.Bytes()), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("format generated bindings: %w", err)
	}
	return src, g.skipped, nil
}

func fileName(opts Options) string {
	if opts.Package == "" {
		return "bindings.go"
	}
	return opts.Package + "_bindings.go"
}

type generator struct {
	opts Options

	consts   []Decl
	typedefs []Decl
	objects  []Decl
	funcs    []Decl

	seen       map[string]bool
	skipped    []Skipped
	usesUnsafe bool
}

func (g *generator) primary(d Decl) bool {
	if d.Origin.Builtin() {
		return g.opts.EmitBuiltins && d.Kind == KindMacro && intValueRe.MatchString(d.Value)
	}
	if g.opts.EmitBuiltins && d.Origin.System && d.Kind == KindTypedef {
		return true
	}
	if strings.HasPrefix(d.Name, "__") {
		return false
	}
	if !d.Origin.System {
		return true
	}
	return g.opts.Allow != nil && g.opts.Allow.MatchString(d.Name)
}

// collect selects declarations and closes the typedef set over references.
func (g *generator) collect(u *Unit) {
	typedefs := make(map[string]Decl)
	wanted := make(map[string]bool)
	var queue []string

	for _, d := range u.Decls {
		if d.Kind == KindTypedef {
			if _, dup := typedefs[d.Name]; !dup {
				typedefs[d.Name] = d
			}
		}
		if !g.primary(d) {
			continue
		}
		switch d.Kind {
		case KindTypedef:
			wanted[d.Name] = true
		case KindVar, KindFunc:
			queue = append(queue, d.Refs...)
		}
	}
	for name := range wanted {
		queue = append(queue, typedefs[name].Refs...)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		td, ok := typedefs[name]
		if !ok || wanted[name] {
			continue
		}
		wanted[name] = true
		queue = append(queue, td.Refs...)
	}

	for _, d := range u.Decls {
		switch d.Kind {
		case KindMacro, KindEnumConst:
			if g.primary(d) && g.claim(d.Name) {
				g.consts = append(g.consts, d)
			}
		case KindTypedef:
			if wanted[d.Name] && g.claim(d.Name) {
				g.typedefs = append(g.typedefs, d)
			}
		case KindVar:
			if g.primary(d) && g.claim(d.Name) {
				g.objects = append(g.objects, d)
			}
		case KindFunc:
			if !g.primary(d) {
				continue
			}
			if d.Variadic {
				g.skip(d.Name, "variadic")
				continue
			}
			if g.claim(d.Name) {
				g.funcs = append(g.funcs, d)
			}
		}
	}
}

func (g *generator) claim(name string) bool {
	if g.seen[name] {
		return false
	}
	g.seen[name] = true
	return true
}

func (g *generator) skip(name, reason string) {
	g.skipped = append(g.skipped, Skipped{Name: name, Reason: reason})
}

func (g *generator) header(buf *bytes.Buffer) {
	source := g.opts.Source
	if source == "" {
		source = "C headers"
	}
	pkg := g.opts.Package
	if pkg == "" {
		pkg = "bindings"
	}
	fmt.Fprintf(buf, "// Code generated by mpisys from %s. DO NOT EDIT.\n\n", source)
	fmt.Fprintf(buf, "package %s\n\n", pkg)

	buf.WriteString("/*\n")
	if len(g.opts.CFLAGS) > 0 {
		fmt.Fprintf(buf, "#cgo CFLAGS: %s\n", QuoteFlags(g.opts.CFLAGS))
	}
	if len(g.opts.LDFLAGS) > 0 {
		fmt.Fprintf(buf, "#cgo LDFLAGS: %s\n", QuoteFlags(g.opts.LDFLAGS))
	}
	for _, h := range g.opts.Headers {
		if strings.HasPrefix(h, "<") {
			fmt.Fprintf(buf, "#include %s\n", h)
		} else {
			fmt.Fprintf(buf, "#include %q\n", h)
		}
	}
	buf.WriteString("*/\nimport \"C\"\n\n")
	buf.WriteString(importsMarker)
}

// importsMarker is replaced once the body is known to need unsafe.
const importsMarker = "//mpisys:imports\n"

func (g *generator) withImports(src []byte) []byte {
	repl := []byte{}
	if g.usesUnsafe {
		repl = []byte("import \"unsafe\"\n\n")
	}
	return bytes.Replace(src, []byte(importsMarker), repl, 1)
}

func (g *generator) constants(buf *bytes.Buffer) {
	if len(g.consts) == 0 {
		return
	}
	buf.WriteString("const (\n")
	for _, d := range g.consts {
		if d.Kind == KindMacro {
			fmt.Fprintf(buf, "\t%s = %s\n", d.Name, d.Value)
		} else {
			fmt.Fprintf(buf, "\t%s = C.%s\n", d.Name, d.Name)
		}
	}
	buf.WriteString(")\n\n")
}

func (g *generator) types(buf *bytes.Buffer) {
	if len(g.typedefs) == 0 {
		return
	}
	buf.WriteString("type (\n")
	for _, d := range g.typedefs {
		fmt.Fprintf(buf, "\t%s = C.%s\n", d.Name, d.Name)
	}
	buf.WriteString(")\n\n")
}

// vars mirrors const objects by value and everything else by address.
func (g *generator) vars(buf *bytes.Buffer) {
	if len(g.objects) == 0 {
		return
	}
	buf.WriteString("var (\n")
	for _, d := range g.objects {
		if !d.Array && firstWord(d.Type) == "const" {
			fmt.Fprintf(buf, "\t%s = C.%s\n", d.Name, d.Name)
		} else {
			fmt.Fprintf(buf, "\t%s = &C.%s\n", d.Name, d.Name)
		}
	}
	buf.WriteString(")\n\n")
}

func (g *generator) functions(buf *bytes.Buffer) {
	for _, d := range g.funcs {
		src, err := g.wrapper(d)
		if err != nil {
			g.skip(d.Name, err.Error())
			continue
		}
		buf.WriteString(src)
	}
}

func (g *generator) wrapper(d Decl) (string, error) {
	ret, err := goType(d.Type)
	if err != nil {
		return "", err
	}
	names := paramNames(d.Params)
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		t, err := paramType(p)
		if err != nil {
			return "", err
		}
		params[i] = names[i] + " " + t
	}

	sig := strings.Join(params, ", ")
	if strings.Contains(sig, "unsafe.") || strings.Contains(ret, "unsafe.") {
		g.usesUnsafe = true
	}

	var b strings.Builder
	call := fmt.Sprintf("C.%s(%s)", d.Name, strings.Join(names, ", "))
	if ret == "" {
		fmt.Fprintf(&b, "func %s(%s) {\n\t%s\n}\n\n", d.Name, sig, call)
	} else {
		fmt.Fprintf(&b, "func %s(%s) %s {\n\treturn %s\n}\n\n", d.Name, sig, ret, call)
	}
	return b.String(), nil
}

func (g *generator) skippedNote(buf *bytes.Buffer) {
	if len(g.skipped) == 0 {
		return
	}
	buf.WriteString("// Not bound:\n")
	for _, s := range g.skipped {
		fmt.Fprintf(buf, "//\t%s: %s\n", s.Name, s.Reason)
	}
}
