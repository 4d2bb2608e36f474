package bindgen

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	lineMarkerRe = regexp.MustCompile(`^#\s*(?:line\s+)?(\d+)\s+"((?:[^"\\]|\\.)*)"(.*)$`)
	defineRe     = regexp.MustCompile(`^#\s*define\s+([A-Za-z_][A-Za-z0-9_]*)(\(?)(.*)$`)
	undefRe      = regexp.MustCompile(`^#\s*undef\s+([A-Za-z_][A-Za-z0-9_]*)`)
	funcTypeRe   = regexp.MustCompile(`\(\s*(?:\*\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*\)\s*\(`)
	funcPtrRe    = regexp.MustCompile(`\(\s*\*\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)`)
)

const maxLineSize = 1 << 20

// Parse reads the output of "cc -E -dD" and collects its declarations.
func Parse(r io.Reader) (*Unit, error) {
	p := &parser{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		p.line(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read preprocessed input: %w", err)
	}
	return &Unit{Decls: p.decls}, nil
}

// ParseString is a convenience wrapper around [Parse].
func ParseString(s string) (*Unit, error) {
	return Parse(strings.NewReader(s))
}

type parser struct {
	origin Origin
	decls  []Decl

	buf     strings.Builder
	start   Origin
	paren   int
	brace   int
	quote   byte
	escaped bool
}

func (p *parser) line(text string) {
	if p.quote == 0 {
		if t := strings.TrimSpace(text); strings.HasPrefix(t, "#") {
			p.directive(t)
			return
		}
	}
	p.feed(text)
	p.feed("\n")
}

func (p *parser) directive(t string) {
	if m := lineMarkerRe.FindStringSubmatch(t); m != nil {
		p.origin = Origin{File: unquoteFile(m[2]), System: slices.Contains(strings.Fields(m[3]), "3")}
		return
	}
	if m := defineRe.FindStringSubmatch(t); m != nil {
		if m[2] == "(" {
			return
		}
		p.removeMacro(m[1])
		if value, kind := literal(m[3]); kind != litNone {
			p.decls = append(p.decls, Decl{Kind: KindMacro, Name: m[1], Origin: p.origin, Value: value})
		}
		return
	}
	if m := undefRe.FindStringSubmatch(t); m != nil {
		p.removeMacro(m[1])
	}
}

func unquoteFile(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

func (p *parser) removeMacro(name string) {
	p.decls = slices.DeleteFunc(p.decls, func(d Decl) bool {
		return d.Kind == KindMacro && d.Name == name
	})
}

// feed accumulates declaration text until a top-level ';' or the closing
// brace of a function body.
func (p *parser) feed(s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if p.buf.Len() == 0 {
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
				continue
			}
			p.start = p.origin
		}
		p.buf.WriteByte(c)

		if p.quote != 0 {
			switch {
			case p.escaped:
				p.escaped = false
			case c == '\\':
				p.escaped = true
			case c == p.quote:
				p.quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			p.quote = c
		case '(':
			p.paren++
		case ')':
			p.paren--
		case '{':
			p.brace++
		case '}':
			p.brace--
			if p.brace == 0 && p.paren == 0 && isFunctionBody(p.buf.String()) {
				p.reset()
			}
		case ';':
			if p.brace == 0 && p.paren == 0 {
				text := p.buf.String()
				p.reset()
				p.declaration(p.start, text)
			}
		}
	}
}

func (p *parser) reset() {
	p.buf.Reset()
	p.paren, p.brace = 0, 0
	p.quote, p.escaped = 0, false
}

// isFunctionBody reports whether text is a complete function definition.
func isFunctionBody(text string) bool {
	open := strings.IndexByte(text, '{')
	if open < 0 {
		return false
	}
	head := normalize(text[:open])
	switch firstWord(head) {
	case "typedef", "struct", "union", "enum":
		return false
	}
	return strings.HasSuffix(head, ")") && !strings.Contains(head, "=")
}

func (p *parser) declaration(origin Origin, text string) {
	text = normalize(text)
	if text == "" {
		return
	}
	switch {
	case firstWord(text) == "typedef":
		p.typedef(origin, strings.TrimSpace(strings.TrimPrefix(text, "typedef")))
	case strings.Contains(text, "{"):
		if firstWord(text) == "enum" {
			open := strings.IndexByte(text, '{')
			if end := matchPair(text, open, '{', '}'); end > open {
				p.enumerators(origin, text[open+1:end])
			}
		}
	default:
		p.object(origin, text)
	}
}

func (p *parser) typedef(origin Origin, body string) {
	if open := strings.IndexByte(body, '{'); open >= 0 {
		end := matchPair(body, open, '{', '}')
		if end < 0 {
			return
		}
		tag := strings.TrimSpace(body[:open])
		if firstWord(tag) == "enum" {
			p.enumerators(origin, body[open+1:end])
		}
		for _, d := range declarators(tag, body[end+1:]) {
			p.decls = append(p.decls, Decl{Kind: KindTypedef, Name: d.name, Origin: origin, Type: d.typ})
		}
		return
	}

	if m := funcTypeRe.FindStringSubmatch(body); m != nil {
		p.decls = append(p.decls, Decl{
			Kind:   KindTypedef,
			Name:   m[1],
			Origin: origin,
			Type:   body,
			Refs:   slices.DeleteFunc(identsOf(body), func(id string) bool { return id == m[1] }),
		})
		return
	}

	for _, d := range declarators("", body) {
		p.decls = append(p.decls, Decl{
			Kind:   KindTypedef,
			Name:   d.name,
			Origin: origin,
			Type:   d.typ,
			Refs:   identsOf(d.typ),
		})
	}
}

func (p *parser) enumerators(origin Origin, body string) {
	for _, item := range splitTop(body, ',') {
		name := firstWord(strings.TrimSpace(item))
		if name == "" {
			continue
		}
		p.decls = append(p.decls, Decl{Kind: KindEnumConst, Name: name, Origin: origin})
	}
}

// object handles function prototypes and extern variables.
func (p *parser) object(origin Origin, text string) {
	extern := false
	switch firstWord(text) {
	case "static":
		return
	case "extern":
		extern = true
		text = strings.TrimSpace(strings.TrimPrefix(text, "extern"))
	}

	if open := indexTop(text, '('); open >= 0 {
		p.function(origin, text, open)
		return
	}
	if !extern {
		return
	}
	for _, d := range declarators("", text) {
		p.decls = append(p.decls, Decl{
			Kind:   KindVar,
			Name:   d.name,
			Origin: origin,
			Type:   d.typ,
			Array:  d.array,
			Refs:   identsOf(d.typ),
		})
	}
}

func (p *parser) function(origin Origin, text string, open int) {
	head := strings.TrimSpace(text[:open])
	m := trailingIdentRe.FindStringSubmatchIndex(head)
	if m == nil {
		return
	}
	name := head[m[2]:m[3]]
	ret := strings.TrimSpace(head[:m[2]])
	if ret == "" || typeWords[name] {
		return
	}
	end := matchParen(text, open)
	if end < 0 || strings.TrimSpace(text[end+1:]) != "" {
		return
	}

	params, variadic := parseParams(text[open+1 : end])
	refs := identsOf(ret)
	for _, prm := range params {
		refs = append(refs, identsOf(prm.Type)...)
	}
	if prm := funcPtrParamNames(params); len(prm) > 0 {
		refs = slices.DeleteFunc(refs, func(id string) bool { return slices.Contains(prm, id) })
	}
	p.decls = append(p.decls, Decl{
		Kind:     KindFunc,
		Name:     name,
		Origin:   origin,
		Type:     ret,
		Params:   params,
		Variadic: variadic,
		Refs:     refs,
	})
}

func funcPtrParamNames(params []Param) []string {
	var names []string
	for _, prm := range params {
		if prm.FuncPtr && prm.Name != "" {
			names = append(names, prm.Name)
		}
	}
	return names
}

func parseParams(s string) ([]Param, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "void" {
		return nil, false
	}
	var (
		params   []Param
		variadic bool
	)
	for _, part := range splitTop(s, ',') {
		part = strings.TrimSpace(part)
		if part == "..." {
			variadic = true
			continue
		}
		params = append(params, parseParam(part))
	}
	return params, variadic
}

func parseParam(part string) Param {
	if strings.Contains(part, "(") {
		prm := Param{Type: part, FuncPtr: true}
		if m := funcPtrRe.FindStringSubmatch(part); m != nil {
			prm.Name = m[1]
		}
		return prm
	}

	part, array := stripArray(part)
	if typ, name, ok := splitName(part); ok {
		return Param{Name: name, Type: typ, Array: array}
	}
	return Param{Type: part, Array: array}
}

// splitName separates a trailing declarator name from its type. It fails
// when the text is a bare type such as "unsigned int" or "struct foo".
func splitName(s string) (typ, name string, ok bool) {
	m := trailingIdentRe.FindStringSubmatchIndex(s)
	if m == nil {
		return "", "", false
	}
	name = s[m[2]:m[3]]
	typ = strings.TrimSpace(s[:m[2]])
	if typ == "" || typeWords[name] {
		return "", "", false
	}
	switch lastWord(strings.ReplaceAll(typ, "*", " ")) {
	case "struct", "union", "enum":
		return "", "", false
	}
	if rest := strings.Fields(strings.ReplaceAll(typ, "*", " ")); !slices.ContainsFunc(rest, func(w string) bool {
		return w != "const" && w != "volatile"
	}) {
		return "", "", false
	}
	return typ, name, true
}

type declarator struct {
	typ   string
	name  string
	array bool
}

// declarators splits "T a, *b, c[4]" into one entry per name. When base is
// set it is the shared type and every part is a bare declarator.
func declarators(base, text string) []declarator {
	var out []declarator
	for i, part := range splitTop(text, ',') {
		part, array := stripArray(part)
		if part == "" {
			continue
		}
		if base == "" && i == 0 {
			typ, name, ok := splitName(part)
			if !ok {
				return out
			}
			base = strings.TrimSpace(strings.TrimRight(typ, "* "))
			out = append(out, declarator{typ: typ, name: name, array: array})
			continue
		}
		m := trailingIdentRe.FindStringSubmatchIndex(part)
		if m == nil {
			continue
		}
		stars := strings.Count(part[:m[2]], "*")
		typ := base
		if stars > 0 {
			typ += " " + strings.Repeat("*", stars)
		}
		out = append(out, declarator{typ: typ, name: part[m[2]:m[3]], array: array})
	}
	return out
}
