package bindgen

import (
	"regexp"
	"strings"
)

var (
	identRe         = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	trailingIdentRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	noiseRe         = regexp.MustCompile(`\b(?:__extension__|__restrict__|__restrict|restrict|__inline__|__inline|inline|_Noreturn|__cdecl|__stdcall|__fastcall|__unaligned)\b`)
)

// attributeCalls are keywords followed by a parenthesized argument list that
// carries no type information.
var attributeCalls = []string{"__attribute__", "__attribute", "__declspec", "__asm__", "__asm", "asm"}

// typeWords never name a declarator.
var typeWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "_Complex": true, "const": true, "volatile": true,
	"struct": true, "union": true, "enum": true, "register": true,
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// matchParen returns the index of the ')' closing the '(' at open, or -1.
func matchParen(s string, open int) int {
	return matchPair(s, open, '(', ')')
}

func matchPair(s string, open int, l, r byte) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case l:
			depth++
		case r:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// indexWord finds w in s at identifier boundaries.
func indexWord(s, w string) int {
	off := 0
	for {
		i := strings.Index(s[off:], w)
		if i < 0 {
			return -1
		}
		i += off
		end := i + len(w)
		if (i == 0 || !isIdentByte(s[i-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return i
		}
		off = end
	}
}

// stripCall removes every kw and its parenthesized argument list from s.
func stripCall(s, kw string) string {
	for {
		i := indexWord(s, kw)
		if i < 0 {
			return s
		}
		j := i + len(kw)
		for j < len(s) && s[j] == ' ' {
			j++
		}
		if j < len(s) && s[j] == '(' {
			end := matchParen(s, j)
			if end < 0 {
				return strings.TrimSpace(s[:i])
			}
			j = end + 1
		}
		s = s[:i] + " " + s[j:]
	}
}

// normalize collapses whitespace and removes attributes and qualifiers that
// do not affect the Go view of a declaration.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, kw := range attributeCalls {
		s = stripCall(s, kw)
	}
	s = noiseRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

// splitTop splits s on sep outside of any brackets.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

// indexTop returns the first c in s outside of brackets.
func indexTop(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == c && depth == 0:
			return i
		case s[i] == '(' || s[i] == '[' || s[i] == '{':
			depth++
		case s[i] == ')' || s[i] == ']' || s[i] == '}':
			depth--
		}
	}
	return -1
}

// firstWord returns the leading identifier of s.
func firstWord(s string) string {
	if m := identRe.FindStringIndex(s); m != nil && m[0] == 0 {
		return s[:m[1]]
	}
	return ""
}

// lastWord returns the final space separated word of s.
func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// identsOf lists the non-keyword identifiers in a type.
func identsOf(s string) []string {
	var out []string
	for _, id := range identRe.FindAllString(s, -1) {
		if !typeWords[id] {
			out = append(out, id)
		}
	}
	return out
}

// stripArray removes trailing [...] groups.
func stripArray(s string) (string, bool) {
	s = strings.TrimSpace(s)
	array := false
	for strings.HasSuffix(s, "]") {
		open := strings.LastIndexByte(s, '[')
		if open < 0 {
			break
		}
		s = strings.TrimSpace(s[:open])
		array = true
	}
	return s, array
}
