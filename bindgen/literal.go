package bindgen

import (
	"regexp"
	"strconv"
	"strings"
)

// litKind classifies a macro body that translates to a Go constant.
type litKind int

const (
	litNone litKind = iota
	litInt
	litFloat
	litString
)

var (
	intLitRe   = regexp.MustCompile(`^([+-]?)\s*(0[xX][0-9a-fA-F]+|0[0-7]*|[1-9][0-9]*)(?:[uU]|[lL]|[uU][lL]|[lL][uU]|[uU][lL][lL]|[lL][lL][uU]|[lL][lL])?$`)
	floatLitRe = regexp.MustCompile(`^([+-]?)\s*((?:[0-9]+\.[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?|[0-9]+[eE][+-]?[0-9]+)[fFlL]?$`)
	strLitRe   = regexp.MustCompile(`^"(?:[^"\\]|\\.)*"$`)
)

// literal converts a macro body to a Go literal.
func literal(body string) (string, litKind) {
	body = unparen(strings.TrimSpace(body))
	if body == "" {
		return "", litNone
	}
	if m := intLitRe.FindStringSubmatch(body); m != nil {
		return m[1] + m[2], litInt
	}
	if m := floatLitRe.FindStringSubmatch(body); m != nil {
		return m[1] + m[2], litFloat
	}
	if strLitRe.MatchString(body) {
		s, err := strconv.Unquote(body)
		if err != nil {
			return "", litNone
		}
		return strconv.Quote(s), litString
	}
	return "", litNone
}

// unparen strips redundant outer parentheses: "((-1))" becomes "-1".
func unparen(s string) string {
	for len(s) >= 2 && s[0] == '(' && matchParen(s, 0) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
