package bindgen

import "strings"

// QuoteFlags joins args into the value of a #cgo directive.
//
// cgo splits directive values on unquoted whitespace and treats a backslash
// as an escape everywhere, inside quotes included. Arguments holding
// whitespace, quotes or backslashes are single-quoted with those characters
// escaped, so Windows paths such as `C:\Program Files (x86)\...` survive.
func QuoteFlags(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteFlag(a)
	}
	return strings.Join(quoted, " ")
}

func quoteFlag(a string) string {
	if a != "" && !strings.ContainsAny(a, " \t\n\r\v\f'\"\\") {
		return a
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range a {
		if r == '\\' || r == '\'' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}
