package tool

import "strings"

// ShellQuote quotes s for a POSIX shell so it is passed as one literal
// argument.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
