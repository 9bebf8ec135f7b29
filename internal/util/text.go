package util

import "fmt"

// TruncateText shortens s to roughly max runes by cutting out the middle, so
// both the head and the tail of long command output survive. max <= 0
// disables truncation.
func TruncateText(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	removed := len(r) - max
	head := max / 2
	tail := max - head
	return fmt.Sprintf("%s... [%d characters removed] ...%s", string(r[:head]), removed, string(r[len(r)-tail:]))
}
