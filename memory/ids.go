package memory

import (
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}\b`)

// ExtractIDs returns the memory ids (UUIDs) found in free text, lower-cased
// and de-duplicated in order of appearance.
func ExtractIDs(text string) []string {
	matches := idPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.ToLower(m)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		ids = append(ids, m)
	}
	return ids
}
