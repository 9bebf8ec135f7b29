package memory

import (
	"encoding/json"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/internal/prompts"
)

// FormatSearchResult renders search hits for a model: the "not found"
// message when docs is empty, otherwise an indented JSON array.
func FormatSearchResult(query string, docs []core.MemoryDocument) string {
	if len(docs) == 0 {
		return prompts.MustRender(prompts.MemoriesNotFound, map[string]any{"Query": query})
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		// MemoryDocument only holds strings and numbers.
		panic(err)
	}
	return string(data)
}
