// Package prompts holds the text templates the agents and tools render their
// messages with.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templates embed.FS

// Template names.
const (
	AgentSystem           = "agent_system"
	ToolResponse          = "tool_response"
	MemoriesNotFound      = "memories_not_found"
	MemorySaved           = "memory_saved"
	MemoriesDeleted       = "memories_deleted"
	CodeNoOutput          = "code_no_output"
	CodeRuntimeWrong      = "code_runtime_wrong"
	KnowledgeResponse     = "knowledge_response"
	NoRecognizedOperation = "no_recognized_operation"
)

// set is parsed once; every file is addressable by its base name.
var set = template.Must(template.New("prompts").Option("missingkey=zero").ParseFS(templates, "templates/*.md"))

// Render executes the named template with vars and trims trailing
// whitespace. Output is plain text, nothing is escaped.
func Render(name string, vars map[string]any) (string, error) {
	tmpl := set.Lookup(name + ".md")
	if tmpl == nil {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return strings.TrimRight(sb.String(), " \n"), nil
}

// MustRender is Render for the embedded templates, which are covered by tests.
func MustRender(name string, vars map[string]any) string {
	out, err := Render(name, vars)
	if err != nil {
		panic(err)
	}
	return out
}
