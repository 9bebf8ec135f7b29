// Package model defines the provider‑agnostic abstractions for the language
// model an agent converses with.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface in sub-packages
// so agents remain decoupled from vendor SDKs.
package model
