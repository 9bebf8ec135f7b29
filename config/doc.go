// Package config loads the agenttask configuration.
//
// Configuration is read from a YAML file and layered over Default, so a
// file only needs the settings it changes. Values may reference environment
// variables with ${VAR_NAME}; unset variables expand to "".
//
// Durations use time.ParseDuration syntax:
//
//	agent:
//	  default_timeout: "600s"
//	code_execution:
//	  poll_interval: "100ms"
//
// A minimal file selecting Anthropic and a persistent vector memory:
//
//	model:
//	  provider: anthropic
//	  name: claude-sonnet-4-5
//	  api_key: "${ANTHROPIC_API_KEY}"
//	memory:
//	  backend: chromem
//	  dir: ./memory
//	  embedding_api_key: "${OPENAI_API_KEY}"
//	journal:
//	  backend: sqlite
//	  path: ./agenttask.db
package config
