// Package memory contains the long-term memory store used by agents.
//
// A Store composes an external similarity primitive (Index) and adds id
// generation, threshold search and bulk deletion on top of it. It never
// computes similarity itself: ChromemIndex delegates to chromem-go with an
// Embedder, KeywordIndex is a process-local token-overlap fallback used when
// no embedding model is configured.
//
// Stores are addressed by namespace through a Registry that opens each
// namespace at most once per process.
package memory
