// Package knowledge fans a research query out to several independent
// providers (online search engines and the agent's long-term memory) and
// merges their answers into one labelled report.
//
// A failing, panicking or slow provider never affects its siblings: every
// provider contributes exactly one Section, either with content or with the
// error it produced. Disabled providers are skipped without being attempted.
package knowledge
