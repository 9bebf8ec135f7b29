// Package journal provides durable, append-only task lifecycle records:
// one "started" entry per task, any number of "interim" updates and exactly
// one "final" entry. Memory keeps entries in process, File writes one
// human-readable log file per task and SQLite stores entries in a table.
package journal
