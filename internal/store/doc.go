// Package store persists known model files and their render jobs in SQLite.
//
// Every operation opens against a shared connection pool but commits
// immediately; no transaction spans more than one call and no advisory locks
// are taken. Concurrent orchestrator processes are out of scope; the
// pipeline guards mutating runs with a process-level file lock instead.
package store
