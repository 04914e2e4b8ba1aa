// Package queue holds the task data model and the state the worker engine
// coordinates around: a thread-safe in-memory task store, a priority queue
// of pending task IDs, and a SQLite journal that persists the store across
// restarts.
//
// The Store is the single authority for task state transitions. Every
// mutation happens under its lock, which is what guarantees that exactly
// one worker holds execution rights over a task and that terminal statuses
// are never overwritten. Callers outside the package only ever see Snapshot
// values; internal pointers never escape.
//
// The journal treats the database as a write-through mirror of the in-memory
// store rather than a long-term archive. Schema changes bump the version in
// schema.go; users clear the state directory to adopt a new schema.
package queue
