// Package main hosts the slowjams CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the worker engine in-process: run
// starts the engine and processes the queue, add records work for a later
// run, and the queue subcommands edit the journal directly while no engine
// holds the lock. Configuration resolution and journal locking live in the
// shared command context so subcommands stay declarative.
package main
