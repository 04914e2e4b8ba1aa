// Package engine coordinates queue processing. It owns the worker pool,
// the lifecycle state machine, write-through persistence to the queue
// journal, and the observer fan-out that surfaces task updates to the CLI
// and notification layers.
package engine
