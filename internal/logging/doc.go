// Package logging constructs the slog loggers used across slowjams and
// provides small attribute helpers so call sites stay terse. Two output
// formats are supported: a human-oriented console format and JSON for
// machine consumption. Loggers are always injected; nothing in this
// package is global.
package logging
