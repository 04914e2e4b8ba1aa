// Package media defines the contracts the task engine consumes from the
// download, conversion, and effect-processing subsystems, along with the
// option types that travel with queued tasks and the error taxonomy stages
// report failures through.
//
// Implementations live in the ytdl and ffmpegx subpackages; the engine only
// ever sees the interfaces declared here so tests can substitute fakes.
package media
