package voxelterrain

import "voxelterrain/engine/logging"

// Logger and its default/no-op implementations live in engine/logging so
// engine/mesh and engine/cull can take a Logger field without importing
// this root package back. Aliased here (not wrapped) so existing callers
// of voxelterrain.Logger / voxelterrain.NewDefaultLogger keep working
// unchanged.
type (
	Logger        = logging.Logger
	DefaultLogger = logging.DefaultLogger
)

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return logging.NewDefaultLogger(prefix, debug)
}

func NewNopLogger() Logger { return logging.NewNopLogger() }

// withLogger returns l, or a no-op logger if l is nil. Every component that
// accepts a Logger funnels its field through this so internal call sites
// never need a nil check.
func withLogger(l Logger) Logger { return logging.Or(l) }
