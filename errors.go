package voxelterrain

import "voxelterrain/engine/errs"

// The five spec §7 error kinds live in engine/errs so engine/mesh and
// engine/cull can construct and return them directly without importing
// this root package (which itself imports both). These are plain type
// aliases, not new types: a *voxelterrain.ConfigurationError returned by
// mesh.NewDriver and one constructed here are the identical type.
type (
	ConfigurationError = errs.ConfigurationError
	DataError          = errs.DataError
	CapacityExceeded   = errs.CapacityExceeded
	ResourceError      = errs.ResourceError
	StateError         = errs.StateError
)
