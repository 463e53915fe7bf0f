// Package errs holds the spec §7 error taxonomy shared across the
// meshing driver, the cull dispatcher, and the root Context: each is a
// small struct implementing error (not a sentinel), so callers can branch
// on kind with errors.As. Grounded on the teacher's own error style —
// fmt.Errorf-wrapped messages, no sentinel errors, no third-party error
// library anywhere in the pack — generalized into named kinds because §7
// needs callers to distinguish them, not just read a message.
package errs

import "fmt"

// ConfigurationError reports an invalid tunable, caught at construction time
// (e.g. maxHorizontalSize == 0, a negative merge threshold). A merge
// threshold above the per-mesh cap is not an error: it is clamped to the cap.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("voxelterrain: invalid configuration for %s: %s", e.Field, e.Reason)
}

// DataError reports invalid column data: an unsorted column, a coordinate
// that would overflow a packed bit field, or a stored voxel with id == 0.
// LoadAsset returns it when the decoded columns fail voxel.NewColumnStore's
// checks, so no ColumnStore is built from such data and meshing never sees
// it.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("voxelterrain: invalid column data: %s", e.Reason)
}

// CapacityExceeded reports a tile whose face count overflowed the
// assembler's counters before the per-mesh split kicked in. This should
// never happen with an enforced MaxFacesPerMesh cap; treat it as a bug,
// fail the frame, and keep the previous mesh set.
type CapacityExceeded struct {
	Tile  [2]int
	Count int
}

func (e *CapacityExceeded) Error() string {
	return fmt.Sprintf("voxelterrain: face capacity exceeded in tile %v: %d faces", e.Tile, e.Count)
}

// ResourceError reports a GPU buffer allocation failure. The renderer
// should fall back to its previous published state and retry allocation
// next frame.
type ResourceError struct {
	Resource string
	Cause    error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("voxelterrain: failed to allocate GPU resource %q: %v", e.Resource, e.Cause)
}

func (e *ResourceError) Unwrap() error { return e.Cause }

// StateError reports an operation attempted in the wrong lifecycle state,
// such as publishing twice on the same Context.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("voxelterrain: cannot %s: %s", e.Op, e.Reason)
}
