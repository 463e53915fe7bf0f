// Package voxelterrain wires the meshing pipeline (engine/mesh) and the
// culling pipeline (engine/cull) behind one lifecycle object: Context.
package voxelterrain

import (
	"context"

	"github.com/google/uuid"

	"voxelterrain/engine/cull"
	"voxelterrain/engine/mesh"
	"voxelterrain/engine/packed"
	"voxelterrain/engine/voxel"
)

// Shader parameter names the vertex/fragment/compute stages bind to
// (spec §6 "Shader parameter names"). Exported so renderer code can look
// them up without retyping the contract.
const (
	ParamCameraPosition   = "cameraPosition"
	ParamCameraFarPlane   = "cameraFarPlane"
	ParamCameraLeftPlane  = "cameraLeftPlane"
	ParamCameraRightPlane = "cameraRightPlane"
	ParamCameraDownPlane  = "cameraDownPlane"
	ParamCameraUpPlane    = "cameraUpPlane"
	ParamMeshes           = "meshes"
	ParamCommands         = "commands"
	ParamFaces            = "faces"
)

// Config bundles the driver tunables a Context is constructed with (spec
// §6 "Tunables"). Zero values fall back to the spec's stated defaults.
type Config struct {
	MaxHorizontalSize     int
	JobHorizontalSize     int
	MergeNormalsThreshold int
	SeenFromAbove         bool
	Merge                 mesh.MergeIdentifier
	Workers               int
	Logger                Logger
}

func (c Config) meshConfig() mesh.Config {
	return mesh.Config{
		JobHorizontalSize:     c.JobHorizontalSize,
		MaxHorizontalSize:     c.MaxHorizontalSize,
		MergeNormalsThreshold: c.MergeNormalsThreshold,
		SeenFromAbove:         c.SeenFromAbove,
		Merge:                 c.Merge,
		Workers:               c.Workers,
		Logger:                c.Logger,
	}
}

// Context is the process-wide handle the spec's Design Notes describe as
// a "voxel data singleton" (indices buffer, counter buffer, shader
// parameter ids): here, an explicitly constructed and disposed object
// rather than global state, holding the published face/mesh tables and
// the generation id that identifies them.
//
// A Context may be published at most once; Dispose is idempotent and
// safe to call on a Context that was never published.
type Context struct {
	cfg    Config
	log    Logger
	driver *mesh.Driver

	published  bool
	disposed   bool
	generation uuid.UUID

	bounds Bounds
	result mesh.Result
}

// NewContext validates cfg and returns an unpublished Context.
func NewContext(cfg Config) (*Context, error) {
	if cfg.MaxHorizontalSize == 0 {
		cfg.MaxHorizontalSize = 64
	}
	if cfg.MergeNormalsThreshold == 0 {
		cfg.MergeNormalsThreshold = 256
	}

	driver, err := mesh.NewDriver(cfg.meshConfig())
	if err != nil {
		return nil, &ConfigurationError{Field: "mesh.Config", Reason: err.Error()}
	}

	return &Context{
		cfg:    cfg,
		log:    withLogger(cfg.Logger),
		driver: driver,
	}, nil
}

// Publish meshes columns and stores the result as the Context's current
// published state (spec §6 "To the terrain generator", §5 "Ordering" —
// either nothing is published or the complete set is). Publishing twice
// on the same Context is a StateError; construct a new Context instead
// (spec §7 "StateError").
func (c *Context) Publish(ctx context.Context, bounds Bounds, columns *voxel.ColumnStore) error {
	if c.disposed {
		return &StateError{Op: "Publish", Reason: "Context is disposed"}
	}
	if c.published {
		return &StateError{Op: "Publish", Reason: "Context already published once"}
	}

	result, err := c.driver.Run(ctx, columns)
	if err != nil {
		return err
	}

	c.bounds = bounds
	c.result = result
	c.generation = uuid.New()
	c.published = true
	c.log.Infof("published generation %s: %d faces, %d meshes", c.generation, len(result.Faces), len(result.Meshes))
	return nil
}

// Published reports whether Publish has completed successfully.
func (c *Context) Published() bool { return c.published }

// Generation is the id of the currently published state, changing on
// every successful Publish. The zero UUID means nothing has published
// yet.
func (c *Context) Generation() uuid.UUID { return c.generation }

// Bounds returns the world-space box passed to Publish.
func (c *Context) Bounds() Bounds { return c.bounds }

// Faces and Meshes expose the flattened global tables produced by
// Publish, ready for GPU upload (spec §3, §6 ParamFaces/ParamMeshes).
func (c *Context) Faces() []packed.Face  { return c.result.Faces }
func (c *Context) Meshes() []packed.Mesh { return c.result.Meshes }

// Padded returns Meshes padded to a multiple of
// cull.TerrainCullingGroupSize with "none" entries, as the culling
// dispatch requires (spec §4.7 "Padding").
func (c *Context) Padded() []packed.Mesh {
	meshes := c.result.Meshes
	rem := len(meshes) % cull.TerrainCullingGroupSize
	if rem == 0 {
		return meshes
	}
	pad := cull.TerrainCullingGroupSize - rem
	out := make([]packed.Mesh, len(meshes), len(meshes)+pad)
	copy(out, meshes)
	for i := 0; i < pad; i++ {
		out = append(out, packed.Mesh{Normal: packed.NormalNone})
	}
	return out
}

// Dispose releases the Context's published state. Idempotent: safe to
// call more than once, and safe on a Context that never published (spec
// §5 "Shared-resource policy").
func (c *Context) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.published = false
	c.result = mesh.Result{}
	c.log.Infof("disposed generation %s", c.generation)
}
