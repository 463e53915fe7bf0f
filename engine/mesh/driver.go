package mesh

import (
	"context"
	"fmt"
	"sync"

	"voxelterrain/engine/errs"
	"voxelterrain/engine/logging"
	"voxelterrain/engine/packed"
	"voxelterrain/engine/voxel"
)

// Config is the parallel driver's tunables (spec §6 "Tunables").
type Config struct {
	// JobHorizontalSize is the horizontal extent of one parallel unit.
	// 0 means "unlimited" — the whole world is a single job tile.
	JobHorizontalSize int
	// MaxHorizontalSize is the horizontal extent of a mesh tile, the
	// unit that becomes one directional-mesh family. Must be positive;
	// voxelterrain.NewContext substitutes 64 for 0.
	MaxHorizontalSize int
	// MergeNormalsThreshold is the per-mesh-tile face-count threshold
	// below which the six directional heads collapse into one "any"
	// mesh, clamped to MaxFacesPerMesh. 0 disables merging here;
	// voxelterrain.NewContext substitutes 256 for 0.
	MergeNormalsThreshold int
	// SeenFromAbove enables the terrain-only trim of hidden faces: a face
	// whose neighbor cell lies just outside the current chunk is dropped
	// when that cell is below the lowest stored voxel of its column. Faces
	// whose neighbor cell lies inside the same chunk are decided by the
	// solid bits alone and are not trimmed, and a neighbor outside the
	// world footprint never hides a face.
	SeenFromAbove bool
	// Merge is the generic merge strategy (spec §9); nil defaults to
	// IdentityMerger.
	Merge MergeIdentifier
	// Workers bounds how many job tiles run concurrently. <= 0 allows up
	// to 64 job tiles at once.
	Workers int
	// Logger receives job-tile start/finish (Debugf) and capacity-bug
	// (Errorf) diagnostics; nil defaults to a no-op logger.
	Logger logging.Logger
}

func (c Config) validate() error {
	if c.MaxHorizontalSize <= 0 {
		return &errs.ConfigurationError{Field: "MaxHorizontalSize", Reason: fmt.Sprintf("must be positive, got %d", c.MaxHorizontalSize)}
	}
	if c.MergeNormalsThreshold < 0 {
		return &errs.ConfigurationError{Field: "MergeNormalsThreshold", Reason: fmt.Sprintf("must be non-negative, got %d", c.MergeNormalsThreshold)}
	}
	return nil
}

// Result is the flattened output of a full meshing pass: the global face
// and mesh tables ready for GPU upload (spec §3).
type Result struct {
	Faces  []packed.Face
	Meshes []packed.Mesh
}

// Driver runs the two-level tiling described in spec §4.2 and §5: job
// tiles in parallel, mesh tiles sequentially within a job tile, chunks
// sequentially within a mesh tile. The shape (thread pool over
// independent units of work, single-threaded join-then-flatten) is
// grounded on the teacher pack's worker-pool pattern
// (dantero-ps-mini-mc-go/internal/meshing/pool.go).
type Driver struct {
	cfg Config
	log logging.Logger
}

// NewDriver validates cfg and returns a ready Driver.
func NewDriver(cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Merge == nil {
		cfg.Merge = IdentityMerger
	}
	return &Driver{cfg: cfg, log: logging.Or(cfg.Logger)}, nil
}

type jobTile struct {
	x0, z0, x1, z1 int // column bounds, half-open
}

// Run meshes the entire ColumnStore and returns the flattened global
// tables. Cancelling ctx discards partial results without mutating any
// shared state (spec §5 "Cancellation").
func (d *Driver) Run(ctx context.Context, store *voxel.ColumnStore) (Result, error) {
	tiles := d.jobTiles(store)

	type tileOutput struct {
		faces  []packed.Face
		meshes []packed.Mesh
	}
	outputs := make([]tileOutput, len(tiles))

	sem := make(chan struct{}, d.workerLimit())
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for i, tile := range tiles {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, tile jobTile) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			d.log.Debugf("job tile %d %v starting", i, tile)
			faces, meshes, err := d.runJobTile(store, tile)
			if err != nil {
				if _, ok := err.(*errs.CapacityExceeded); ok {
					d.log.Errorf("job tile %d %v hit the face capacity bug: %v", i, tile, err)
				} else {
					d.log.Errorf("job tile %d %v failed: %v", i, tile, err)
				}
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			d.log.Debugf("job tile %d %v done: %d faces, %d meshes", i, tile, len(faces), len(meshes))
			outputs[i] = tileOutput{faces: faces, meshes: meshes}
		}(i, tile)
	}
	wg.Wait()

	if firstErr != nil {
		return Result{}, firstErr
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	// Single-threaded flatten: job tiles contributed face/mesh tables
	// with StartFace relative to their own tile; rebase each into the
	// global tables in tile order.
	var result Result
	for _, out := range outputs {
		base := uint32(len(result.Faces))
		result.Faces = append(result.Faces, out.faces...)
		for _, m := range out.meshes {
			m.StartFace += base
			result.Meshes = append(result.Meshes, m)
		}
	}
	return result, nil
}

func (d *Driver) workerLimit() int {
	if d.cfg.Workers > 0 {
		return d.cfg.Workers
	}
	return 64
}

func (d *Driver) jobTiles(store *voxel.ColumnStore) []jobTile {
	size := d.cfg.JobHorizontalSize
	if size <= 0 {
		return []jobTile{{x0: 0, z0: 0, x1: store.SizeX(), z1: store.SizeZ()}}
	}

	var tiles []jobTile
	for z0 := 0; z0 < store.SizeZ(); z0 += size {
		z1 := z0 + size
		if z1 > store.SizeZ() {
			z1 = store.SizeZ()
		}
		for x0 := 0; x0 < store.SizeX(); x0 += size {
			x1 := x0 + size
			if x1 > store.SizeX() {
				x1 = store.SizeX()
			}
			tiles = append(tiles, jobTile{x0: x0, z0: z0, x1: x1, z1: z1})
		}
	}
	return tiles
}

// runJobTile processes one job tile end to end: build the dense id
// table, then mesh every mesh tile it contains, rebasing each mesh tile's
// local face/mesh tables into the job tile's own flat tables.
func (d *Driver) runJobTile(store *voxel.ColumnStore, tile jobTile) ([]packed.Face, []packed.Mesh, error) {
	ids := NewIDIndex()
	for z := tile.z0; z < tile.z1; z++ {
		for x := tile.x0; x < tile.x1; x++ {
			for _, v := range store.GetColumn(x, z) {
				ids.IndexOf(d.cfg.Merge(v.ID))
			}
		}
	}
	if ids.Count() == 0 {
		return nil, nil, nil
	}

	bitset := &ChunkBitset{}
	planes := NewPlanes(ids.Count())

	var jobFaces []packed.Face
	var jobMeshes []packed.Mesh

	meshSize := d.cfg.MaxHorizontalSize
	for mz0 := tile.z0; mz0 < tile.z1; mz0 += meshSize {
		mz1 := mz0 + meshSize
		if mz1 > tile.z1 {
			mz1 = tile.z1
		}
		for mx0 := tile.x0; mx0 < tile.x1; mx0 += meshSize {
			mx1 := mx0 + meshSize
			if mx1 > tile.x1 {
				mx1 = tile.x1
			}

			faces, meshes, err := d.runMeshTile(store, ids, bitset, planes, mx0, mz0, mx1, mz1)
			if err != nil {
				return nil, nil, err
			}
			base := uint32(len(jobFaces))
			jobFaces = append(jobFaces, faces...)
			for _, m := range meshes {
				m.StartFace += base
				jobMeshes = append(jobMeshes, m)
			}
		}
	}

	return jobFaces, jobMeshes, nil
}

// runMeshTile meshes one mesh tile: every chunk in its (chunkX,chunkZ)
// columns, across the y range that tile's columns actually occupy.
func (d *Driver) runMeshTile(store *voxel.ColumnStore, ids *IDIndex, bitset *ChunkBitset, planes *Planes, x0, z0, x1, z1 int) ([]packed.Face, []packed.Mesh, error) {
	asm := NewAssembler(AssemblerConfig{MergeNormalsThreshold: d.cfg.MergeNormalsThreshold}, [2]int{x0, z0})

	chunkX0, chunkX1 := x0/ChunkSize, (x1+ChunkSize-1)/ChunkSize
	chunkZ0, chunkZ1 := z0/ChunkSize, (z1+ChunkSize-1)/ChunkSize

	for chunkZ := chunkZ0; chunkZ < chunkZ1; chunkZ++ {
		for chunkX := chunkX0; chunkX < chunkX1; chunkX++ {
			yMin, yMax, ok := columnYRange(store, chunkX, chunkZ, x0, z0, x1, z1)
			if !ok {
				continue
			}
			// Inclusive y bounds: chunk count is ceil((max-min+1)/64)
			// (spec §9 Open Question), i.e. chunkY ranges over
			// floor(min/64) .. floor(max/64).
			chunkY0 := floorDiv(yMin, ChunkSize)
			chunkY1 := floorDiv(yMax, ChunkSize)

			for chunkY := chunkY0; chunkY <= chunkY1; chunkY++ {
				if err := processChunk(store, d.cfg.Merge, d.cfg.SeenFromAbove, ids, bitset, planes, chunkX, chunkY, chunkZ, asm); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	faces, meshes := asm.Publish()
	return faces, meshes, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// columnYRange returns the min/max y actually occupied by any column in
// [x0,x1)x[z0,z1), clamped to the chunk at (chunkX,chunkZ). ok is false
// when that chunk's columns are entirely empty.
func columnYRange(store *voxel.ColumnStore, chunkX, chunkZ, x0, z0, x1, z1 int) (int, int, bool) {
	cx0, cx1 := chunkX*ChunkSize, (chunkX+1)*ChunkSize
	cz0, cz1 := chunkZ*ChunkSize, (chunkZ+1)*ChunkSize
	if cx0 < x0 {
		cx0 = x0
	}
	if cx1 > x1 {
		cx1 = x1
	}
	if cz0 < z0 {
		cz0 = z0
	}
	if cz1 > z1 {
		cz1 = z1
	}

	min, max := int(voxel.PosInf), int(voxel.NegInf)
	found := false
	for z := cz0; z < cz1; z++ {
		for x := cx0; x < cx1; x++ {
			lo, hi := store.GetMin(x, z), store.GetMax(x, z)
			if lo > hi {
				continue
			}
			found = true
			if int(lo) < min {
				min = int(lo)
			}
			if int(hi) > max {
				max = int(hi)
			}
		}
	}
	return min, max, found
}

// processChunk runs §4.3 -> §4.4 -> §4.5 -> §4.6 for a single chunk,
// feeding the resulting faces into asm grouped by normal.
func processChunk(store *voxel.ColumnStore, merge MergeIdentifier, seenFromAbove bool, ids *IDIndex, bitset *ChunkBitset, planes *Planes, chunkX, chunkY, chunkZ int, asm *Assembler) error {
	bitset.Fill(store, chunkX, chunkY, chunkZ, seenFromAbove)
	planes.Clear()
	Extract(bitset, store, merge, ids, chunkX*ChunkSize, chunkY*ChunkSize, chunkZ*ChunkSize, planes)

	var buckets [numNormals][]packed.Face
	baseX, baseY, baseZ := chunkX*ChunkSize, chunkY*ChunkSize, chunkZ*ChunkSize

	PackPlanes(planes, func(sign, axis, idx, depth int, raw RawFace) {
		color := ids.ID(idx)
		f := faceFromRaw(sign, axis, raw, baseX, baseY, baseZ, color)
		n := normalOf(sign, axis)
		buckets[n] = append(buckets[n], f)
	})

	for sign := 0; sign < 2; sign++ {
		for axis := 0; axis < 3; axis++ {
			n := normalOf(sign, axis)
			if len(buckets[n]) == 0 {
				continue
			}
			if err := asm.AddChunkFaces(sign, axis, buckets[n]); err != nil {
				return err
			}
		}
	}
	return nil
}
