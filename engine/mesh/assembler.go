package mesh

import (
	"voxelterrain/engine/errs"
	"voxelterrain/engine/packed"

	"github.com/go-gl/mathgl/mgl32"
)

func mid(min, max [3]int32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(min[0]+max[0]) / 2,
		float32(min[1]+max[1]) / 2,
		float32(min[2]+max[2]) / 2,
	}
}

func half(min, max [3]int32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(max[0]-min[0]) / 2,
		float32(max[1]-min[1]) / 2,
		float32(max[2]-min[2]) / 2,
	}
}

// Normal indices used internally by the assembler; these line up with
// packed.NormalPosX..packed.NormalNegZ.
const (
	normalPosX = packed.NormalPosX
	normalNegX = packed.NormalNegX
	normalPosY = packed.NormalPosY
	normalNegY = packed.NormalNegY
	normalPosZ = packed.NormalPosZ
	normalNegZ = packed.NormalNegZ
	numNormals = 6
)

func normalOf(sign, axis int) uint8 {
	switch axis {
	case AxisX:
		if sign == SignPos {
			return normalPosX
		}
		return normalNegX
	case AxisY:
		if sign == SignPos {
			return normalPosY
		}
		return normalNegY
	default:
		if sign == SignPos {
			return normalPosZ
		}
		return normalNegZ
	}
}

// faceFromRaw converts a plane-local maximal rectangle into a packed.Face
// in world coordinates. depth is shifted +1 for positive normals so the
// quad lies on the voxel boundary (spec §3); the id lookup in Extract
// deliberately does not apply that shift, since it needs the solid
// voxel's own id, not its empty neighbor's.
func faceFromRaw(sign, axis int, raw RawFace, baseX, baseY, baseZ int, color uint8) packed.Face {
	depth := raw.Depth
	if sign == SignPos {
		depth++
	}

	var f packed.Face
	f.Normal = normalOf(sign, axis)
	f.Color = color

	switch axis {
	case AxisX: // width=z (raw.X), height=y (raw.Y)
		f.X = uint16(baseX + depth)
		f.Y = uint16(baseY + raw.Y)
		f.Z = uint16(baseZ + raw.X)
		f.Width = uint8(raw.Width)
		f.Height = uint8(raw.Height)
	case AxisY: // width=x (raw.X), height=z (raw.Y)
		f.X = uint16(baseX + raw.X)
		f.Y = uint16(baseY + depth)
		f.Z = uint16(baseZ + raw.Y)
		f.Width = uint8(raw.Width)
		f.Height = uint8(raw.Height)
	default: // AxisZ: width=x (raw.X), height=y (raw.Y)
		f.X = uint16(baseX + raw.X)
		f.Y = uint16(baseY + raw.Y)
		f.Z = uint16(baseZ + depth)
		f.Width = uint8(raw.Width)
		f.Height = uint8(raw.Height)
	}
	return f
}

// faceExtent returns the axis-aligned world box (in voxel units) a packed
// face covers, used to accumulate a mesh's center/size bounds.
func faceExtent(f packed.Face) (min, max [3]int32) {
	x, y, z := int32(f.X), int32(f.Y), int32(f.Z)
	w, h := int32(f.Width), int32(f.Height)
	min = [3]int32{x, y, z}
	switch f.Normal {
	case normalPosX, normalNegX:
		max = [3]int32{x, y + h, z + w}
	case normalPosY, normalNegY:
		max = [3]int32{x + w, y, z + h}
	default:
		max = [3]int32{x + w, y + h, z}
	}
	return min, max
}

// part is one arena-indexed node in a head's linked list of face ranges,
// referencing a contiguous [Start,End) slice of the assembler's flat face
// table (spec §4.6, §9 "Linked mesh parts"). Next == -1 terminates.
type part struct {
	Start, End int
	Next       int
}

// head is one normal's in-progress mesh: the most recently prepended
// part, its running face count, and its accumulated world bounds.
type head struct {
	partHead  int
	faceCount int
	min, max  [3]int32
	hasBounds bool
}

func emptyHead() head { return head{partHead: -1} }

func (h *head) extend(min, max [3]int32) {
	if !h.hasBounds {
		h.min, h.max = min, max
		h.hasBounds = true
		return
	}
	for i := 0; i < 3; i++ {
		if min[i] < h.min[i] {
			h.min[i] = min[i]
		}
		if max[i] > h.max[i] {
			h.max[i] = max[i]
		}
	}
}

// AssemblerConfig holds the assembler's tunables (spec §6 "Tunables").
type AssemblerConfig struct {
	MergeNormalsThreshold int
}

// Assembler groups faces emitted by the greedy packer into GPU meshes for
// one mesh tile (spec §4.6). Reset and reuse it across mesh tiles.
type Assembler struct {
	cfg   AssemblerConfig
	tile  [2]int
	faces []packed.Face
	parts []part
	heads [numNormals]head

	meshes []packed.Mesh
	outFaces []packed.Face
}

// NewAssembler constructs an Assembler for one mesh tile's worth of work.
// tile identifies the mesh tile (its (x0,z0) origin) purely for diagnostics:
// it's attached to any *errs.CapacityExceeded this Assembler returns.
func NewAssembler(cfg AssemblerConfig, tile [2]int) *Assembler {
	if cfg.MergeNormalsThreshold > packed.MaxFacesPerMesh {
		cfg.MergeNormalsThreshold = packed.MaxFacesPerMesh
	}
	a := &Assembler{cfg: cfg, tile: tile}
	a.Reset()
	return a
}

// Reset discards all accumulated state so the Assembler can process a new
// mesh tile.
func (a *Assembler) Reset() {
	a.faces = a.faces[:0]
	a.parts = a.parts[:0]
	for i := range a.heads {
		a.heads[i] = emptyHead()
	}
	a.meshes = nil
	a.outFaces = nil
}

func (a *Assembler) appendPart(normal uint8, start, end int) {
	a.parts = append(a.parts, part{Start: start, End: end, Next: a.heads[normal].partHead})
	a.heads[normal].partHead = len(a.parts) - 1
}

// finalize emits the current head for normal as a published mesh (walking
// its part list to flatten faces into outFaces), then resets the head.
func (a *Assembler) finalize(normal uint8) {
	h := &a.heads[normal]
	if h.faceCount == 0 {
		*h = emptyHead()
		return
	}

	start := len(a.outFaces)
	// The list is built tail-first (each new part is prepended), so
	// walking head -> next -> ... yields faces in reverse declaration
	// order; collect part indices then walk them back-to-front to
	// restore declaration order.
	var chain []int
	for i := h.partHead; i != -1; i = a.parts[i].Next {
		chain = append(chain, i)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		p := a.parts[chain[i]]
		a.outFaces = append(a.outFaces, a.faces[p.Start:p.End]...)
	}

	center := mid(h.min, h.max)
	size := half(h.min, h.max)
	a.meshes = append(a.meshes, packed.Mesh{
		Center:    center,
		Size:      size,
		Normal:    normal,
		FaceCount: uint32(h.faceCount),
		StartFace: uint32(start),
	})

	*h = emptyHead()
}

// AddChunkFaces appends the faces a single chunk produced for (sign,axis)
// to the tile's flat face list, splitting at the per-mesh cap as needed
// (spec §4.6 "Per-mesh face cap"). room == 0 is a legitimate boundary (the
// previous call filled a mesh to exactly the cap with no overflow yet); only
// room < 0 is the bug this guards against, since that can only happen if a
// head's faceCount was somehow pushed past packed.MaxFacesPerMesh without a
// finalize in between.
func (a *Assembler) AddChunkFaces(sign, axis int, faces []packed.Face) error {
	if len(faces) == 0 {
		return nil
	}
	normal := normalOf(sign, axis)
	remaining := faces

	for len(remaining) > 0 {
		h := &a.heads[normal]
		room := packed.MaxFacesPerMesh - h.faceCount
		if room < 0 {
			return &errs.CapacityExceeded{Tile: a.tile, Count: h.faceCount + len(remaining)}
		}

		batch := remaining
		overflow := false
		if len(batch) > room {
			batch = remaining[:room]
			overflow = true
		}

		start := len(a.faces)
		a.faces = append(a.faces, batch...)
		end := len(a.faces)
		a.appendPart(normal, start, end)

		var min, max [3]int32
		hasBounds := false
		for _, f := range batch {
			fmin, fmax := faceExtent(f)
			if !hasBounds {
				min, max = fmin, fmax
				hasBounds = true
				continue
			}
			for i := 0; i < 3; i++ {
				if fmin[i] < min[i] {
					min[i] = fmin[i]
				}
				if fmax[i] > max[i] {
					max[i] = fmax[i]
				}
			}
		}
		if hasBounds {
			h.extend(min, max)
		}
		h.faceCount += len(batch)

		if overflow {
			a.finalize(normal)
			remaining = remaining[len(batch):]
			continue
		}
		remaining = nil
	}
	return nil
}

// Publish finalizes every remaining head, applies the merge-threshold
// collapse (spec §4.6 "Merge threshold"), and returns the tile's flat face
// and mesh tables. Caller appends these into the global tables at the
// tile's own StartFace/mesh-index offset.
func (a *Assembler) Publish() ([]packed.Face, []packed.Mesh) {
	total := 0
	for i := 0; i < numNormals; i++ {
		total += a.heads[i].faceCount
	}

	if total > 0 && total < a.cfg.MergeNormalsThreshold {
		return a.publishMerged(total)
	}

	for n := uint8(0); n < numNormals; n++ {
		a.finalize(n)
	}
	return a.outFaces, a.meshes
}

// publishMerged collapses all six heads into a single normal="any" mesh
// whose bounds are the union of every head's bounds.
func (a *Assembler) publishMerged(total int) ([]packed.Face, []packed.Mesh) {
	start := len(a.outFaces)
	var min, max [3]int32
	hasBounds := false

	for n := 0; n < numNormals; n++ {
		h := &a.heads[n]
		if h.faceCount == 0 {
			continue
		}
		var chain []int
		for i := h.partHead; i != -1; i = a.parts[i].Next {
			chain = append(chain, i)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			p := a.parts[chain[i]]
			a.outFaces = append(a.outFaces, a.faces[p.Start:p.End]...)
		}
		if h.hasBounds {
			if !hasBounds {
				min, max = h.min, h.max
				hasBounds = true
			} else {
				for i := 0; i < 3; i++ {
					if h.min[i] < min[i] {
						min[i] = h.min[i]
					}
					if h.max[i] > max[i] {
						max[i] = h.max[i]
					}
				}
			}
		}
		*h = emptyHead()
	}

	a.meshes = append(a.meshes, packed.Mesh{
		Center:    mid(min, max),
		Size:      half(min, max),
		Normal:    packed.NormalAny,
		FaceCount: uint32(total),
		StartFace: uint32(start),
	})

	return a.outFaces, a.meshes
}
