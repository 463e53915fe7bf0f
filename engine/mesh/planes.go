package mesh

import "voxelterrain/engine/voxel"

// Axis indices into Planes.Data. These are an implementation choice, not a
// literal transcription of the spec's generic axis-numbering formula: each
// axis is handled by its own concrete loop below rather than a shared
// width/height-by-index computation.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// Sign indices into Planes.Data.
const (
	SignPos = 0
	SignNeg = 1
)

// Planes holds one 64(depth)x64(rowY) bit grid per (sign, axis, id): the
// dense intermediate the greedy packer consumes. Shape is
// Data[sign][axis][idIndex][depth][rowY], bit = rowX (the "width"
// coordinate), matching spec §4.4's "six contiguous groups of idCount x
// 64 x 64 words".
type Planes struct {
	IDCount int
	Data    [2][3][][ChunkSize][ChunkSize]uint64
}

// NewPlanes allocates a Planes sized for idCount distinct ids. Driver
// allocates one of these per job tile and reuses it across every chunk and
// mesh tile within that job tile (Design Notes: scratch buffers are
// allocated once per job tile).
func NewPlanes(idCount int) *Planes {
	p := &Planes{IDCount: idCount}
	for s := 0; s < 2; s++ {
		for a := 0; a < 3; a++ {
			p.Data[s][a] = make([][ChunkSize][ChunkSize]uint64, idCount)
		}
	}
	return p
}

// Clear zeros every plane so it can be reused for the next chunk.
func (p *Planes) Clear() {
	for s := range p.Data {
		for a := range p.Data[s] {
			for id := range p.Data[s][a] {
				p.Data[s][a][id] = [ChunkSize][ChunkSize]uint64{}
			}
		}
	}
}

func facesPositive(row uint64, sideHi bool) uint64 {
	var hi uint64
	if sideHi {
		hi = 1 << 63
	}
	shifted := (row >> 1) | hi
	return row &^ shifted
}

func facesNegative(row uint64, sideLo bool) uint64 {
	var lo uint64
	if sideLo {
		lo = 1
	}
	shifted := (row << 1) | lo
	return row &^ shifted
}

// MergeIdentifier is the generic merge strategy Design Notes calls for:
// it maps a voxel's stored id to the byte that decides whether two
// adjacent voxels can merge into one face. 0 always means "never merge".
// Plain terrain uses the identity; typed voxels with extra packed data
// would extract a material class here instead.
type MergeIdentifier func(id uint8) uint8

// IdentityMerger is the MergeIdentifier for terrain: the id byte is its
// own merge class.
func IdentityMerger(id uint8) uint8 { return id }

// Extract reads a filled ChunkBitset and scatters visible faces into
// planes, keyed by the dense index of merge(id). baseX/baseY/baseZ are the
// chunk's world origin, used to look up each face's material id.
func Extract(b *ChunkBitset, store *voxel.ColumnStore, merge MergeIdentifier, ids *IDIndex, baseX, baseY, baseZ int, planes *Planes) {
	// Faces perpendicular to X: row = RowsX[z][y], bit = x (depth).
	// width dim = z (rowX), height dim = y (rowY).
	for z := 0; z < ChunkSize; z++ {
		for y := 0; y < ChunkSize; y++ {
			row := b.RowsX[z][y]
			if row == 0 {
				continue
			}
			side := b.SideX[z][y]

			pos := facesPositive(row, side.Hi)
			for pos != 0 {
				depth := trailingZeros(pos)
				pos &^= 1 << uint(depth)
				id := store.GetVoxel(baseX+depth, baseY+y, baseZ+z)
				idx := ids.IndexOf(merge(id))
				planes.Data[SignPos][AxisX][idx][depth][y] |= 1 << uint(z)
			}
			neg := facesNegative(row, side.Lo)
			for neg != 0 {
				depth := trailingZeros(neg)
				neg &^= 1 << uint(depth)
				id := store.GetVoxel(baseX+depth, baseY+y, baseZ+z)
				idx := ids.IndexOf(merge(id))
				planes.Data[SignNeg][AxisX][idx][depth][y] |= 1 << uint(z)
			}
		}
	}

	// Faces perpendicular to Y: row = RowsY[x][z], bit = y (depth).
	// width dim = x (rowX), height dim = z (rowY).
	for x := 0; x < ChunkSize; x++ {
		for z := 0; z < ChunkSize; z++ {
			row := b.RowsY[x][z]
			if row == 0 {
				continue
			}
			side := b.SideY[x][z]

			pos := facesPositive(row, side.Hi)
			for pos != 0 {
				depth := trailingZeros(pos)
				pos &^= 1 << uint(depth)
				id := store.GetVoxel(baseX+x, baseY+depth, baseZ+z)
				idx := ids.IndexOf(merge(id))
				planes.Data[SignPos][AxisY][idx][depth][z] |= 1 << uint(x)
			}
			neg := facesNegative(row, side.Lo)
			for neg != 0 {
				depth := trailingZeros(neg)
				neg &^= 1 << uint(depth)
				id := store.GetVoxel(baseX+x, baseY+depth, baseZ+z)
				idx := ids.IndexOf(merge(id))
				planes.Data[SignNeg][AxisY][idx][depth][z] |= 1 << uint(x)
			}
		}
	}

	// Faces perpendicular to Z: row = RowsZ[x][y], bit = z (depth).
	// width dim = x (rowX), height dim = y (rowY).
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			row := b.RowsZ[x][y]
			if row == 0 {
				continue
			}
			side := b.SideZ[x][y]

			pos := facesPositive(row, side.Hi)
			for pos != 0 {
				depth := trailingZeros(pos)
				pos &^= 1 << uint(depth)
				id := store.GetVoxel(baseX+x, baseY+y, baseZ+depth)
				idx := ids.IndexOf(merge(id))
				planes.Data[SignPos][AxisZ][idx][depth][y] |= 1 << uint(x)
			}
			neg := facesNegative(row, side.Lo)
			for neg != 0 {
				depth := trailingZeros(neg)
				neg &^= 1 << uint(depth)
				id := store.GetVoxel(baseX+x, baseY+y, baseZ+depth)
				idx := ids.IndexOf(merge(id))
				planes.Data[SignNeg][AxisZ][idx][depth][y] |= 1 << uint(x)
			}
		}
	}
}
