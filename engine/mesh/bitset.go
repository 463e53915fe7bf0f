// Package mesh implements the per-chunk binary greedy mesher: ChunkBitset
// (§4.3), PlaneExtractor (§4.4), GreedyPacker (§4.5), and MeshAssembler
// (§4.6), wired together by a parallel Driver (§4.2, §5).
package mesh

import "voxelterrain/engine/voxel"

// ChunkSize is the edge length of the cubic region ChunkBitset processes.
const ChunkSize = 64

// SideMask records whether the neighbor voxel just outside a chunk's
// boundary is solid, for the row's two ends (depth -1 and depth 64).
type SideMask struct {
	Lo bool // neighbor at depth -1
	Hi bool // neighbor at depth 64
}

// ChunkBitset is per-chunk scratch: three 64x64 grids of 64-bit rows, one
// per axis, naming each by the coordinate its bit position encodes —
// RowsX's bit is the x coordinate, and so on — plus the side masks sampled
// from the ColumnStore just outside the chunk.
//
//	RowsX[z][y], bit = x   (faces perpendicular to X; width=z, height=y)
//	RowsY[x][z], bit = y   (faces perpendicular to Y; width=x, height=z)
//	RowsZ[x][y], bit = z   (faces perpendicular to Z; width=x, height=y)
//
// A ChunkBitset is allocated once per job tile and Filled fresh for each
// chunk it processes (Design Notes: scratch buffers are not reallocated
// per chunk).
type ChunkBitset struct {
	RowsX [ChunkSize][ChunkSize]uint64
	RowsY [ChunkSize][ChunkSize]uint64
	RowsZ [ChunkSize][ChunkSize]uint64

	SideX [ChunkSize][ChunkSize]SideMask
	SideY [ChunkSize][ChunkSize]SideMask
	SideZ [ChunkSize][ChunkSize]SideMask
}

// Clear resets every row and side mask to zero/false so the bitset can be
// reused for the next chunk.
func (b *ChunkBitset) Clear() {
	*b = ChunkBitset{}
}

// neighborBlocks reports whether the face toward world voxel (x,y,z) is
// hidden: either a solid voxel actually sits there, or — when
// seenFromAbove is set — the neighbor column's lowest stored surface
// guarantees the face can never be observed. The literal comparison
// `y < voxels.GetMin(x,z)` is preserved from the source terrain generator
// (spec §9 Open Question) for both horizontal neighbors and the
// beneath-the-column case (where (x,z) is the voxel's own column). A
// neighbor outside the world footprint is empty and never hides a face.
func neighborBlocks(store *voxel.ColumnStore, seenFromAbove bool, x, y, z int) bool {
	inRange := x >= 0 && x < store.SizeX() && z >= 0 && z < store.SizeZ()
	if inRange && y >= 0 {
		if store.GetVoxel(x, y, z) != 0 {
			return true
		}
	}
	if !seenFromAbove {
		return false
	}
	if !inRange {
		return false
	}
	return int32(y) < store.GetMin(x, z)
}

// Fill populates b from store for the chunk at chunk coordinates
// (chunkX,chunkY,chunkZ), each chunk unit being ChunkSize world units.
func (b *ChunkBitset) Fill(store *voxel.ColumnStore, chunkX, chunkY, chunkZ int, seenFromAbove bool) {
	b.Clear()

	baseX, baseY, baseZ := chunkX*ChunkSize, chunkY*ChunkSize, chunkZ*ChunkSize

	for lz := 0; lz < ChunkSize; lz++ {
		wz := baseZ + lz
		if wz < 0 || wz >= store.SizeZ() {
			continue
		}
		for lx := 0; lx < ChunkSize; lx++ {
			wx := baseX + lx
			if wx < 0 || wx >= store.SizeX() {
				continue
			}
			for _, v := range store.GetColumn(wx, wz) {
				ly := int(v.Y) - baseY
				if ly < 0 || ly >= ChunkSize {
					continue
				}
				b.RowsX[lz][ly] |= 1 << uint(lx)
				b.RowsY[lx][lz] |= 1 << uint(ly)
				b.RowsZ[lx][ly] |= 1 << uint(lz)
			}
		}
	}

	for z := 0; z < ChunkSize; z++ {
		for y := 0; y < ChunkSize; y++ {
			b.SideX[z][y] = SideMask{
				Lo: neighborBlocks(store, seenFromAbove, baseX-1, baseY+y, baseZ+z),
				Hi: neighborBlocks(store, seenFromAbove, baseX+ChunkSize, baseY+y, baseZ+z),
			}
		}
	}
	for x := 0; x < ChunkSize; x++ {
		for z := 0; z < ChunkSize; z++ {
			b.SideY[x][z] = SideMask{
				Lo: neighborBlocks(store, seenFromAbove, baseX+x, baseY-1, baseZ+z),
				Hi: neighborBlocks(store, seenFromAbove, baseX+x, baseY+ChunkSize, baseZ+z),
			}
		}
	}
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			b.SideZ[x][y] = SideMask{
				Lo: neighborBlocks(store, seenFromAbove, baseX+x, baseY+y, baseZ-1),
				Hi: neighborBlocks(store, seenFromAbove, baseX+x, baseY+y, baseZ+ChunkSize),
			}
		}
	}
}
