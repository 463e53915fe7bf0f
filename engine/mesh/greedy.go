package mesh

import "math/bits"

// RawFace is one maximal rectangle emitted by the greedy packer, still in
// plane-local coordinates: x/y are the corner along the width/height
// dimensions, width/height are its extent, and depth is the coordinate
// along the plane's own axis.
type RawFace struct {
	X, Y, Width, Height, Depth int
}

// packPlane runs maximal-rectangle extraction over a single 64x64 bit
// plane (spec §4.5): scan rows top to bottom, and for every unconsumed run
// of set bits, extend it downward through identical runs in subsequent
// rows, consuming them as it goes.
//
// rows is mutated: extended rows have the consumed bits cleared so a later
// y never re-emits them. The starting row (y) is read once into a local
// copy and is not mutated — x only ever advances forward within it, so no
// bit in that row is visited twice within this call either.
func packPlane(rows *[ChunkSize]uint64, emit func(RawFace)) {
	for y := 0; y < ChunkSize; y++ {
		row := rows[y]
		x := bits.TrailingZeros64(row)
		for x < ChunkSize {
			width := bits.TrailingZeros64(^(row >> uint(x)))
			checkMask := maskRange(x, width)

			h := 1
			for y+h < ChunkSize && rows[y+h]&checkMask == checkMask {
				rows[y+h] &^= checkMask
				h++
			}

			emit(RawFace{X: x, Y: y, Width: width, Height: h})

			x += width
			if x < ChunkSize {
				x += bits.TrailingZeros64(row >> uint(x))
			}
		}
	}
}

func maskRange(x, width int) uint64 {
	return ((uint64(1) << uint(width)) - 1) << uint(x)
}

// PackPlanes runs packPlane over every (sign, axis, id, depth) plane
// populated by Extract, invoking emit once per maximal rectangle found.
// depth planes with no faces at all are skipped: a scan that stops at the
// first non-zero row decides emptiness, so packPlane only runs on planes
// that hold faces.
func PackPlanes(p *Planes, emit func(sign, axis, idx, depth int, face RawFace)) {
	for sign := 0; sign < 2; sign++ {
		for axis := 0; axis < 3; axis++ {
			for idx := 0; idx < p.IDCount; idx++ {
				for depth := 0; depth < ChunkSize; depth++ {
					plane := &p.Data[sign][axis][idx][depth]
					empty := true
					for _, r := range plane {
						if r != 0 {
							empty = false
							break
						}
					}
					if empty {
						continue
					}
					packPlane(plane, func(f RawFace) {
						f.Depth = depth
						emit(sign, axis, idx, depth, f)
					})
				}
			}
		}
	}
}
