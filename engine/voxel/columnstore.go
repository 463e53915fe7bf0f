// Package voxel holds the read-only sparse voxel container the meshing
// pipeline consumes: ColumnStore (spec §3, §4.1).
package voxel

import (
	"fmt"
	"math"
	"sort"
)

// Coordinate limits the packed Face format can represent (spec §3).
const (
	MaxXZ = 8191 // 2^13 - 1
	MaxY  = 511  // 2^9 - 1
)

// Voxel is one (y, id) entry within a column. Id is never 0 inside a
// ColumnStore; 0 is reserved to mean "not a merge target".
type Voxel struct {
	Y  uint16
	ID uint8
}

// Sentinels returned by GetMin/GetMax for an empty column.
const (
	PosInf = math.MaxInt32
	NegInf = math.MinInt32
)

// ColumnStore is a flat, immutable array of (y,id) pairs plus a
// sizeX*sizeZ+1 prefix of start offsets: column k occupies
// [StartIndex[k], StartIndex[k+1]) in Voxels.
type ColumnStore struct {
	sizeX, sizeZ int
	voxels       []Voxel
	startIndex   []int32
}

// NewColumnStore validates and wraps pre-built column data. Columns must
// already be sorted ascending by Y (the generator's job); ids must never be
// 0. Coordinates that would overflow the packed Face fields (spec §3) are
// rejected here rather than silently truncated downstream.
func NewColumnStore(sizeX, sizeZ int, voxels []Voxel, startIndex []int32) (*ColumnStore, error) {
	if sizeX <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("sizeX and sizeZ must be positive, got %d x %d", sizeX, sizeZ)
	}
	if sizeX-1 > MaxXZ || sizeZ-1 > MaxXZ {
		return nil, fmt.Errorf("world footprint %dx%d exceeds the packed coordinate range (max %d)", sizeX, sizeZ, MaxXZ+1)
	}
	if len(startIndex) != sizeX*sizeZ+1 {
		return nil, fmt.Errorf("startIndex length %d does not match sizeX*sizeZ+1=%d", len(startIndex), sizeX*sizeZ+1)
	}

	for k := 0; k < sizeX*sizeZ; k++ {
		lo, hi := startIndex[k], startIndex[k+1]
		if lo < 0 || hi < lo || int(hi) > len(voxels) {
			return nil, fmt.Errorf("column %d has invalid range [%d,%d) over %d voxels", k, lo, hi, len(voxels))
		}
		lastY := int32(-1)
		for i := lo; i < hi; i++ {
			v := voxels[i]
			if v.ID == 0 {
				return nil, fmt.Errorf("column %d contains id=0 at y=%d", k, v.Y)
			}
			if v.Y > MaxY {
				return nil, fmt.Errorf("column %d has y=%d beyond the packed range (max %d)", k, v.Y, MaxY)
			}
			if int32(v.Y) <= lastY {
				return nil, fmt.Errorf("column %d is not sorted ascending by y at voxel index %d", k, i)
			}
			lastY = int32(v.Y)
		}
	}

	return &ColumnStore{sizeX: sizeX, sizeZ: sizeZ, voxels: voxels, startIndex: startIndex}, nil
}

// SizeX and SizeZ return the world footprint in columns.
func (s *ColumnStore) SizeX() int { return s.sizeX }
func (s *ColumnStore) SizeZ() int { return s.sizeZ }

func (s *ColumnStore) columnIndex(x, z int) int { return z*s.sizeX + x }

// GetColumn returns the half-open slice of (y,id) pairs for (x,z), sorted
// ascending by y. Out-of-range (x,z) is a programmer error: callers must
// bounds-check first.
func (s *ColumnStore) GetColumn(x, z int) []Voxel {
	k := s.columnIndex(x, z)
	return s.voxels[s.startIndex[k]:s.startIndex[k+1]]
}

// GetVoxel returns the id stored at (x,y,z), or 0 if absent. The column is
// sorted, so lookup is a binary search rather than a linear scan.
func (s *ColumnStore) GetVoxel(x, y, z int) uint8 {
	col := s.GetColumn(x, z)
	i := sort.Search(len(col), func(i int) bool { return int(col[i].Y) >= y })
	if i < len(col) && int(col[i].Y) == y {
		return col[i].ID
	}
	return 0
}

// GetMin returns the lowest y present in column (x,z), or PosInf if empty.
func (s *ColumnStore) GetMin(x, z int) int32 {
	col := s.GetColumn(x, z)
	if len(col) == 0 {
		return PosInf
	}
	return int32(col[0].Y)
}

// GetMax returns the highest y present in column (x,z), or NegInf if empty.
func (s *ColumnStore) GetMax(x, z int) int32 {
	col := s.GetColumn(x, z)
	if len(col) == 0 {
		return NegInf
	}
	return int32(col[len(col)-1].Y)
}

// BuildFromHeightMap constructs a ColumnStore from a per-column surface
// height and id, applying the "sides-from-above" trim (spec §4.1): a
// column only needs voxels from just above its lowest 4-neighbor surface up
// to its own surface, because nothing below that is ever visible. Neighbors
// outside the grid are treated as one lower than the column itself, which
// guarantees a side face along the world edge.
//
// hN is clamped to be at most height-1: on perfectly flat ground every
// neighbor reports hN == h, and a literal [hN+1, h] would be empty and drop
// the one voxel whose top face every observer above can see. Clamping keeps
// that guarantee without changing the exposed-side-wall behavior the trim
// exists for.
func BuildFromHeightMap(sizeX, sizeZ int, height []int32, id []uint8) (*ColumnStore, error) {
	if len(height) != sizeX*sizeZ || len(id) != sizeX*sizeZ {
		return nil, fmt.Errorf("height/id length must equal sizeX*sizeZ=%d", sizeX*sizeZ)
	}

	idx := func(x, z int) int { return z*sizeX + x }
	neighborHeight := func(x, z, h int32) int32 {
		if x < 0 || x >= sizeX || z < 0 || z >= sizeZ {
			return h - 1
		}
		return height[idx(x, z)]
	}

	startIndex := make([]int32, sizeX*sizeZ+1)
	var voxels []Voxel

	for z := 0; z < sizeZ; z++ {
		for x := 0; x < sizeX; x++ {
			k := idx(x, z)
			h := height[k]

			hN := neighborHeight(x-1, z, h)
			if v := neighborHeight(x+1, z, h); v < hN {
				hN = v
			}
			if v := neighborHeight(x, z-1, h); v < hN {
				hN = v
			}
			if v := neighborHeight(x, z+1, h); v < hN {
				hN = v
			}

			lo := hN + 1
			if lo > h {
				lo = h
			}

			for y := lo; y <= h; y++ {
				voxels = append(voxels, Voxel{Y: uint16(y), ID: id[k]})
			}
			startIndex[k+1] = int32(len(voxels))
		}
	}

	return NewColumnStore(sizeX, sizeZ, voxels, startIndex)
}
