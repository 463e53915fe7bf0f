package voxel

import "testing"

func TestColumnStoreBasics(t *testing.T) {
	// 2x1 world: column (0,0) has voxels at y=0,1; column (1,0) is empty.
	voxels := []Voxel{{Y: 0, ID: 1}, {Y: 1, ID: 1}}
	startIndex := []int32{0, 2, 2}

	cs, err := NewColumnStore(2, 1, voxels, startIndex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cs.GetVoxel(0, 0, 0); got != 1 {
		t.Errorf("GetVoxel(0,0,0) = %d, want 1", got)
	}
	if got := cs.GetVoxel(0, 1, 0); got != 1 {
		t.Errorf("GetVoxel(0,1,0) = %d, want 1", got)
	}
	if got := cs.GetVoxel(0, 2, 0); got != 0 {
		t.Errorf("GetVoxel(0,2,0) = %d, want 0", got)
	}
	if got := cs.GetVoxel(1, 0, 0); got != 0 {
		t.Errorf("GetVoxel(1,0,0) = %d, want 0", got)
	}

	if got := cs.GetMin(0, 0); got != 0 {
		t.Errorf("GetMin(0,0) = %d, want 0", got)
	}
	if got := cs.GetMax(0, 0); got != 1 {
		t.Errorf("GetMax(0,0) = %d, want 1", got)
	}
	if got := cs.GetMin(1, 0); got != PosInf {
		t.Errorf("GetMin(1,0) = %d, want PosInf", got)
	}
	if got := cs.GetMax(1, 0); got != NegInf {
		t.Errorf("GetMax(1,0) = %d, want NegInf", got)
	}
}

func TestColumnStoreRejectsZeroID(t *testing.T) {
	voxels := []Voxel{{Y: 0, ID: 0}}
	startIndex := []int32{0, 1}
	if _, err := NewColumnStore(1, 1, voxels, startIndex); err == nil {
		t.Fatal("expected error for id=0")
	}
}

func TestColumnStoreRejectsUnsorted(t *testing.T) {
	voxels := []Voxel{{Y: 1, ID: 1}, {Y: 0, ID: 1}}
	startIndex := []int32{0, 2}
	if _, err := NewColumnStore(1, 1, voxels, startIndex); err == nil {
		t.Fatal("expected error for unsorted column")
	}
}

func TestBuildFromHeightMapFlat(t *testing.T) {
	// 3x3 flat plateau at height 5: every column keeps exactly its surface voxel.
	sizeX, sizeZ := 3, 3
	height := make([]int32, sizeX*sizeZ)
	id := make([]uint8, sizeX*sizeZ)
	for i := range height {
		height[i] = 5
		id[i] = 7
	}

	cs, err := BuildFromHeightMap(sizeX, sizeZ, height, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for z := 0; z < sizeZ; z++ {
		for x := 0; x < sizeX; x++ {
			col := cs.GetColumn(x, z)
			if len(col) != 1 {
				t.Fatalf("column (%d,%d): got %d voxels, want 1", x, z, len(col))
			}
			if col[0].Y != 5 || col[0].ID != 7 {
				t.Fatalf("column (%d,%d): got %+v, want y=5 id=7", x, z, col[0])
			}
		}
	}
}

func TestBuildFromHeightMapStep(t *testing.T) {
	// 2x1 world: a step down from height 3 (x=0) to height 1 (x=1).
	sizeX, sizeZ := 2, 1
	height := []int32{3, 1}
	id := []uint8{9, 9}

	cs, err := BuildFromHeightMap(sizeX, sizeZ, height, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Column x=0: neighbor min is min(edge=2, x=1 -> 1, edge=2, edge=2) = 1.
	// So voxels span [2,3].
	col0 := cs.GetColumn(0, 0)
	if len(col0) != 2 || col0[0].Y != 2 || col0[1].Y != 3 {
		t.Fatalf("column (0,0) = %+v, want y in [2,3]", col0)
	}

	// Column x=1: neighbors are all >= 0 (edge treated as h-1=0, x=0 -> 3),
	// min neighbor = 0, so voxels span [1,1].
	col1 := cs.GetColumn(1, 0)
	if len(col1) != 1 || col1[0].Y != 1 {
		t.Fatalf("column (1,0) = %+v, want y=[1]", col1)
	}
}
