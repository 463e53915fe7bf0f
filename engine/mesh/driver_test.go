package mesh

import (
	"context"
	"testing"

	"voxelterrain/engine/errs"
	"voxelterrain/engine/packed"
	"voxelterrain/engine/voxel"
)

func mustStore(t *testing.T, sizeX, sizeZ int, voxels []voxel.Voxel, startIndex []int32) *voxel.ColumnStore {
	t.Helper()
	cs, err := voxel.NewColumnStore(sizeX, sizeZ, voxels, startIndex)
	if err != nil {
		t.Fatalf("NewColumnStore: %v", err)
	}
	return cs
}

func runDriver(t *testing.T, cfg Config, store *voxel.ColumnStore) Result {
	t.Helper()
	if cfg.MaxHorizontalSize == 0 {
		cfg.MaxHorizontalSize = 64
	}
	d, err := NewDriver(cfg)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	result, err := d.Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

// Scenario 1 (spec §8): a single voxel at (0,0,0), id=1.
func TestSingleVoxel(t *testing.T) {
	store := mustStore(t, 1, 1, []voxel.Voxel{{Y: 0, ID: 1}}, []int32{0, 1})

	result := runDriver(t, Config{MergeNormalsThreshold: 0}, store)

	if len(result.Meshes) != 6 {
		t.Fatalf("got %d meshes, want 6", len(result.Meshes))
	}
	if len(result.Faces) != 6 {
		t.Fatalf("got %d faces, want 6", len(result.Faces))
	}
	for _, m := range result.Meshes {
		if m.FaceCount != 1 {
			t.Errorf("mesh normal=%d faceCount=%d, want 1", m.Normal, m.FaceCount)
		}
	}

	var posX *packed.Face
	for i := range result.Faces {
		f := result.Faces[i]
		if f.Normal == packed.NormalPosX {
			posX = &result.Faces[i]
		}
	}
	if posX == nil {
		t.Fatal("no +x face emitted")
	}
	want := packed.Face{X: 1, Z: 0, Y: 0, Width: 1, Height: 1, Normal: packed.NormalPosX, Color: 1}
	if *posX != want {
		t.Errorf("+x face = %+v, want %+v", *posX, want)
	}
}

// Scenario 2 (spec §8): flat 4x1x4 slab at y=0, id=2, merged into one mesh.
func TestFlatSlabMerged(t *testing.T) {
	sizeX, sizeZ := 4, 4
	var voxels []voxel.Voxel
	startIndex := make([]int32, sizeX*sizeZ+1)
	for k := 0; k < sizeX*sizeZ; k++ {
		voxels = append(voxels, voxel.Voxel{Y: 0, ID: 2})
		startIndex[k+1] = int32(len(voxels))
	}
	store := mustStore(t, sizeX, sizeZ, voxels, startIndex)

	result := runDriver(t, Config{MergeNormalsThreshold: 256}, store)

	if len(result.Meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(result.Meshes))
	}
	if result.Meshes[0].Normal != packed.NormalAny {
		t.Errorf("merged mesh normal = %d, want NormalAny", result.Meshes[0].Normal)
	}
	// Top 4x4 + bottom 4x4 + four 4x1 side strips.
	if result.Meshes[0].FaceCount != 6 {
		t.Errorf("merged mesh faceCount = %d, want 6", result.Meshes[0].FaceCount)
	}
}

// Scenario 2 variant: with seen-from-above, the bottom and side-below-grid
// faces disappear, leaving top(1)+4 side strips(1 each) = 5.
func TestFlatSlabSeenFromAbove(t *testing.T) {
	sizeX, sizeZ := 4, 4
	var voxels []voxel.Voxel
	startIndex := make([]int32, sizeX*sizeZ+1)
	for k := 0; k < sizeX*sizeZ; k++ {
		voxels = append(voxels, voxel.Voxel{Y: 0, ID: 2})
		startIndex[k+1] = int32(len(voxels))
	}
	store := mustStore(t, sizeX, sizeZ, voxels, startIndex)

	result := runDriver(t, Config{MergeNormalsThreshold: 256, SeenFromAbove: true}, store)

	total := uint32(0)
	for _, m := range result.Meshes {
		total += m.FaceCount
	}
	if total != 5 {
		t.Errorf("total faceCount = %d, want 5", total)
	}
}

// Scenario 3 (spec §8): two adjacent different-id voxels never merge across
// the shared boundary; 5 faces from each voxel minus the hidden shared pair.
func TestAdjacentDifferentIDs(t *testing.T) {
	sizeX, sizeZ := 2, 1
	voxels := []voxel.Voxel{{Y: 0, ID: 1}, {Y: 0, ID: 2}}
	startIndex := []int32{0, 1, 2}
	store := mustStore(t, sizeX, sizeZ, voxels, startIndex)

	result := runDriver(t, Config{MergeNormalsThreshold: 0}, store)

	total := 0
	for _, m := range result.Meshes {
		total += int(m.FaceCount)
	}
	if total != 10 {
		t.Fatalf("total faces = %d, want 10", total)
	}
}

// Scenario 4 (spec §8): a column of 3 voxels, same id, seen-from-above.
func TestColumnSeenFromAbove(t *testing.T) {
	store := mustStore(t, 1, 1,
		[]voxel.Voxel{{Y: 0, ID: 5}, {Y: 1, ID: 5}, {Y: 2, ID: 5}},
		[]int32{0, 3})

	result := runDriver(t, Config{MergeNormalsThreshold: 0, SeenFromAbove: true}, store)

	total := 0
	var topFace *packed.Face
	for mi := range result.Meshes {
		m := result.Meshes[mi]
		total += int(m.FaceCount)
		if m.Normal == packed.NormalPosY {
			topFace = &result.Faces[m.StartFace]
		}
	}
	if total != 5 {
		t.Fatalf("total faces = %d, want 5", total)
	}
	if topFace == nil {
		t.Fatal("no top face emitted")
	}
	want := packed.Face{X: 0, Z: 0, Y: 3, Width: 1, Height: 1, Normal: packed.NormalPosY, Color: 5}
	if *topFace != want {
		t.Errorf("top face = %+v, want %+v", *topFace, want)
	}
}

// Scenario 6 (spec §8): exercised directly against the Assembler, since a
// full 128x128 alternating-id world is unnecessary to prove the cap split.
func TestAssemblerCapSplit(t *testing.T) {
	asm := NewAssembler(AssemblerConfig{MergeNormalsThreshold: 0}, [2]int{0, 0})

	const total = packed.MaxFacesPerMesh + 1
	faces := make([]packed.Face, total)
	for i := range faces {
		faces[i] = packed.Face{X: 0, Y: 1, Z: uint16(i), Width: 1, Height: 1, Normal: packed.NormalPosY, Color: 1}
	}

	if err := asm.AddChunkFaces(SignPos, AxisY, faces); err != nil {
		t.Fatalf("AddChunkFaces: %v", err)
	}
	_, meshes := asm.Publish()

	if len(meshes) != 2 {
		t.Fatalf("got %d meshes, want 2", len(meshes))
	}
	if meshes[0].FaceCount != packed.MaxFacesPerMesh {
		t.Errorf("first mesh faceCount = %d, want %d", meshes[0].FaceCount, packed.MaxFacesPerMesh)
	}
	if meshes[1].FaceCount != 1 {
		t.Errorf("second mesh faceCount = %d, want 1", meshes[1].FaceCount)
	}
}

// TestAssemblerCapacityExceeded forces the room < 0 branch directly: a
// head's faceCount already past packed.MaxFacesPerMesh is an invariant
// violation AddChunkFaces can never produce on its own (it always finalizes
// a head before faceCount would exceed the cap), so the only way to reach
// it is to corrupt the head's state by hand before calling it.
func TestAssemblerCapacityExceeded(t *testing.T) {
	asm := NewAssembler(AssemblerConfig{MergeNormalsThreshold: 0}, [2]int{3, 7})
	normal := normalOf(SignPos, AxisY)
	asm.heads[normal].faceCount = packed.MaxFacesPerMesh + 1

	faces := []packed.Face{{X: 0, Y: 1, Z: 0, Width: 1, Height: 1, Normal: packed.NormalPosY, Color: 1}}
	err := asm.AddChunkFaces(SignPos, AxisY, faces)
	if err == nil {
		t.Fatal("AddChunkFaces: want CapacityExceeded, got nil")
	}
	var capErr *errs.CapacityExceeded
	if ce, ok := err.(*errs.CapacityExceeded); ok {
		capErr = ce
	} else {
		t.Fatalf("AddChunkFaces: got %T, want *errs.CapacityExceeded", err)
	}
	if capErr.Tile != [2]int{3, 7} {
		t.Errorf("CapacityExceeded.Tile = %v, want [3 7]", capErr.Tile)
	}
}
