package voxelterrain

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/engine/voxel"
)

// Bounds is the world-space axis-aligned box a persisted asset covers,
// used by the scene manager for culling/streaming decisions (spec §6).
type Bounds struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
}

// Asset is the decoded form of the persisted voxel file (spec §6
// "Persisted voxel asset"): a world bounds plus the column data the
// meshing driver consumes directly.
type Asset struct {
	Bounds  Bounds
	Columns *voxel.ColumnStore
}

// LoadAsset reads the little-endian, sequential persisted format from r:
// six f32 bounds fields, sizeX/sizeZ/nVoxels as i32, nVoxels entries of
// (y int32, id u8), then a sizeX*sizeZ+1 i32 startIndex prefix.
//
// Grounded on vox.go's chunk-by-chunk binary.Read style in the teacher,
// simplified to this format's flat, non-chunked layout.
func LoadAsset(r io.Reader) (*Asset, error) {
	var bounds [6]float32
	if err := binary.Read(r, binary.LittleEndian, &bounds); err != nil {
		return nil, fmt.Errorf("voxelterrain: read bounds: %w", err)
	}

	var sizeX, sizeZ, nVoxels int32
	if err := binary.Read(r, binary.LittleEndian, &sizeX); err != nil {
		return nil, fmt.Errorf("voxelterrain: read sizeX: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &sizeZ); err != nil {
		return nil, fmt.Errorf("voxelterrain: read sizeZ: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nVoxels); err != nil {
		return nil, fmt.Errorf("voxelterrain: read nVoxels: %w", err)
	}
	if sizeX <= 0 || sizeZ <= 0 || nVoxels < 0 {
		return nil, fmt.Errorf("voxelterrain: malformed asset header sizeX=%d sizeZ=%d nVoxels=%d", sizeX, sizeZ, nVoxels)
	}

	voxels := make([]voxel.Voxel, nVoxels)
	for i := range voxels {
		var y int32
		var id uint8
		if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
			return nil, fmt.Errorf("voxelterrain: read voxel %d y: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("voxelterrain: read voxel %d id: %w", i, err)
		}
		voxels[i] = voxel.Voxel{Y: uint16(y), ID: id}
	}

	startIndex := make([]int32, int(sizeX)*int(sizeZ)+1)
	if err := binary.Read(r, binary.LittleEndian, &startIndex); err != nil {
		return nil, fmt.Errorf("voxelterrain: read startIndex prefix: %w", err)
	}

	columns, err := voxel.NewColumnStore(int(sizeX), int(sizeZ), voxels, startIndex)
	if err != nil {
		return nil, &DataError{Reason: err.Error()}
	}

	return &Asset{
		Bounds: Bounds{
			Center: mgl32.Vec3{bounds[0], bounds[1], bounds[2]},
			Size:   mgl32.Vec3{bounds[3], bounds[4], bounds[5]},
		},
		Columns: columns,
	}, nil
}

// SaveAsset writes a in the §6 persisted format. Columns must already
// satisfy voxel.NewColumnStore's invariants; SaveAsset does not
// re-validate them.
func SaveAsset(w io.Writer, a *Asset) error {
	bounds := [6]float32{
		a.Bounds.Center.X(), a.Bounds.Center.Y(), a.Bounds.Center.Z(),
		a.Bounds.Size.X(), a.Bounds.Size.Y(), a.Bounds.Size.Z(),
	}
	if err := binary.Write(w, binary.LittleEndian, bounds); err != nil {
		return fmt.Errorf("voxelterrain: write bounds: %w", err)
	}

	sizeX, sizeZ := int32(a.Columns.SizeX()), int32(a.Columns.SizeZ())
	var nVoxels int32
	for z := 0; z < int(sizeZ); z++ {
		for x := 0; x < int(sizeX); x++ {
			nVoxels += int32(len(a.Columns.GetColumn(x, z)))
		}
	}

	if err := binary.Write(w, binary.LittleEndian, sizeX); err != nil {
		return fmt.Errorf("voxelterrain: write sizeX: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, sizeZ); err != nil {
		return fmt.Errorf("voxelterrain: write sizeZ: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, nVoxels); err != nil {
		return fmt.Errorf("voxelterrain: write nVoxels: %w", err)
	}

	startIndex := make([]int32, int(sizeX)*int(sizeZ)+1)
	var offset int32
	for z := 0; z < int(sizeZ); z++ {
		for x := 0; x < int(sizeX); x++ {
			k := z*int(sizeX) + x
			startIndex[k] = offset
			for _, v := range a.Columns.GetColumn(x, z) {
				if err := binary.Write(w, binary.LittleEndian, int32(v.Y)); err != nil {
					return fmt.Errorf("voxelterrain: write voxel y: %w", err)
				}
				if err := binary.Write(w, binary.LittleEndian, v.ID); err != nil {
					return fmt.Errorf("voxelterrain: write voxel id: %w", err)
				}
				offset++
			}
		}
	}
	startIndex[len(startIndex)-1] = offset

	if err := binary.Write(w, binary.LittleEndian, startIndex); err != nil {
		return fmt.Errorf("voxelterrain: write startIndex prefix: %w", err)
	}
	return nil
}
