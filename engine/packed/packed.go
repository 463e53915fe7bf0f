// Package packed holds the two GPU-resident wire types of the meshing
// pipeline: the 8-byte Face and the 32-byte Mesh. Both are immutable once
// written to the global face/mesh tables (spec §3) and round-trip exactly
// through Pack/Unpack (spec §8).
//
// The byte-packing style — fixed-size []byte, binary.LittleEndian, raw bit
// shifts for sub-word fields — is grounded on voxelrt/rt/bvh.BVHNode.ToBytes
// in the teacher repo, the pack's only example of hand-packing a GPU struct
// to bytes.
package packed

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Normal values 0..5 are the six axis signs (+X,-X,+Y,-Y,+Z,-Z by
// convention of the caller); 6 means "any" (a merged mesh); 7 is the
// "none/empty" padding sentinel, never rendered.
const (
	NormalPosX = 0
	NormalNegX = 1
	NormalPosY = 2
	NormalNegY = 3
	NormalPosZ = 4
	NormalNegZ = 5
	NormalAny  = 6
	NormalNone = 7
)

// MaxFacesPerMesh is the hard per-mesh face cap dictated by a 16-bit index
// buffer holding 6*MaxFacesPerMesh indices (spec §3, §6).
const MaxFacesPerMesh = 16384

// FaceByteSize is the packed wire size of a Face.
const FaceByteSize = 8

// MeshByteSize is the packed wire size of a Mesh.
const MeshByteSize = 32

// Face is the unpacked, easy-to-construct form of a single quad emitted by
// the greedy mesher. X/Z fit in 13 bits (0..8191), Y in 9 bits (0..511),
// Width/Height in [1,64], Normal in [0,7], Color in [0,255].
type Face struct {
	X, Z    uint16
	Y       uint16
	Width   uint8
	Height  uint8
	Normal  uint8
	Color   uint8
}

// Pack encodes f into its 8-byte wire form:
//
//	word0: x:13 | z:13                                    (6 bits reserved)
//	word1: y:9 | (width-1):6 | (height-1):6 | normal:3 | color:8
func (f Face) Pack() [FaceByteSize]byte {
	word0 := uint32(f.X&0x1FFF) | uint32(f.Z&0x1FFF)<<13
	word1 := uint32(f.Y&0x1FF) |
		uint32((f.Width-1)&0x3F)<<9 |
		uint32((f.Height-1)&0x3F)<<15 |
		uint32(f.Normal&0x7)<<21 |
		uint32(f.Color)<<24

	var out [FaceByteSize]byte
	binary.LittleEndian.PutUint32(out[0:4], word0)
	binary.LittleEndian.PutUint32(out[4:8], word1)
	return out
}

// UnpackFace decodes the 8-byte wire form produced by Face.Pack.
func UnpackFace(b [FaceByteSize]byte) Face {
	word0 := binary.LittleEndian.Uint32(b[0:4])
	word1 := binary.LittleEndian.Uint32(b[4:8])

	return Face{
		X:      uint16(word0 & 0x1FFF),
		Z:      uint16((word0 >> 13) & 0x1FFF),
		Y:      uint16(word1 & 0x1FF),
		Width:  uint8((word1>>9)&0x3F) + 1,
		Height: uint8((word1>>15)&0x3F) + 1,
		Normal: uint8((word1 >> 21) & 0x7),
		Color:  uint8((word1 >> 24) & 0xFF),
	}
}

// Mesh is the unpacked form of one directional (or merged "any") mesh.
// FaceCount fits in 29 bits (up to 2^29-1, far above MaxFacesPerMesh);
// StartFace is a plain 32-bit offset into the global face table.
type Mesh struct {
	Center    mgl32.Vec3
	Size      mgl32.Vec3
	Normal    uint8
	FaceCount uint32
	StartFace uint32
}

// Pack encodes m into its 32-byte wire form:
//
//	bytes 0..11:  center (3x f32)
//	bytes 12..15: data1 = normal:3 | faceCount:29
//	bytes 16..27: size (3x f32)
//	bytes 28..31: data2 = startFace:32
func (m Mesh) Pack() [MeshByteSize]byte {
	var out [MeshByteSize]byte

	binary.LittleEndian.PutUint32(out[0:4], math.Float32bits(m.Center.X()))
	binary.LittleEndian.PutUint32(out[4:8], math.Float32bits(m.Center.Y()))
	binary.LittleEndian.PutUint32(out[8:12], math.Float32bits(m.Center.Z()))

	data1 := uint32(m.Normal&0x7) | (m.FaceCount&0x1FFFFFFF)<<3
	binary.LittleEndian.PutUint32(out[12:16], data1)

	binary.LittleEndian.PutUint32(out[16:20], math.Float32bits(m.Size.X()))
	binary.LittleEndian.PutUint32(out[20:24], math.Float32bits(m.Size.Y()))
	binary.LittleEndian.PutUint32(out[24:28], math.Float32bits(m.Size.Z()))

	binary.LittleEndian.PutUint32(out[28:32], m.StartFace)

	return out
}

// UnpackMesh decodes the 32-byte wire form produced by Mesh.Pack.
func UnpackMesh(b [MeshByteSize]byte) Mesh {
	cx := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	cy := math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	cz := math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))

	data1 := binary.LittleEndian.Uint32(b[12:16])

	sx := math.Float32frombits(binary.LittleEndian.Uint32(b[16:20]))
	sy := math.Float32frombits(binary.LittleEndian.Uint32(b[20:24]))
	sz := math.Float32frombits(binary.LittleEndian.Uint32(b[24:28]))

	startFace := binary.LittleEndian.Uint32(b[28:32])

	return Mesh{
		Center:    mgl32.Vec3{cx, cy, cz},
		Size:      mgl32.Vec3{sx, sy, sz},
		Normal:    uint8(data1 & 0x7),
		FaceCount: (data1 >> 3) & 0x1FFFFFFF,
		StartFace: startFace,
	}
}
