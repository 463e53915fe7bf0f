package cull

import (
	"encoding/binary"
	"math"
	"testing"

	"voxelterrain/engine/errs"

	"github.com/go-gl/mathgl/mgl32"
)

// TestBuildIndexBuffer exercises the shared monotone index buffer
// NewDispatcher uploads once at publish (spec §4.7): two triangles per
// quad, one quad per face slot, with no per-mesh startFace applied here —
// that offset is added by the shader from the mesh table instead.
func TestBuildIndexBuffer(t *testing.T) {
	idx := BuildIndexBuffer()
	if len(idx) != indexBufferFaces*6 {
		t.Fatalf("len(idx) = %d, want %d", len(idx), indexBufferFaces*6)
	}

	want0 := []uint16{0, 1, 2, 2, 1, 3}
	for i, v := range want0 {
		if idx[i] != v {
			t.Fatalf("quad 0 index %d = %d, want %d", i, idx[i], v)
		}
	}

	want1 := []uint16{4, 5, 6, 6, 5, 7}
	for i, v := range want1 {
		if idx[6+i] != v {
			t.Fatalf("quad 1 index %d = %d, want %d", i, idx[6+i], v)
		}
	}
}

// TestPackCameraUniform exercises the byte layout the cull shader's camera
// uniform expects, without requiring a *wgpu.Device (spec §4.7).
func TestPackCameraUniform(t *testing.T) {
	pos := [3]float32{1, 2, 3}
	fr := Frustum{
		Far:   Plane{Normal: mgl32.Vec3{0, 0, -1}, D: 200},
		Left:  Plane{Normal: mgl32.Vec3{1, 0, 0}, D: 10},
		Right: Plane{Normal: mgl32.Vec3{-1, 0, 0}, D: 11},
		Down:  Plane{Normal: mgl32.Vec3{0, 1, 0}, D: 12},
		Up:    Plane{Normal: mgl32.Vec3{0, -1, 0}, D: 13},
	}

	buf := packCameraUniform(pos, fr)
	if len(buf) != cameraUniformSize {
		t.Fatalf("len(buf) = %d, want %d", len(buf), cameraUniformSize)
	}

	readF32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}

	for i, want := range pos {
		if got := readF32(i * 4); got != want {
			t.Errorf("position[%d] = %f, want %f", i, got, want)
		}
	}

	checkPlane := func(off int, pl Plane) {
		t.Helper()
		if got := readF32(off); got != pl.Normal.X() {
			t.Errorf("plane at %d: normal.X = %f, want %f", off, got, pl.Normal.X())
		}
		if got := readF32(off + 4); got != pl.Normal.Y() {
			t.Errorf("plane at %d: normal.Y = %f, want %f", off, got, pl.Normal.Y())
		}
		if got := readF32(off + 8); got != pl.Normal.Z() {
			t.Errorf("plane at %d: normal.Z = %f, want %f", off, got, pl.Normal.Z())
		}
		if got := readF32(off + 12); got != pl.D {
			t.Errorf("plane at %d: D = %f, want %f", off, got, pl.D)
		}
	}
	checkPlane(16, fr.Far)
	checkPlane(32, fr.Left)
	checkPlane(48, fr.Right)
	checkPlane(64, fr.Down)
	checkPlane(80, fr.Up)
}

func TestCullConfigValidate(t *testing.T) {
	cfg := Config{GroupSize: -1}
	err := cfg.validate()
	if err == nil {
		t.Fatal("validate: want error for negative GroupSize, got nil")
	}
	if _, ok := err.(*errs.ConfigurationError); !ok {
		t.Fatalf("validate: got %T, want *errs.ConfigurationError", err)
	}

	if err := (Config{}).validate(); err != nil {
		t.Errorf("validate: zero-value Config should be valid, got %v", err)
	}
}

func TestCullConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.GroupSize != TerrainCullingGroupSize {
		t.Errorf("GroupSize = %d, want %d", cfg.GroupSize, TerrainCullingGroupSize)
	}

	cfg = Config{GroupSize: 32}.withDefaults()
	if cfg.GroupSize != 32 {
		t.Errorf("GroupSize = %d, want 32 (explicit value must not be overridden)", cfg.GroupSize)
	}
}

