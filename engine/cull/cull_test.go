package cull

import (
	"math/rand"
	"testing"

	"voxelterrain/engine/packed"

	"github.com/go-gl/mathgl/mgl32"
)

// Scenario 5 (spec §8): mesh center (100,0,0), half-size (1,1,1), camera at
// origin looking -x, far plane n=(-1,0,0), d=200.
func TestOrientationScenario(t *testing.T) {
	far := Plane{Normal: mgl32.Vec3{-1, 0, 0}, D: 200}
	// A frustum whose side planes never cull, so only the far plane and
	// the orientation test decide the outcome.
	open := Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9}
	fr := Frustum{Far: far, Left: open, Right: open, Down: open, Up: open}

	m := packed.Mesh{Center: mgl32.Vec3{100, 0, 0}, Size: mgl32.Vec3{1, 1, 1}, Normal: packed.NormalPosX, FaceCount: 1}
	if Visible(m, mgl32.Vec3{0, 0, 0}, fr) {
		t.Error("+x mesh should be culled by orientation test")
	}

	m.Normal = packed.NormalNegX
	if !Visible(m, mgl32.Vec3{0, 0, 0}, fr) {
		t.Error("-x mesh should survive the orientation test")
	}
}

func TestAnyNormalSkipsOrientation(t *testing.T) {
	far := Plane{Normal: mgl32.Vec3{-1, 0, 0}, D: 200}
	open := Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9}
	fr := Frustum{Far: far, Left: open, Right: open, Down: open, Up: open}

	m := packed.Mesh{Center: mgl32.Vec3{100, 0, 0}, Size: mgl32.Vec3{1, 1, 1}, Normal: packed.NormalAny, FaceCount: 1}
	if !Visible(m, mgl32.Vec3{0, 0, 0}, fr) {
		t.Error("any-normal mesh should skip orientation and pass the far plane")
	}
}

func randomFrustum(r *rand.Rand) Frustum {
	plane := func() Plane {
		n := mgl32.Vec3{r.Float32()*2 - 1, r.Float32()*2 - 1, r.Float32()*2 - 1}
		if n.Len() < 1e-6 {
			n = mgl32.Vec3{1, 0, 0}
		}
		return Plane{Normal: n.Normalize(), D: r.Float32()*200 - 100}
	}
	return Frustum{Far: plane(), Left: plane(), Right: plane(), Down: plane(), Up: plane()}
}

// Soundness (spec §8): every mesh the kernel keeps has its AABB
// intersecting the frustum and, when directional, its back side facing
// the camera.
func TestSoundnessRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		m := packed.Mesh{
			Center:    mgl32.Vec3{r.Float32()*40 - 20, r.Float32()*40 - 20, r.Float32()*40 - 20},
			Size:      mgl32.Vec3{r.Float32() * 5, r.Float32() * 5, r.Float32() * 5},
			Normal:    uint8(r.Intn(6)),
			FaceCount: 1,
		}
		p := mgl32.Vec3{r.Float32()*40 - 20, r.Float32()*40 - 20, r.Float32()*40 - 20}
		fr := randomFrustum(r)

		if !Visible(m, p, fr) {
			continue
		}

		for _, pl := range fr.planes() {
			closest := mgl32.Vec3{
				m.Center.X() + m.Size.X()*signOf(pl.Normal.X()),
				m.Center.Y() + m.Size.Y()*signOf(pl.Normal.Y()),
				m.Center.Z() + m.Size.Z()*signOf(pl.Normal.Z()),
			}
			if pl.Normal.Dot(closest)+pl.D < -1e-4 {
				t.Fatalf("kept mesh %+v fails plane %+v", m, pl)
			}
		}

		n := axisForNormal[m.Normal]
		ns := mgl32.Vec3{n.X() * m.Size.X(), n.Y() * m.Size.Y(), n.Z() * m.Size.Z()}
		if m.Center.Sub(ns).Sub(p).Dot(n) > 1e-4 {
			t.Fatalf("kept mesh %+v fails orientation test against camera %v", m, p)
		}
	}
}

// Completeness of the orientation test (spec §8): a mesh whose back side
// already faces the camera is never culled by that test alone (an
// all-inside frustum isolates the orientation test).
func TestOrientationCompletenessRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	insideEverything := Frustum{
		Far:   Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Left:  Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Right: Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Down:  Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Up:    Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
	}

	for i := 0; i < 2000; i++ {
		m := packed.Mesh{
			Center:    mgl32.Vec3{r.Float32()*40 - 20, r.Float32()*40 - 20, r.Float32()*40 - 20},
			Size:      mgl32.Vec3{r.Float32() * 5, r.Float32() * 5, r.Float32() * 5},
			Normal:    uint8(r.Intn(6)),
			FaceCount: 1,
		}
		p := mgl32.Vec3{r.Float32()*40 - 20, r.Float32()*40 - 20, r.Float32()*40 - 20}

		n := axisForNormal[m.Normal]
		ns := mgl32.Vec3{n.X() * m.Size.X(), n.Y() * m.Size.Y(), n.Z() * m.Size.Z()}
		dot := m.Center.Sub(ns).Sub(p).Dot(n)
		if dot > 0 {
			continue
		}

		if !Visible(m, p, insideEverything) {
			t.Fatalf("mesh %+v with dot=%f should not be culled", m, dot)
		}
	}
}

func TestDispatchSkipsPaddingMeshes(t *testing.T) {
	fr := Frustum{
		Far:   Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Left:  Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Right: Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Down:  Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
		Up:    Plane{Normal: mgl32.Vec3{0, 0, 0}, D: 1e9},
	}

	meshes := []packed.Mesh{
		{Normal: packed.NormalNone, FaceCount: 0},
		{Normal: packed.NormalPosX, FaceCount: 1, Center: mgl32.Vec3{0, 0, 0}},
	}
	cmds := Dispatch(meshes, mgl32.Vec3{10, 0, 0}, fr)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1 (padding mesh must be skipped)", len(cmds))
	}
}
