// Package cull implements the per-frame mesh culling kernel (spec §4.7):
// a CPU reference (testable against §8's soundness/completeness
// properties) and the GPU compute dispatch that mirrors it at runtime.
package cull

import (
	"voxelterrain/engine/packed"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a frustum half-space (n̂, d) where n̂·p + d >= 0 means inside.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Frustum is the five tested planes in the exact order the scene/camera
// collaborator hands them over (spec §6): far, left, right, down, up. The
// near plane is never tested (spec §4.7).
type Frustum struct {
	Far, Left, Right, Down, Up Plane
}

func (fr Frustum) planes() [5]Plane {
	return [5]Plane{fr.Far, fr.Left, fr.Right, fr.Down, fr.Up}
}

var axisForNormal = [6]mgl32.Vec3{
	packed.NormalPosX: {1, 0, 0},
	packed.NormalNegX: {-1, 0, 0},
	packed.NormalPosY: {0, 1, 0},
	packed.NormalNegY: {0, -1, 0},
	packed.NormalPosZ: {0, 0, 1},
	packed.NormalNegZ: {0, 0, -1},
}

// Visible reports whether mesh m survives the orientation test (when it
// has a directional normal) and the frustum test against fr, from camera
// position p (spec §4.7 steps 1-2).
func Visible(m packed.Mesh, p mgl32.Vec3, fr Frustum) bool {
	if m.Normal < 6 {
		n := axisForNormal[m.Normal]
		// n is a unit axis vector, so n*s (component-wise) picks out
		// the single half-extent along the normal's axis.
		ns := mgl32.Vec3{n.X() * m.Size.X(), n.Y() * m.Size.Y(), n.Z() * m.Size.Z()}
		point := m.Center.Sub(ns)
		if point.Sub(p).Dot(n) > 0 {
			return false
		}
	}

	for _, pl := range fr.planes() {
		closest := mgl32.Vec3{
			m.Center.X() + m.Size.X()*signOf(pl.Normal.X()),
			m.Center.Y() + m.Size.Y()*signOf(pl.Normal.Y()),
			m.Center.Z() + m.Size.Z()*signOf(pl.Normal.Z()),
		}
		if pl.Normal.Dot(closest)+pl.D < 0 {
			return false
		}
	}
	return true
}

func signOf(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}

// Command is one indirect-draw argument slot (spec §4.7 "Emit").
type Command struct {
	IndexCountPerInstance uint32
	InstanceCount         uint32
	StartIndex            uint32
	BaseVertexIndex       uint32
	StartInstance         uint32
}

func commandFor(m packed.Mesh) Command {
	return Command{
		IndexCountPerInstance: 6 * m.FaceCount,
		InstanceCount:         1,
		StartIndex:            0,
		BaseVertexIndex:       4 * m.StartFace,
		StartInstance:         0,
	}
}

// Dispatch is the CPU reference implementation of the culling kernel: one
// "thread" per mesh, sequential, building the indirect-draw command list
// the same way the GPU kernel would (spec §4.7, §8 "Culling properties").
// It exists to be fast to unit test; runtime rendering uses the GPU
// dispatcher in gpu.go instead.
func Dispatch(meshes []packed.Mesh, p mgl32.Vec3, fr Frustum) []Command {
	var commands []Command
	for _, m := range meshes {
		if m.Normal == packed.NormalNone || m.FaceCount == 0 {
			continue
		}
		if !Visible(m, p, fr) {
			continue
		}
		commands = append(commands, commandFor(m))
	}
	return commands
}
