package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain"
	"voxelterrain/engine/cull"
	"voxelterrain/engine/voxel"
)

func init() {
	runtime.LockOSThread()
}

// buildHeightMap fabricates a small rolling terrain so the demo has
// something to mesh without needing an asset file on disk.
func buildHeightMap(size int) ([]int32, []uint8) {
	height := make([]int32, size*size)
	id := make([]uint8, size*size)
	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			k := z*size + x
			height[k] = int32(4 + (x%8+z%8)/2)
			id[k] = 1
		}
	}
	return height, id
}

func main() {
	worldSize := flag.Int("size", 128, "horizontal world size in columns")
	debug := flag.Bool("debug", false, "enable verbose logging")
	flag.Parse()

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "voxelterrain meshdemo", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	height, id := buildHeightMap(*worldSize)
	columns, err := voxel.BuildFromHeightMap(*worldSize, *worldSize, height, id)
	if err != nil {
		panic(err)
	}

	logger := voxelterrain.NewDefaultLogger("meshdemo", *debug)
	vctx, err := voxelterrain.NewContext(voxelterrain.Config{
		MaxHorizontalSize:     64,
		JobHorizontalSize:     64,
		MergeNormalsThreshold: 256,
		SeenFromAbove:         true,
		Workers:               runtime.NumCPU(),
		Logger:                logger,
	})
	if err != nil {
		panic(err)
	}

	bounds := voxelterrain.Bounds{
		Center: mgl32.Vec3{float32(*worldSize) / 2, 16, float32(*worldSize) / 2},
		Size:   mgl32.Vec3{float32(*worldSize), 32, float32(*worldSize)},
	}
	if err := vctx.Publish(context.Background(), bounds, columns); err != nil {
		panic(err)
	}
	defer vctx.Dispose()

	fmt.Printf("meshed %d columns into %d faces across %d meshes (generation %s)\n",
		*worldSize**worldSize, len(vctx.Faces()), len(vctx.Meshes()), vctx.Generation())

	camera := mgl32.Vec3{0, 50, 0}
	fr := cull.Frustum{
		Far:   cull.Plane{Normal: mgl32.Vec3{0, 0, -1}, D: 1000},
		Left:  cull.Plane{Normal: mgl32.Vec3{1, 0, 0}, D: 1000},
		Right: cull.Plane{Normal: mgl32.Vec3{-1, 0, 0}, D: 1000},
		Down:  cull.Plane{Normal: mgl32.Vec3{0, 1, 0}, D: 1000},
		Up:    cull.Plane{Normal: mgl32.Vec3{0, -1, 0}, D: 1000},
	}

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	frame := 0
	for !window.ShouldClose() && frame < 3 {
		glfw.PollEvents()
		commands := cull.Dispatch(vctx.Padded(), camera, fr)
		logger.Infof("frame %d: %d draw commands", frame, len(commands))
		frame++
	}
}
