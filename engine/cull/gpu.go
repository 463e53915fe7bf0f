package cull

import (
	"encoding/binary"
	"fmt"
	"math"

	"voxelterrain/engine/errs"
	"voxelterrain/engine/logging"
	"voxelterrain/engine/packed"
	"voxelterrain/engine/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// TerrainCullingGroupSize is the compute workgroup size the kernel and
// mesh-table padding both assume (spec §6 "Tunables").
const TerrainCullingGroupSize = 64

// indexBufferFaces is how many quads the shared monotone index buffer
// covers: 6 indices per quad, one quad per face slot up to the per-mesh
// cap (spec §4.7 "a pre-baked monotone sequence ... of 6*16384 16-bit
// entries").
const indexBufferFaces = packed.MaxFacesPerMesh

// BuildIndexBuffer returns the shared, immutable index buffer: two
// triangles (0,1,2, 2,1,3) per quad, one quad per face slot, shared
// across every mesh regardless of its startFace (spec §4.7).
func BuildIndexBuffer() []uint16 {
	out := make([]uint16, 0, indexBufferFaces*6)
	for i := 0; i < indexBufferFaces; i++ {
		base := uint16(4 * i)
		out = append(out,
			base+0, base+1, base+2,
			base+2, base+1, base+3,
		)
	}
	return out
}

// Config holds the dispatcher's tunables (spec §6 "Tunables").
type Config struct {
	// GroupSize is the workgroup size DispatchFrame divides the mesh count
	// by to get its workgroup count. 0 defaults to TerrainCullingGroupSize.
	// The shader's @workgroup_size and Context.Padded use
	// TerrainCullingGroupSize regardless of this value.
	GroupSize int
	// Logger receives buffer/pipeline allocation failures (Warnf, noting
	// a retry next frame) and per-frame dispatch failures (Errorf, noting
	// the fallback to the previous frame's count); nil defaults to a no-op
	// logger.
	Logger logging.Logger
}

func (c Config) withDefaults() Config {
	if c.GroupSize == 0 {
		c.GroupSize = TerrainCullingGroupSize
	}
	return c
}

func (c Config) validate() error {
	if c.GroupSize < 0 {
		return &errs.ConfigurationError{Field: "cull.Config.GroupSize", Reason: fmt.Sprintf("must be non-negative, got %d", c.GroupSize)}
	}
	return nil
}

// Dispatcher owns the GPU-resident buffers for one renderer instance: the
// immutable mesh table, the per-frame camera uniform, the indirect-draw
// command buffer and its atomic counter, and the shared index buffer.
// Buffers are written once at publish and never rewritten thereafter
// except for the per-frame camera uniform and the counter reset (spec
// §5 "CPU<->GPU publish").
type Dispatcher struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	log    logging.Logger

	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup

	meshBuf     *wgpu.Buffer
	cameraBuf   *wgpu.Buffer
	commandsBuf *wgpu.Buffer
	counterBuf  *wgpu.Buffer
	indexBuf    *wgpu.Buffer
	readback    *wgpu.Buffer

	meshCount uint32
	groupSize uint32
	lastCount uint32
}

// NewDispatcher compiles the culling shader and allocates the buffers
// sized for meshCount meshes (already padded to a multiple of
// cfg.GroupSize by the caller, spec §4.7 "Padding"). Every allocation
// failure is logged via cfg.Logger.Warnf before returning a
// *errs.ResourceError, mirroring renderer_guard.go's "log via the injected
// logger, then signal failure" idiom; the caller is expected to keep the
// previous Dispatcher (if any) and retry construction next frame.
func NewDispatcher(device *wgpu.Device, meshes []packed.Mesh, cfg Config) (*Dispatcher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := logging.Or(cfg.Logger)

	fail := func(resource string, cause error) (*Dispatcher, error) {
		log.Warnf("allocate cull resource %q failed, will retry next frame: %v", resource, cause)
		return nil, &errs.ResourceError{Resource: resource, Cause: cause}
	}

	queue := device.GetQueue()

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "cull",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.CullWGSL},
	})
	if err != nil {
		return fail("cull shader module", err)
	}

	meshData := make([]byte, 0, len(meshes)*packed.MeshByteSize)
	for _, m := range meshes {
		b := m.Pack()
		meshData = append(meshData, b[:]...)
	}

	meshBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull-meshes",
		Size:  uint64(max(len(meshData), 1)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail("mesh buffer", err)
	}
	if len(meshData) > 0 {
		queue.WriteBuffer(meshBuf, 0, meshData)
	}

	cameraBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull-camera",
		Size:  cameraUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail("camera buffer", err)
	}

	commandsBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull-commands",
		Size:  uint64(len(meshes)) * drawCommandByteSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageIndirect | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail("command buffer", err)
	}

	counterBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull-counter",
		Size:  4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fail("counter buffer", err)
	}

	readback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull-counter-readback",
		Size:  4,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return fail("counter readback buffer", err)
	}

	idx := BuildIndexBuffer()
	idxBytes := make([]byte, len(idx)*2)
	for i, v := range idx {
		binary.LittleEndian.PutUint16(idxBytes[i*2:], v)
	}
	indexBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "cull-indices",
		Size:  uint64(len(idxBytes)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail("index buffer", err)
	}
	queue.WriteBuffer(indexBuf, 0, idxBytes)

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "cull-pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fail("compute pipeline", err)
	}

	bgl := pipeline.GetBindGroupLayout(0)
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "cull-bind-group",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: cameraBuf, Size: cameraUniformSize},
			{Binding: 1, Buffer: meshBuf, Size: uint64(max(len(meshData), 1))},
			{Binding: 2, Buffer: commandsBuf, Size: uint64(len(meshes)) * drawCommandByteSize},
			{Binding: 3, Buffer: counterBuf, Size: 4},
		},
	})
	if err != nil {
		return fail("bind group", err)
	}

	return &Dispatcher{
		device:      device,
		queue:       queue,
		log:         log,
		pipeline:    pipeline,
		bindGroup:   bindGroup,
		meshBuf:     meshBuf,
		cameraBuf:   cameraBuf,
		commandsBuf: commandsBuf,
		counterBuf:  counterBuf,
		indexBuf:    indexBuf,
		readback:    readback,
		meshCount:   uint32(len(meshes)),
		groupSize:   uint32(cfg.GroupSize),
	}, nil
}

const cameraUniformSize = 16 + 5*16 // position+pad, five (normal:vec3+pad, d) planes
const drawCommandByteSize = 20      // 5 x u32

// packCameraUniform packs the camera position and five frustum planes into
// the uniform buffer layout the shader expects. Pure and allocation-only so
// the packing itself is exercisable without a *wgpu.Device.
func packCameraUniform(p [3]float32, fr Frustum) []byte {
	buf := make([]byte, cameraUniformSize)
	put3 := func(off int, v [3]float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v[2]))
	}
	putPlane := func(off int, pl Plane) {
		put3(off, [3]float32{pl.Normal.X(), pl.Normal.Y(), pl.Normal.Z()})
		binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(pl.D))
	}

	put3(0, p)
	putPlane(16, fr.Far)
	putPlane(32, fr.Left)
	putPlane(48, fr.Right)
	putPlane(64, fr.Down)
	putPlane(80, fr.Up)

	return buf
}

// writeCamera uploads the packed camera uniform for this frame.
func (d *Dispatcher) writeCamera(p [3]float32, fr Frustum) {
	d.queue.WriteBuffer(d.cameraBuf, 0, packCameraUniform(p, fr))
}

// DispatchFrame resets the counter, uploads the camera, runs the culling
// kernel over every mesh, and returns the number of commands the readback
// fallback observed (spec §4.7, §5 "GPU culling + draw"). Per-frame errors
// never surface to the caller (spec §5): a failure is logged via
// Logger.Errorf and the previous frame's count is returned unchanged, so a
// transient GPU hiccup degrades culling for one frame rather than crashing
// the renderer. When the backend supports indirect count natively, callers
// may skip the readback and issue the draw with commandsBuf + counterBuf
// directly.
func (d *Dispatcher) DispatchFrame(pos [3]float32, fr Frustum) uint32 {
	count, err := d.dispatchFrame(pos, fr)
	if err != nil {
		d.log.Errorf("cull dispatch failed, reusing previous frame's draw count %d: %v", d.lastCount, err)
		return d.lastCount
	}
	d.lastCount = count
	return count
}

func (d *Dispatcher) dispatchFrame(pos [3]float32, fr Frustum) (uint32, error) {
	d.queue.WriteBuffer(d.counterBuf, 0, make([]byte, 4))
	d.writeCamera(pos, fr)

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return 0, fmt.Errorf("create command encoder: %w", err)
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, d.bindGroup, nil)
	groups := (d.meshCount + d.groupSize - 1) / d.groupSize
	pass.DispatchWorkgroups(groups, 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(d.counterBuf, 0, d.readback, 0, 4)

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return 0, fmt.Errorf("finish command encoder: %w", err)
	}
	d.queue.Submit(cmdBuf)

	// MapAsync's callback only fires on a Poll; block until it does,
	// mirroring manager_hiz.go's ReadbackHiZ polling idiom.
	var mapErr error
	mapped := false
	d.readback.MapAsync(wgpu.MapModeRead, 0, 4, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("counter readback failed: status=%d", status)
			return
		}
		mapped = true
	})
	d.device.Poll(true, nil)
	if mapErr != nil {
		return 0, mapErr
	}
	if !mapped {
		return 0, fmt.Errorf("counter readback did not complete")
	}

	data := d.readback.GetMappedRange(0, 4)
	count := binary.LittleEndian.Uint32(data)
	d.readback.Unmap()
	return count, nil
}

// IndexBuffer, CommandsBuffer, and CounterBuffer expose the buffers an
// indirect-indexed draw call needs; the render pass itself belongs to the
// (out-of-scope) renderer.
func (d *Dispatcher) IndexBuffer() *wgpu.Buffer    { return d.indexBuf }
func (d *Dispatcher) CommandsBuffer() *wgpu.Buffer { return d.commandsBuf }
func (d *Dispatcher) CounterBuffer() *wgpu.Buffer  { return d.counterBuf }

// Release frees every GPU resource the Dispatcher owns. Idempotent: safe
// to call more than once, matching the "disposal is idempotent" policy
// (spec §5 "Shared-resource policy").
func (d *Dispatcher) Release() {
	release := func(b *wgpu.Buffer) {
		if b != nil {
			b.Release()
		}
	}
	release(d.meshBuf)
	release(d.cameraBuf)
	release(d.commandsBuf)
	release(d.counterBuf)
	release(d.indexBuf)
	release(d.readback)
	d.meshBuf, d.cameraBuf, d.commandsBuf, d.counterBuf, d.indexBuf, d.readback = nil, nil, nil, nil, nil, nil
	if d.bindGroup != nil {
		d.bindGroup.Release()
		d.bindGroup = nil
	}
	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
