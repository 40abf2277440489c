// Package render implements the stylized frame renderer: a per-object
// geometry cache fed by host scene-change notifications and a draw path
// that issues one outlined, toon-shaded draw call per visible mesh.
package render

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/toonview/internal/engine/gpu"
	"github.com/Faultbox/toonview/internal/engine/host"
	"github.com/Faultbox/toonview/internal/engine/lighting"
	"github.com/Faultbox/toonview/internal/engine/meshbuild"
	"github.com/Faultbox/toonview/internal/engine/render/shaders"
	"github.com/Faultbox/toonview/internal/engine/style"
	"github.com/Faultbox/toonview/internal/logger"
	"github.com/Faultbox/toonview/pkg/math"
)

// cacheEntry associates one mesh object with its built buffer and
// uploaded GPU mesh. pending carries a buffer built on a worker
// goroutine until the draw path uploads it; gen orders concurrent
// builds so a slow older build can never replace a newer one.
type cacheEntry struct {
	buf       *meshbuild.Buffer
	mesh      gpu.Mesh
	transform host.TransformFunc
	gen       atomic.Uint64
	pending   atomic.Pointer[pendingBuild]
}

// pendingBuild is one finished background build awaiting upload.
type pendingBuild struct {
	gen uint64
	buf *meshbuild.Buffer
}

// instanceRef is one visible mesh instance; the transform accessor is
// resolved fresh every frame.
type instanceRef struct {
	id        host.ObjectID
	transform host.TransformFunc
}

// Instance is a visible mesh instance snapshotted for one frame.
type Instance struct {
	ID    host.ObjectID
	World math.Mat4
}

// FrameContext is the ephemeral per-redraw state. Build one with
// Engine.Frame and hand it straight to Engine.Draw.
type FrameContext struct {
	View       math.Mat4
	Projection math.Mat4
	Lights     []math.Vec3
	Style      style.Settings
	Instances  []Instance
}

// Option configures an Engine.
type Option func(*Engine)

// WithAsyncBuilds moves geometry builds off the scene-change callback
// onto worker goroutines. Finished buffers are published with an atomic
// swap and uploaded on the next draw.
func WithAsyncBuilds() Option {
	return func(e *Engine) { e.async = true }
}

// Engine is the viewport renderer. The host guarantees SceneChanged and
// Draw never run concurrently, so the cache needs no locking on the
// synchronous path; async builds publish through cacheEntry.pending.
type Engine struct {
	dev     gpu.Device
	program gpu.Program

	cache     map[host.ObjectID]*cacheEntry
	instances []instanceRef
	lights    []math.Vec3
	synced    bool

	async  bool
	builds sync.WaitGroup
}

// New compiles the toon shader program and returns an engine drawing
// through the given device.
func New(dev gpu.Device, opts ...Option) (*Engine, error) {
	program, err := dev.NewProgram(
		shaders.ToonVertexShader,
		shaders.ToonGeometryShader,
		shaders.ToonFragmentShader,
	)
	if err != nil {
		return nil, fmt.Errorf("toon shader: %w", err)
	}

	e := &Engine{
		dev:     dev,
		program: program,
		cache:   make(map[host.ObjectID]*cacheEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases all GPU resources held by the engine.
func (e *Engine) Close() {
	e.builds.Wait()
	for id, entry := range e.cache {
		if entry.mesh != nil {
			entry.mesh.Release()
		}
		delete(e.cache, id)
	}
	if e.program != nil {
		e.program.Release()
	}
}

// SceneChanged ingests a host scene-change notification. On the first
// sync every mesh object is built and cached; afterwards only objects
// flagged with a geometry change are rebuilt. Object-level changes
// trigger a rescan of visible instances and sun lights, and evict cache
// entries whose object left the scene.
func (e *Engine) SceneChanged(snapshot *host.SceneSnapshot, updates []host.Update, first bool) {
	if first || !e.synced {
		for _, obj := range snapshot.Objects {
			if obj.Type == host.TypeMesh {
				e.buildEntry(obj)
			}
		}
		e.rescan(snapshot)
		e.synced = true
		logger.Debug("scene synced",
			zap.Int("meshes", len(e.instances)),
			zap.Int("suns", len(e.lights)),
		)
		return
	}

	objectLevel := false
	byID := make(map[host.ObjectID]*host.Object, len(snapshot.Objects))
	for _, obj := range snapshot.Objects {
		byID[obj.ID] = obj
	}

	for _, up := range updates {
		if up.ObjectLevel {
			objectLevel = true
		}
		if !up.Geometry {
			continue
		}
		obj, ok := byID[up.ID]
		if !ok || obj.Type != host.TypeMesh {
			continue
		}
		e.buildEntry(obj)
	}

	if objectLevel {
		e.rescan(snapshot)
	}
}

// buildEntry builds (or schedules) the mesh buffer for one object and
// replaces its cache entry.
func (e *Engine) buildEntry(obj *host.Object) {
	entry, ok := e.cache[obj.ID]
	if !ok {
		entry = &cacheEntry{}
		e.cache[obj.ID] = entry
	}
	entry.transform = obj.Transform
	gen := entry.gen.Add(1)

	if e.async {
		id, mesh := obj.ID, obj.Mesh
		e.builds.Add(1)
		go func() {
			defer e.builds.Done()
			build := &pendingBuild{gen: gen, buf: buildOrEmpty(id, mesh)}
			for {
				cur := entry.pending.Load()
				if cur != nil && cur.gen >= gen {
					return
				}
				if entry.pending.CompareAndSwap(cur, build) {
					return
				}
			}
		}()
		return
	}

	e.publish(entry, buildOrEmpty(obj.ID, obj.Mesh))
}

// buildOrEmpty never fails: a snapshot the builder rejects becomes an
// empty buffer so the object draws as a no-op instead of blocking the
// viewport.
func buildOrEmpty(id host.ObjectID, mesh *host.Mesh) *meshbuild.Buffer {
	buf, err := meshbuild.Build(mesh)
	if err != nil {
		logger.Warn("mesh build failed, drawing nothing for object",
			zap.String("object", string(id)),
			zap.Error(err),
		)
		return &meshbuild.Buffer{}
	}
	return buf
}

// publish uploads a built buffer and swaps it into the entry, releasing
// the previous GPU mesh.
func (e *Engine) publish(entry *cacheEntry, buf *meshbuild.Buffer) {
	mesh, err := e.dev.NewMesh(buf)
	if err != nil {
		logger.Warn("mesh upload failed", zap.Error(err))
		return
	}
	if entry.mesh != nil {
		entry.mesh.Release()
	}
	entry.buf = buf
	entry.mesh = mesh
}

// rescan rebuilds the visible-instance and sun-light lists in discovery
// order and evicts cache entries for objects no longer present.
func (e *Engine) rescan(snapshot *host.SceneSnapshot) {
	e.instances = e.instances[:0]
	e.lights = e.lights[:0]
	seen := make(map[host.ObjectID]bool, len(snapshot.Objects))

	for _, obj := range snapshot.Objects {
		switch obj.Type {
		case host.TypeMesh:
			e.instances = append(e.instances, instanceRef{id: obj.ID, transform: obj.Transform})
			seen[obj.ID] = true
		case host.TypeLight:
			if obj.Light == host.LightSun {
				e.lights = append(e.lights, lighting.SunDirection(obj.Rotation).Normalize())
			}
		}
	}

	for id, entry := range e.cache {
		if seen[id] {
			continue
		}
		if entry.mesh != nil {
			entry.mesh.Release()
		}
		delete(e.cache, id)
		logger.Debug("evicted cache entry", zap.String("object", string(id)))
	}
}

// Frame snapshots the current visible instances (transforms fetched
// fresh) and lights into an ephemeral frame context.
func (e *Engine) Frame(view, projection math.Mat4, settings style.Settings) FrameContext {
	frame := FrameContext{
		View:       view,
		Projection: projection,
		Style:      settings,
		Lights:     append([]math.Vec3(nil), e.lights...),
		Instances:  make([]Instance, 0, len(e.instances)),
	}
	for _, ref := range e.instances {
		world := math.Identity()
		if ref.transform != nil {
			world = ref.transform()
		}
		frame.Instances = append(frame.Instances, Instance{ID: ref.id, World: world})
	}
	return frame
}

// Draw renders one frame: depth-tested, back-face-culled triangle draws
// for every visible instance with a cache entry, then neutral GPU state.
// Instances without an entry have simply not been synced yet and are
// skipped. Uniforms absent from the compiled program variant are
// skipped too; a stale shader must not block drawing.
func (e *Engine) Draw(frame FrameContext) {
	e.dev.ApplyState(gpu.State{
		DepthTest:  gpu.DepthLessEqual,
		DepthWrite: true,
		CullBack:   true,
	})

	lightMat := lighting.PackDirections(frame.Lights)
	settings := frame.Style.Clamped()

	for _, inst := range frame.Instances {
		entry, ok := e.cache[inst.ID]
		if !ok {
			continue
		}
		if p := entry.pending.Swap(nil); p != nil && p.gen == entry.gen.Load() {
			e.publish(entry, p.buf)
		}
		if entry.mesh == nil {
			continue
		}

		e.program.Bind()
		e.program.SetMat4("matrix_world", inst.World)
		e.program.SetMat4("view_matrix", frame.View)
		e.program.SetMat4("projection_matrix", frame.Projection)
		e.program.SetMat4("directional_lights", lightMat)
		e.program.SetBool("render_outlines", settings.EnableOutline)
		e.program.SetFloat("outline_width", settings.OutlineWidth)
		e.program.SetFloat("shading_sharpness", settings.ShadingSharpness)

		entry.mesh.Draw()
	}

	e.dev.ApplyState(gpu.NeutralState())
}

// WaitBuilds blocks until all in-flight background builds have
// published their buffers.
func (e *Engine) WaitBuilds() {
	e.builds.Wait()
}
