package render

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"testing"

	"github.com/Faultbox/toonview/internal/engine/gpu"
	"github.com/Faultbox/toonview/internal/engine/host"
	"github.com/Faultbox/toonview/internal/engine/meshbuild"
	"github.com/Faultbox/toonview/internal/engine/style"
	"github.com/Faultbox/toonview/internal/logger"
	"github.com/Faultbox/toonview/pkg/math"
)

func TestMain(m *testing.M) {
	// Engine paths log through the global logger; keep tests quiet.
	if err := logger.InitWithFileConfig("error", logger.FileConfig{}, false); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeProgram records uniform sets and can simulate missing uniforms.
type fakeProgram struct {
	binds    int
	mat4s    map[string]math.Mat4
	floats   map[string]float32
	bools    map[string]bool
	missing  map[string]bool
	released bool
}

func newFakeProgram() *fakeProgram {
	return &fakeProgram{
		mat4s:   make(map[string]math.Mat4),
		floats:  make(map[string]float32),
		bools:   make(map[string]bool),
		missing: make(map[string]bool),
	}
}

func (p *fakeProgram) Bind() { p.binds++ }

func (p *fakeProgram) SetMat4(name string, m math.Mat4) bool {
	if p.missing[name] {
		return false
	}
	p.mat4s[name] = m
	return true
}

func (p *fakeProgram) SetFloat(name string, v float32) bool {
	if p.missing[name] {
		return false
	}
	p.floats[name] = v
	return true
}

func (p *fakeProgram) SetBool(name string, v bool) bool {
	if p.missing[name] {
		return false
	}
	p.bools[name] = v
	return true
}

func (p *fakeProgram) Release() { p.released = true }

// fakeMesh records draw calls.
type fakeMesh struct {
	buf      *meshbuild.Buffer
	draws    int
	released bool
}

func (m *fakeMesh) Draw()    { m.draws++ }
func (m *fakeMesh) Release() { m.released = true }

// fakeDevice records every GPU interaction.
type fakeDevice struct {
	program    *fakeProgram
	meshes     []*fakeMesh
	states     []gpu.State
	failUpload bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{program: newFakeProgram()}
}

func (d *fakeDevice) NewProgram(vertexSrc, geometrySrc, fragmentSrc string) (gpu.Program, error) {
	return d.program, nil
}

func (d *fakeDevice) NewMesh(buf *meshbuild.Buffer) (gpu.Mesh, error) {
	if d.failUpload {
		return nil, errors.New("upload failed")
	}
	m := &fakeMesh{buf: buf}
	d.meshes = append(d.meshes, m)
	return m, nil
}

func (d *fakeDevice) ApplyState(s gpu.State) {
	d.states = append(d.states, s)
}

func (d *fakeDevice) totalDraws() int {
	n := 0
	for _, m := range d.meshes {
		n += m.draws
	}
	return n
}

func triangleMesh() *host.Mesh {
	return &host.Mesh{
		Vertices:      [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		LoopVertex:    []int{0, 1, 2},
		LoopNormals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		FaceLoopStart: []int{0},
		FaceLoopCount: []int{3},
	}
}

func meshObject(id host.ObjectID) *host.Object {
	return &host.Object{
		ID:        id,
		Type:      host.TypeMesh,
		Mesh:      triangleMesh(),
		Transform: math.Identity,
	}
}

func sunObject(id host.ObjectID, rot math.Quat) *host.Object {
	return &host.Object{ID: id, Type: host.TypeLight, Light: host.LightSun, Rotation: rot}
}

func snapshotOf(objs ...*host.Object) *host.SceneSnapshot {
	return &host.SceneSnapshot{Objects: objs}
}

func newEngine(t *testing.T, dev gpu.Device, opts ...Option) *Engine {
	t.Helper()
	e, err := New(dev, opts...)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func TestFirstSyncBuildsCache(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)

	snap := snapshotOf(
		meshObject("cube"),
		meshObject("plane"),
		sunObject("sun", math.QuatIdentity()),
		&host.Object{ID: "empty", Type: host.TypeOther},
	)
	e.SceneChanged(snap, nil, true)

	if len(dev.meshes) != 2 {
		t.Errorf("expected 2 uploads, got %d", len(dev.meshes))
	}
	frame := e.Frame(math.Identity(), math.Identity(), style.Default())
	if len(frame.Instances) != 2 {
		t.Errorf("expected 2 instances, got %d", len(frame.Instances))
	}
	if len(frame.Lights) != 1 {
		t.Errorf("expected 1 light, got %d", len(frame.Lights))
	}
}

func TestDrawSkipsUnsyncedInstance(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	e.SceneChanged(snapshotOf(), nil, true)

	frame := e.Frame(math.Identity(), math.Identity(), style.Default())
	frame.Instances = append(frame.Instances, Instance{ID: "ghost", World: math.Identity()})

	e.Draw(frame)

	if dev.totalDraws() != 0 {
		t.Errorf("expected zero draw calls, got %d", dev.totalDraws())
	}
}

func TestDrawSingleTriangleNoLights(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	e.SceneChanged(snapshotOf(meshObject("tri")), nil, true)

	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	if dev.totalDraws() != 1 {
		t.Fatalf("expected exactly 1 draw call, got %d", dev.totalDraws())
	}
	lights, ok := dev.program.mat4s["directional_lights"]
	if !ok {
		t.Fatal("light matrix uniform not set")
	}
	for i, v := range lights {
		if v != 0 {
			t.Fatalf("light matrix element %d should be 0 with no suns, got %f", i, v)
		}
	}
}

func TestDrawSetsStyleUniforms(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	e.SceneChanged(snapshotOf(meshObject("tri")), nil, true)

	settings := style.Settings{EnableOutline: true, OutlineWidth: 3.5, ShadingSharpness: 0.25}
	e.Draw(e.Frame(math.Identity(), math.Identity(), settings))

	if !dev.program.bools["render_outlines"] {
		t.Error("render_outlines should be true")
	}
	if dev.program.floats["outline_width"] != 3.5 {
		t.Errorf("outline_width = %f, want 3.5", dev.program.floats["outline_width"])
	}
	if dev.program.floats["shading_sharpness"] != 0.25 {
		t.Errorf("shading_sharpness = %f, want 0.25", dev.program.floats["shading_sharpness"])
	}
}

func TestDrawStateBracketing(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	e.SceneChanged(snapshotOf(meshObject("tri")), nil, true)

	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	if len(dev.states) < 2 {
		t.Fatalf("expected at least 2 state changes, got %d", len(dev.states))
	}
	first := dev.states[0]
	if first.DepthTest != gpu.DepthLessEqual || !first.DepthWrite || !first.CullBack {
		t.Errorf("unexpected draw state: %+v", first)
	}
	last := dev.states[len(dev.states)-1]
	if last != gpu.NeutralState() {
		t.Errorf("expected neutral state after draw, got %+v", last)
	}
}

func TestObjectLevelChangeKeepsBuffer(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	obj := meshObject("cube")
	snap := snapshotOf(obj)
	e.SceneChanged(snap, nil, true)

	before := e.cache["cube"].buf
	uploads := len(dev.meshes)

	e.SceneChanged(snap, []host.Update{{ID: "cube", ObjectLevel: true}}, false)

	if e.cache["cube"].buf != before {
		t.Error("object-level change must not replace the cached buffer")
	}
	if len(dev.meshes) != uploads {
		t.Errorf("object-level change must not re-upload, uploads went %d -> %d", uploads, len(dev.meshes))
	}
}

func TestGeometryChangeReplacesEntry(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	obj := meshObject("cube")
	snap := snapshotOf(obj)
	e.SceneChanged(snap, nil, true)

	before := e.cache["cube"].buf
	oldMesh := dev.meshes[0]

	e.SceneChanged(snap, []host.Update{{ID: "cube", Geometry: true}}, false)

	if e.cache["cube"].buf == before {
		t.Error("geometry change should rebuild the buffer")
	}
	if !oldMesh.released {
		t.Error("old GPU mesh should be released on rebuild")
	}
}

func TestRemovedObjectEvicted(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	e.SceneChanged(snapshotOf(meshObject("cube"), meshObject("plane")), nil, true)

	// Cube leaves the scene; the host reports an object-level change.
	e.SceneChanged(snapshotOf(meshObject("plane")),
		[]host.Update{{ID: "cube", ObjectLevel: true}}, false)

	if _, ok := e.cache["cube"]; ok {
		t.Error("removed object should be evicted from the cache")
	}
	if _, ok := e.cache["plane"]; !ok {
		t.Error("surviving object lost its cache entry")
	}
	if !dev.meshes[0].released {
		t.Error("evicted entry should release its GPU mesh")
	}
}

func TestMissingUniformNonFatal(t *testing.T) {
	dev := newFakeDevice()
	dev.program.missing["render_outlines"] = true
	dev.program.missing["directional_lights"] = true
	e := newEngine(t, dev)
	e.SceneChanged(snapshotOf(meshObject("tri")), nil, true)

	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	if dev.totalDraws() != 1 {
		t.Errorf("draw should proceed despite missing uniforms, got %d draws", dev.totalDraws())
	}
}

func TestMalformedMeshCachesEmptyBuffer(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)

	bad := meshObject("bad")
	bad.Mesh.FaceLoopStart[0] = 99
	e.SceneChanged(snapshotOf(bad), nil, true)

	entry, ok := e.cache["bad"]
	if !ok {
		t.Fatal("malformed mesh should still get a cache entry")
	}
	if !entry.buf.Empty() {
		t.Error("malformed mesh should cache an empty buffer")
	}
}

func TestOutOfRangeLoopVertexCachesEmptyBuffer(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)

	bad := meshObject("bad")
	bad.Mesh.LoopVertex[1] = 7
	e.SceneChanged(snapshotOf(bad), nil, true)

	entry, ok := e.cache["bad"]
	if !ok {
		t.Fatal("mesh with dangling loop vertex should still get a cache entry")
	}
	if !entry.buf.Empty() {
		t.Error("mesh with dangling loop vertex should cache an empty buffer")
	}

	// The instance stays visible and draws as a no-op.
	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))
}

func TestLightTruncationInFrame(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)

	objs := []*host.Object{meshObject("tri")}
	for i := 0; i < 6; i++ {
		rot := math.QuatFromAxisAngle(math.Vec3{X: 1}, float32(i)*0.3)
		objs = append(objs, sunObject(host.ObjectID(fmt.Sprintf("sun%d", i)), rot))
	}
	e.SceneChanged(snapshotOf(objs...), nil, true)

	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	lights := dev.program.mat4s["directional_lights"]
	nonZero := 0
	for col := 0; col < 4; col++ {
		if lights[col*4] != 0 || lights[col*4+1] != 0 || lights[col*4+2] != 0 {
			nonZero++
		}
	}
	if nonZero != 4 {
		t.Errorf("expected 4 packed lights, got %d", nonZero)
	}
}

func TestFrameFetchesFreshTransforms(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)

	offset := float32(0)
	obj := meshObject("cube")
	obj.Transform = func() math.Mat4 { return math.Translate(offset, 0, 0) }
	e.SceneChanged(snapshotOf(obj), nil, true)

	a := e.Frame(math.Identity(), math.Identity(), style.Default())
	offset = 5
	b := e.Frame(math.Identity(), math.Identity(), style.Default())

	if a.Instances[0].World[12] != 0 {
		t.Errorf("first frame translation = %f, want 0", a.Instances[0].World[12])
	}
	if b.Instances[0].World[12] != 5 {
		t.Errorf("second frame translation = %f, want 5", b.Instances[0].World[12])
	}
}

func TestAsyncBuildPublishesOnDraw(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev, WithAsyncBuilds())

	e.SceneChanged(snapshotOf(meshObject("cube")), nil, true)
	e.WaitBuilds()

	if len(dev.meshes) != 0 {
		t.Fatalf("async build must not upload before draw, got %d uploads", len(dev.meshes))
	}

	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	if len(dev.meshes) != 1 {
		t.Fatalf("expected upload on first draw, got %d", len(dev.meshes))
	}
	if dev.totalDraws() != 1 {
		t.Errorf("expected 1 draw call, got %d", dev.totalDraws())
	}
}

func TestAsyncOutOfOrderBuildsKeepNewest(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev, WithAsyncBuilds())

	obj := meshObject("cube")
	e.SceneChanged(snapshotOf(obj), nil, true)
	e.WaitBuilds()
	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	// Two geometry edits back to back spawn two racing builds. Whatever
	// order they finish in, only the newest snapshot may survive.
	for _, dx := range []float32{1, 2} {
		mesh := triangleMesh()
		for i := range mesh.Vertices {
			mesh.Vertices[i][0] += dx
		}
		obj.Mesh = mesh
		e.SceneChanged(snapshotOf(obj), []host.Update{{ID: "cube", Geometry: true}}, false)
	}
	e.WaitBuilds()
	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	last := dev.meshes[len(dev.meshes)-1]
	if got := last.buf.Positions[0][0]; got != 2 {
		t.Errorf("uploaded geometry from an outdated build: x = %v, want 2", got)
	}
}

func TestAsyncStaleBuildDropped(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev, WithAsyncBuilds())

	obj := meshObject("cube")
	e.SceneChanged(snapshotOf(obj), nil, true)
	e.SceneChanged(snapshotOf(obj), []host.Update{{ID: "cube", Geometry: true}}, false)
	e.WaitBuilds()
	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))
	uploads := len(dev.meshes)

	// A build from the first edit that was descheduled past the second
	// edit's upload lands on an empty pending slot. Its generation is
	// behind the entry's and the draw path must discard it.
	stale, err := meshbuild.Build(triangleMesh())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	entry := e.cache["cube"]
	entry.pending.Store(&pendingBuild{gen: 1, buf: stale})

	e.Draw(e.Frame(math.Identity(), math.Identity(), style.Default()))

	if len(dev.meshes) != uploads {
		t.Errorf("stale build uploaded: %d new uploads", len(dev.meshes)-uploads)
	}
	if entry.pending.Load() != nil {
		t.Error("draw should consume the stale pending build")
	}
}

func TestSunDirectionFromSceneRotation(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)

	// A sun rotated 180 degrees around X shines along -Z.
	rot := math.QuatFromAxisAngle(math.Vec3{X: 1}, gomath.Pi)
	e.SceneChanged(snapshotOf(meshObject("tri"), sunObject("sun", rot)), nil, true)

	frame := e.Frame(math.Identity(), math.Identity(), style.Default())
	if len(frame.Lights) != 1 {
		t.Fatalf("expected 1 light, got %d", len(frame.Lights))
	}
	if gomath.Abs(float64(frame.Lights[0].Z+1)) > 1e-5 {
		t.Errorf("expected direction -Z, got %v", frame.Lights[0])
	}
}

func TestCloseReleasesResources(t *testing.T) {
	dev := newFakeDevice()
	e := newEngine(t, dev)
	e.SceneChanged(snapshotOf(meshObject("cube")), nil, true)

	e.Close()

	if !dev.program.released {
		t.Error("program should be released on close")
	}
	if !dev.meshes[0].released {
		t.Error("meshes should be released on close")
	}
}
