package gpu

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/toonview/internal/engine/meshbuild"
	"github.com/Faultbox/toonview/internal/logger"
	"github.com/Faultbox/toonview/pkg/math"
)

// Vertex layout: position (3f) + normal (3f) + color (4f), interleaved.
const vertexStride = 10 * 4

// GLDevice is the OpenGL implementation of Device.
// IMPORTANT: New must be called AFTER an OpenGL context is created!
type GLDevice struct{}

// NewGL initializes OpenGL and returns a GL-backed device.
func NewGL() (*GLDevice, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	return &GLDevice{}, nil
}

// NewProgram compiles vertex, optional geometry and fragment shaders and
// links them into a program.
func (d *GLDevice) NewProgram(vertexSrc, geometrySrc, fragmentSrc string) (Program, error) {
	vert, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vert)

	var geom uint32
	if geometrySrc != "" {
		geom, err = compileShader(geometrySrc, gl.GEOMETRY_SHADER, "geometry")
		if err != nil {
			return nil, err
		}
		defer gl.DeleteShader(geom)
	}

	frag, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	if geom != 0 {
		gl.AttachShader(program, geom)
	}
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &infoLog[0])
		gl.DeleteProgram(program)
		return nil, fmt.Errorf("link: %s", string(infoLog))
	}

	logger.Debug("shader program created", zap.Uint32("program", program))
	return &glProgram{id: program, locations: make(map[string]int32)}, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &infoLog[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(infoLog))
	}

	return shader, nil
}

type glProgram struct {
	id        uint32
	locations map[string]int32
}

func (p *glProgram) Bind() {
	gl.UseProgram(p.id)
}

// location caches uniform lookups; -1 means the uniform is absent from
// this program variant.
func (p *glProgram) location(name string) int32 {
	loc, ok := p.locations[name]
	if !ok {
		loc = gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
		p.locations[name] = loc
	}
	return loc
}

func (p *glProgram) SetMat4(name string, m math.Mat4) bool {
	loc := p.location(name)
	if loc < 0 {
		return false
	}
	gl.UniformMatrix4fv(loc, 1, false, m.Ptr())
	return true
}

func (p *glProgram) SetFloat(name string, v float32) bool {
	loc := p.location(name)
	if loc < 0 {
		return false
	}
	gl.Uniform1f(loc, v)
	return true
}

func (p *glProgram) SetBool(name string, v bool) bool {
	loc := p.location(name)
	if loc < 0 {
		return false
	}
	var i int32
	if v {
		i = 1
	}
	gl.Uniform1i(loc, i)
	return true
}

func (p *glProgram) Release() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

type glMesh struct {
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32
}

// NewMesh uploads the buffer into an interleaved VAO/VBO/EBO triple.
func (d *GLDevice) NewMesh(buf *meshbuild.Buffer) (Mesh, error) {
	m := &glMesh{indexCount: int32(len(buf.Indices) * 3)}
	if m.indexCount == 0 {
		return m, nil
	}

	vertices := make([]float32, 0, buf.VertexCount()*10)
	for i := range buf.Positions {
		p, n, c := buf.Positions[i], buf.Normals[i], buf.Colors[i]
		vertices = append(vertices,
			p[0], p[1], p[2],
			n[0], n[1], n[2],
			c[0], c[1], c[2], c[3],
		)
	}

	indices := make([]uint32, 0, len(buf.Indices)*3)
	for _, tri := range buf.Indices {
		indices = append(indices, tri[0], tri[1], tri[2])
	}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	// position (location = 0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, vertexStride, nil)
	gl.EnableVertexAttribArray(0)
	// normal (location = 1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, vertexStride, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)
	// color (location = 2)
	gl.VertexAttribPointer(2, 4, gl.FLOAT, false, vertexStride, unsafe.Pointer(uintptr(6*4)))
	gl.EnableVertexAttribArray(2)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	return m, nil
}

func (m *glMesh) Draw() {
	if m.indexCount == 0 {
		return
	}
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

func (m *glMesh) Release() {
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		m.vao = 0
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
		m.vbo = 0
	}
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
		m.ebo = 0
	}
}

// ApplyState sets depth and culling state.
func (d *GLDevice) ApplyState(s State) {
	switch s.DepthTest {
	case DepthNone:
		gl.Disable(gl.DEPTH_TEST)
	case DepthLess:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
	case DepthLessEqual:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
	}

	gl.DepthMask(s.DepthWrite)

	if s.CullBack {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
}

// Clear clears color and depth buffers with the given background color.
func (d *GLDevice) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Viewport sets the GL viewport.
func (d *GLDevice) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}
