// Package gpu abstracts the shader-program host the engine draws
// through, with an OpenGL 4.1 core implementation.
package gpu

import (
	"github.com/Faultbox/toonview/internal/engine/meshbuild"
	"github.com/Faultbox/toonview/pkg/math"
)

// DepthFunc selects the depth test mode.
type DepthFunc int

// Depth test modes.
const (
	DepthNone DepthFunc = iota
	DepthLess
	DepthLessEqual
)

// State is the fixed-function pipeline state a draw pass runs under.
type State struct {
	DepthTest  DepthFunc
	DepthWrite bool
	CullBack   bool
}

// NeutralState is the state restored after a draw pass: no depth test,
// no depth write, no culling.
func NeutralState() State {
	return State{DepthTest: DepthNone}
}

// Program is a compiled shader program. The Set methods bind a uniform
// by name and report false when the name is absent from this program
// variant; callers skip such uniforms and keep drawing.
type Program interface {
	Bind()
	SetMat4(name string, m math.Mat4) bool
	SetFloat(name string, v float32) bool
	SetBool(name string, v bool) bool
	Release()
}

// Mesh is an uploaded vertex/index buffer that can be drawn as a
// triangle list.
type Mesh interface {
	Draw()
	Release()
}

// Device owns GPU resources and pipeline state.
type Device interface {
	// NewProgram compiles and links a three-stage program. geometrySrc
	// may be empty for programs without a geometry stage.
	NewProgram(vertexSrc, geometrySrc, fragmentSrc string) (Program, error)

	// NewMesh uploads a built buffer. An empty buffer yields a mesh
	// whose Draw is a no-op.
	NewMesh(buf *meshbuild.Buffer) (Mesh, error)

	// ApplyState sets the pipeline state for subsequent draws.
	ApplyState(State)
}
