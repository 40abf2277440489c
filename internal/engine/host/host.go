// Package host defines the contract between the render engine and the
// application hosting it. The host owns the scene graph; the engine only
// reads snapshots handed to it through these types.
package host

import "github.com/Faultbox/toonview/pkg/math"

// ObjectID is a stable identity for a scene object.
type ObjectID string

// ObjectType tags a scene object.
type ObjectType int

// Object type tags.
const (
	TypeOther ObjectType = iota
	TypeMesh
	TypeLight
)

// LightType tags a light object.
type LightType int

// Light type tags. Only sun (directional) lights affect shading.
const (
	LightOther LightType = iota
	LightSun
)

// TransformFunc returns an object's current world transform. It is called
// fresh on every frame so transform edits never require a geometry rebuild.
type TransformFunc func() math.Mat4

// Object is one entry of a scene snapshot.
type Object struct {
	ID   ObjectID
	Type ObjectType

	// Mesh is set for TypeMesh objects.
	Mesh *Mesh

	// Light and Rotation are set for TypeLight objects. Rotation is the
	// world rotation; a sun's direction is the rotated local +Z axis.
	Light    LightType
	Rotation math.Quat

	// Transform yields the current world matrix for TypeMesh objects.
	Transform TransformFunc
}

// SceneSnapshot is an immutable view of the host scene, objects in
// discovery order.
type SceneSnapshot struct {
	Objects []*Object
}

// Update describes what changed for one object since the last sync.
type Update struct {
	ID ObjectID

	// Geometry is set when the object's mesh data changed and its cached
	// buffer must be rebuilt.
	Geometry bool

	// ObjectLevel is set when the object was added, removed or reparented.
	ObjectLevel bool
}

// RenderJob is a final (offline) render request.
type RenderJob struct {
	Width, Height int

	// ResolutionPercent scales the output dimensions; 100 means full size.
	ResolutionPercent int

	// Preview marks small material/world preview renders.
	Preview bool
}

// ScaledSize returns the output dimensions after applying the resolution
// percentage.
func (j RenderJob) ScaledSize() (int, int) {
	pct := j.ResolutionPercent
	if pct <= 0 {
		pct = 100
	}
	return j.Width * pct / 100, j.Height * pct / 100
}

// ResultSink receives the final-render pixel rectangle. Pixels are RGBA
// floats, row-major, len = width*height*4.
type ResultSink interface {
	WriteRect(width, height int, pixels []float32) error
}
