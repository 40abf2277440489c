// Package camera provides the orbit camera used by the viewer.
package camera

import (
	gomath "math"

	"github.com/Faultbox/toonview/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	CenterX, CenterY, CenterZ float32

	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        10.0,
		RotationX:       0.5,
		RotationY:       0.6,
		MinDistance:     1.0,
		MaxDistance:     200.0,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	x := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Sin(float64(c.RotationY)))
	y := c.Distance * float32(gomath.Sin(float64(c.RotationX)))
	z := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Cos(float64(c.RotationY)))

	return math.Vec3{
		X: c.CenterX + x,
		Y: c.CenterY + y,
		Z: c.CenterZ + z,
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	pos := c.Position()
	center := math.Vec3{X: c.CenterX, Y: c.CenterY, Z: c.CenterZ}
	up := math.Vec3{X: 0, Y: 1, Z: 0}
	return math.LookAt(pos, center, up)
}

// ProjectionMatrix returns a perspective projection for the given
// viewport aspect ratio.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	return math.Perspective(gomath.Pi/4, aspect, 0.1, 1000)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX += deltaY * c.DragSensitivity

	if c.RotationX < c.MinPitch {
		c.RotationX = c.MinPitch
	}
	if c.RotationX > c.MaxPitch {
		c.RotationX = c.MaxPitch
	}
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}
