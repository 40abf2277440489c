// Package lighting provides lighting utilities for stylized rendering.
package lighting

import "github.com/Faultbox/toonview/pkg/math"

// MaxLights is the number of directional lights the shader consumes.
const MaxLights = 4

// SunDirection derives a sun's direction from its world rotation:
// the light's local +Z axis rotated into world space.
func SunDirection(rotation math.Quat) math.Vec3 {
	return rotation.RotateVec3(math.Vec3{Z: 1})
}

// PackDirections packs up to MaxLights directions into the 4x4 uniform
// matrix the shader expects: one direction per column, w = 0, unused
// columns zero. This is the transpose of the row-per-light layout, so
// lights beyond MaxLights are silently dropped and insertion order is
// preserved.
func PackDirections(dirs []math.Vec3) math.Mat4 {
	var m math.Mat4
	n := len(dirs)
	if n > MaxLights {
		n = MaxLights
	}
	for i := 0; i < n; i++ {
		m[i*4+0] = dirs[i].X
		m[i*4+1] = dirs[i].Y
		m[i*4+2] = dirs[i].Z
	}
	return m
}
