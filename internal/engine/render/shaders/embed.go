// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// ToonVertexShader transforms per-loop vertices into view space.
//
//go:embed toon.vert
var ToonVertexShader string

// ToonGeometryShader emits outline hulls ahead of each triangle.
//
//go:embed toon.geom
var ToonGeometryShader string

// ToonFragmentShader applies stepped directional lighting.
//
//go:embed toon.frag
var ToonFragmentShader string
