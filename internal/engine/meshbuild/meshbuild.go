// Package meshbuild converts a host mesh snapshot into a flat,
// shader-ready vertex/index buffer with per-loop attributes.
package meshbuild

import (
	"errors"
	"fmt"

	"github.com/Faultbox/toonview/internal/engine/host"
)

// Buffer is a renderer-ready mesh: one entry per loop, positions expanded
// from the shared-vertex table so normals and colors align index-for-index.
type Buffer struct {
	Positions [][3]float32
	Normals   [][3]float32
	Colors    [][4]float32
	Indices   [][3]uint32
}

// Empty reports whether the buffer has nothing to draw.
func (b *Buffer) Empty() bool {
	return len(b.Indices) == 0
}

// VertexCount returns the number of output vertices (loops).
func (b *Buffer) VertexCount() int {
	return len(b.Positions)
}

// Build produces a Buffer from a mesh snapshot. It fails only when the
// snapshot cannot expose a triangulated view; missing optional data
// (tangents, vertex colors) degrades instead of failing.
func Build(mesh *host.Mesh) (*Buffer, error) {
	tris, err := mesh.LoopTriangles()
	if err != nil {
		return nil, fmt.Errorf("triangulating mesh: %w", err)
	}

	// Tangent data wants a UV layer. Without one we keep the split
	// per-loop normals the snapshot already carries.
	if err := mesh.CalcTangents(); err != nil && !errors.Is(err, host.ErrNoUVs) {
		return nil, fmt.Errorf("computing tangents: %w", err)
	}

	loops := mesh.LoopCount()
	buf := &Buffer{
		Positions: make([][3]float32, loops),
		Normals:   make([][3]float32, loops),
		Colors:    make([][4]float32, loops),
		Indices:   make([][3]uint32, len(tris)),
	}

	// Positions are stored deduplicated; expand one per loop so every
	// attribute stream has the same indexing. A loop pointing outside
	// the vertex table means the snapshot is unusable.
	for i, vi := range mesh.LoopVertex {
		if vi < 0 || vi >= len(mesh.Vertices) {
			return nil, fmt.Errorf("gathering positions: loop %d: %w", i, host.ErrBadVertices)
		}
		buf.Positions[i] = mesh.Vertices[vi]
	}

	copy(buf.Normals, mesh.LoopNormals)

	// Colors default to transparent black when no layer is active.
	if len(mesh.LoopColors) > 0 {
		copy(buf.Colors, mesh.LoopColors)
	}

	// Triangles index loops directly, no renumbering needed.
	copy(buf.Indices, tris)

	return buf, nil
}
