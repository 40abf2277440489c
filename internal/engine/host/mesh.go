package host

import "errors"

// ErrNoUVs is returned by CalcTangents for meshes without a UV layer.
// Callers fall back to split normals instead of failing the build.
var ErrNoUVs = errors.New("host: mesh has no UV layer, cannot compute tangents")

// ErrBadPolygons is returned when the polygon table does not describe a
// consistent loop range, so no triangulated view can be produced.
var ErrBadPolygons = errors.New("host: malformed polygon table")

// ErrBadVertices is returned when a loop references a vertex outside the
// vertex table.
var ErrBadVertices = errors.New("host: loop references vertex out of range")

// Mesh is a snapshot of host mesh data in shared-vertex form: vertex
// coordinates are deduplicated and addressed per face corner (loop)
// through LoopVertex, while normals, colors and UVs are authored per loop.
type Mesh struct {
	// Vertices are the deduplicated vertex coordinates.
	Vertices [][3]float32

	// LoopVertex maps each loop to its vertex index. len(LoopVertex) is
	// the loop count of the mesh.
	LoopVertex []int

	// LoopNormals are per-loop shading normals, same length as LoopVertex.
	LoopNormals [][3]float32

	// LoopColors is the active vertex color layer, or nil when the mesh
	// has none.
	LoopColors [][4]float32

	// LoopUVs is the active UV layer, or nil. Tangents need it.
	LoopUVs [][2]float32

	// FaceLoopStart/FaceLoopCount describe each polygon as a run of
	// consecutive loops.
	FaceLoopStart []int
	FaceLoopCount []int

	tris [][3]uint32
}

// LoopTriangles returns the triangulated view of the mesh: one loop-index
// triple per output triangle, polygons of arbitrary arity fan-triangulated.
// The result is computed once and cached on the snapshot.
func (m *Mesh) LoopTriangles() ([][3]uint32, error) {
	if m.tris != nil {
		return m.tris, nil
	}
	if len(m.FaceLoopStart) != len(m.FaceLoopCount) {
		return nil, ErrBadPolygons
	}

	total := 0
	for i, count := range m.FaceLoopCount {
		start := m.FaceLoopStart[i]
		if count < 3 || start < 0 || start+count > len(m.LoopVertex) {
			return nil, ErrBadPolygons
		}
		total += count - 2
	}

	tris := make([][3]uint32, 0, total)
	for i, count := range m.FaceLoopCount {
		start := m.FaceLoopStart[i]
		for k := 1; k < count-1; k++ {
			tris = append(tris, [3]uint32{
				uint32(start),
				uint32(start + k),
				uint32(start + k + 1),
			})
		}
	}
	m.tris = tris
	return tris, nil
}

// CalcTangents computes per-loop tangent data. Tangent space needs a UV
// layer; without one this returns ErrNoUVs. The engine only uses the
// side effect the computation has on split normals, so the tangents
// themselves are not returned.
func (m *Mesh) CalcTangents() error {
	if len(m.LoopUVs) == 0 {
		return ErrNoUVs
	}
	if _, err := m.LoopTriangles(); err != nil {
		return err
	}
	return nil
}

// LoopCount returns the number of loops in the mesh.
func (m *Mesh) LoopCount() int {
	return len(m.LoopVertex)
}
