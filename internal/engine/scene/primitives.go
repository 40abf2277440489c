package scene

import "github.com/Faultbox/toonview/internal/engine/host"

// Plane returns a single-quad horizontal plane of the given half extent,
// normal up, no color layer.
func Plane(size float32) *host.Mesh {
	s := size
	return &host.Mesh{
		Vertices: [][3]float32{
			{-s, 0, -s}, {s, 0, -s}, {s, 0, s}, {-s, 0, s},
		},
		LoopVertex: []int{0, 3, 2, 1},
		LoopNormals: [][3]float32{
			{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0},
		},
		FaceLoopStart: []int{0},
		FaceLoopCount: []int{4},
	}
}

// cubeFaces lists each face as four vertex indices (counter-clockwise
// seen from outside) plus its normal.
var cubeFaces = []struct {
	v [4]int
	n [3]float32
}{
	{[4]int{3, 2, 1, 0}, [3]float32{0, 0, -1}},
	{[4]int{6, 7, 4, 5}, [3]float32{0, 0, 1}},
	{[4]int{7, 3, 0, 4}, [3]float32{-1, 0, 0}},
	{[4]int{2, 6, 5, 1}, [3]float32{1, 0, 0}},
	{[4]int{7, 6, 2, 3}, [3]float32{0, 1, 0}},
	{[4]int{0, 1, 5, 4}, [3]float32{0, -1, 0}},
}

// cubeFaceColors gives each face a flat vertex color.
var cubeFaceColors = [][4]float32{
	{0.9, 0.3, 0.3, 1},
	{0.3, 0.9, 0.3, 1},
	{0.3, 0.3, 0.9, 1},
	{0.9, 0.9, 0.3, 1},
	{0.9, 0.3, 0.9, 1},
	{0.3, 0.9, 0.9, 1},
}

// Cube returns an axis-aligned cube of the given half extent with
// per-face split normals and a vertex color layer.
func Cube(size float32) *host.Mesh {
	s := size
	mesh := &host.Mesh{
		Vertices: [][3]float32{
			{-s, -s, -s}, {s, -s, -s}, {s, s, -s}, {-s, s, -s},
			{-s, -s, s}, {s, -s, s}, {s, s, s}, {-s, s, s},
		},
	}

	for fi, face := range cubeFaces {
		mesh.FaceLoopStart = append(mesh.FaceLoopStart, len(mesh.LoopVertex))
		mesh.FaceLoopCount = append(mesh.FaceLoopCount, 4)
		for _, vi := range face.v {
			mesh.LoopVertex = append(mesh.LoopVertex, vi)
			mesh.LoopNormals = append(mesh.LoopNormals, face.n)
			mesh.LoopColors = append(mesh.LoopColors, cubeFaceColors[fi])
		}
	}
	return mesh
}
