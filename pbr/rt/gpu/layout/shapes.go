package layout

import "github.com/go-gl/mathgl/mgl32"

// VertexStride is the size of one vertex: position vec3, normal vec3, uv vec2.
const VertexStride = 8 * 4

// cubeFaces lists two edge vectors per face in +X,-X,+Y,-Y,+Z,-Z order,
// chosen so u x v is the outward normal.
var cubeFaces = [6][2]mgl32.Vec3{
	{{0, 0, -1}, {0, 1, 0}},
	{{0, 0, 1}, {0, 1, 0}},
	{{1, 0, 0}, {0, 0, -1}},
	{{1, 0, 0}, {0, 0, 1}},
	{{1, 0, 0}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 1, 0}},
}

// CubeVertices returns the 36 vertices of the [-1,1] cube, counter-clockwise
// seen from outside.
func CubeVertices() []float32 {
	corners := [6][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, -1}, {1, 1}, {-1, 1}}
	out := make([]float32, 0, 36*8)
	for _, f := range cubeFaces {
		u, v := f[0], f[1]
		n := u.Cross(v)
		for _, c := range corners {
			p := n.Add(u.Mul(c[0])).Add(v.Mul(c[1]))
			out = append(out, p[0], p[1], p[2], n[0], n[1], n[2], (c[0]+1)/2, (1-c[1])/2)
		}
	}
	return out
}

// QuadVertices returns a fullscreen quad in clip space. uv (0,0) is the top
// left texel, where WebGPU stores the first image row.
func QuadVertices() []float32 {
	corners := [6][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, -1}, {1, 1}, {-1, 1}}
	out := make([]float32, 0, 6*8)
	for _, c := range corners {
		out = append(out, c[0], c[1], 0, 0, 0, 1, (c[0]+1)/2, (1-c[1])/2)
	}
	return out
}
