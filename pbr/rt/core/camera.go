package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is the per-frame view the orchestrator captures in BeginFrame.
// Y is up; yaw 0 looks down -Z.
type Camera struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	FovY        float32 // degrees
	Near        float32
	Far         float32
	Speed       float32
	Sensitivity float32
}

func NewCamera() *Camera {
	return &Camera{
		Position:    mgl32.Vec3{0, 2, 10},
		FovY:        60,
		Near:        0.1,
		Far:         1000,
		Speed:       10.0,
		Sensitivity: 0.003,
	}
}

func (c *Camera) Forward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *Camera) Right() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect == 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// ClampPitch keeps the camera from flipping over the poles.
func (c *Camera) ClampPitch() {
	const limit = math.Pi/2 - 0.01
	c.Pitch = mgl32.Clamp(c.Pitch, -limit, limit)
}

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0 with the normal pointing inside.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0)
	planes[1] = r3.Sub(r0)
	planes[2] = r3.Add(r1)
	planes[3] = r3.Sub(r1)
	planes[4] = r3.Add(r2) // OpenGL-style -1..1
	planes[5] = r3.Sub(r2)

	for i := 0; i < 6; i++ {
		length := planes[i].Vec3().Len()
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}
	return planes
}

// InFrustum reports whether any part of the box lies inside all six planes.
func (b AABB) InFrustum(planes [6]mgl32.Vec4) bool {
	for _, p := range planes {
		// positive vertex: the corner furthest along the plane normal
		v := b.Min
		for i := 0; i < 3; i++ {
			if p[i] >= 0 {
				v[i] = b.Max[i]
			}
		}
		if p.Dot(v.Vec4(1)) < 0 {
			return false
		}
	}
	return true
}
