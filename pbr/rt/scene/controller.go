package scene

import (
	"github.com/gekko3d/lumen/pbr/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyController turns held keys and mouse motion into free-flight camera
// movement. The window layer fills it in from input callbacks and Apply
// consumes it once per frame.
type FlyController struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool
	// Fast multiplies the camera speed while held.
	Fast bool

	lookX, lookY float32
}

const fastMultiplier = 4

// Look accumulates a mouse delta in pixels until the next Apply.
func (c *FlyController) Look(dx, dy float32) {
	c.lookX += dx
	c.lookY += dy
}

// Apply moves and turns cam for a frame of dt seconds.
func (c *FlyController) Apply(cam *core.Camera, dt float32) {
	cam.Yaw += c.lookX * cam.Sensitivity
	cam.Pitch -= c.lookY * cam.Sensitivity
	cam.ClampPitch()
	c.lookX, c.lookY = 0, 0

	if dt <= 0 {
		return
	}
	var move mgl32.Vec3
	fwd, right := cam.Forward(), cam.Right()
	if c.Forward {
		move = move.Add(fwd)
	}
	if c.Back {
		move = move.Sub(fwd)
	}
	if c.Right {
		move = move.Add(right)
	}
	if c.Left {
		move = move.Sub(right)
	}
	if c.Up {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if c.Down {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() == 0 {
		return
	}
	speed := cam.Speed
	if c.Fast {
		speed *= fastMultiplier
	}
	cam.Position = cam.Position.Add(move.Normalize().Mul(speed * dt))
}

// Release clears every held key, for when the window loses focus.
func (c *FlyController) Release() {
	*c = FlyController{}
}
