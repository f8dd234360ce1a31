package gfx

// SaveState snapshots the viewport and culling state of d and returns a
// function that restores them. Use it with defer so every exit path,
// including early error returns, puts the state back.
func SaveState(d Device) (restore func()) {
	vp := d.Viewport()
	cull := d.CullFace()
	return func() {
		d.SetViewport(vp)
		d.SetCullFace(cull)
	}
}

// WithoutCulling disables face culling and returns the restore function.
func WithoutCulling(d Device) (restore func()) {
	restore = SaveState(d)
	d.SetCullFace(false)
	return restore
}
