package core

// WindowSpecs sizes every window-relative render target.
type WindowSpecs struct {
	Width  uint32
	Height uint32
}

func (w WindowSpecs) Aspect() float32 {
	if w.Height == 0 {
		return 1
	}
	return float32(w.Width) / float32(w.Height)
}

func (w WindowSpecs) Valid() bool {
	return w.Width > 0 && w.Height > 0
}
