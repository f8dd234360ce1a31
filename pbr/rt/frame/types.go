package frame

import (
	"fmt"
	"strings"
)

// State is the lifecycle position of an Orchestrator.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateFrameOpen
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateFrameOpen:
		return "frame-open"
	case StateCleanedUp:
		return "cleaned-up"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ViewType selects what the present step puts on screen.
type ViewType int32

const (
	ViewFinal ViewType = iota
	ViewAlbedo
	ViewNormal
	ViewPosition
	ViewMaterial
	ViewEnvironment
)

var viewTypeNames = [...]string{"final", "albedo", "normal", "position", "material", "environment"}

func (v ViewType) Valid() bool { return v >= ViewFinal && v <= ViewEnvironment }

func (v ViewType) String() string {
	if v.Valid() {
		return viewTypeNames[v]
	}
	return fmt.Sprintf("ViewType(%d)", int32(v))
}

// ParseViewType accepts the names printed by String, case-insensitively.
func ParseViewType(s string) (ViewType, error) {
	for i, name := range viewTypeNames {
		if strings.EqualFold(s, name) {
			return ViewType(i), nil
		}
	}
	return ViewFinal, fmt.Errorf("unknown view type %q", s)
}

// Pass names one GPU phase of a frame.
type Pass string

const (
	PassGeometry    Pass = "geometry"
	PassEnvironment Pass = "environment"
	PassLighting    Pass = "lighting"
	PassForward     Pass = "forward"
)

// Stats describes the most recently drawn frame.
type Stats struct {
	Frame    uint64
	Passes   []Pass
	Deferred int
	Forward  int
	Culled   int
	Skipped  int
}
