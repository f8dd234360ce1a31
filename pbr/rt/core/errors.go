package core

import "errors"

var (
	// ErrCapacityExceeded is returned when every light slot is live and none was freed.
	ErrCapacityExceeded = errors.New("light capacity exceeded")
	// ErrResourceAllocation is fatal: rendering cannot proceed without its targets.
	ErrResourceAllocation = errors.New("render resource allocation failed")
	// ErrSourceLoad means an equirectangular source could not be loaded; nothing was overwritten.
	ErrSourceLoad = errors.New("environment source load failed")
	// ErrSequence flags a frame lifecycle call made in the wrong state.
	ErrSequence = errors.New("frame sequencing violation")
)
