package core

import "errors"

var (
	// ErrNothingSelected indicates MoveObserverToSelected found no selection.
	ErrNothingSelected = errors.New("no object selected")
	// ErrNotABody indicates the selected object is not a solar-system body
	// an observer can stand on.
	ErrNotABody = errors.New("selected object is not a body")
	// ErrUnknownFrame indicates an unrecognised vision-direction frame name.
	ErrUnknownFrame = errors.New("unknown frame")
)
