package ephem

import "errors"

// ErrUnknownBody indicates a body name the ephemeris does not model.
var ErrUnknownBody = errors.New("unknown body")
