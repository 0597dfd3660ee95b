package model

import "errors"

// ErrSessionNotFound reports a session id that no live tracker answers to.
// The registry returns it and the API layer maps it to 404 with errors.Is,
// so wrapping is safe anywhere in between.
var ErrSessionNotFound = errors.New("session not found")
