package tracker

import (
	"errors"

	"github.com/okian/pagepulse/internal/domain/model"
)

// Sentinel kinds for engine errors.
var (
	ErrAlreadyStarted = errors.New("tracker already started")
	ErrNoDeliverer    = errors.New("tracker has no deliverer")
	ErrNoAssigner     = errors.New("no experiment assigner configured")

	// ErrSessionNotFound aliases the shared model sentinel so callers can
	// match it from either package.
	ErrSessionNotFound = model.ErrSessionNotFound
)
