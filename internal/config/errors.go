package config

import (
	"errors"
)

// Sentinel error kinds for this package, matchable with errors.Is. ErrLoad
// covers file and env layering failures; ErrInvalid covers settings that
// parsed fine but cannot run the agent.
var (
	ErrInvalid = errors.New("invalid agent config")
	ErrLoad    = errors.New("agent config load failed")
)
