package delivery

import "errors"

// Sentinel kinds for delivery errors.
var (
	ErrBeaconFull   = errors.New("beacon queue full")
	ErrBeaconClosed = errors.New("beacon closed")
	ErrSendRejected = errors.New("webhook rejected send")
)
