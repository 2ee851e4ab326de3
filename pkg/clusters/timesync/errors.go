package timesync

import "errors"

// Package errors.
var (
	// ErrTimeNotAccepted is returned when SetUTCTime offers a coarser time
	// than the node already has.
	ErrTimeNotAccepted = errors.New("timesync: time not accepted")

	// ErrInvalidStartup is returned by New for an inconsistent startup configuration.
	ErrInvalidStartup = errors.New("timesync: invalid startup configuration")
)
