package drivers

import "errors"

// Package errors.
var (
	// ErrNotInitialized is returned when a driver is used before Init or
	// after Shutdown.
	ErrNotInitialized = errors.New("drivers: driver not initialized")

	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("drivers: driver already initialized")

	// ErrBusy is returned when a connect or scan is already in progress.
	ErrBusy = errors.New("drivers: operation in progress")

	// ErrNoBackend is returned by constructors given a nil backend.
	ErrNoBackend = errors.New("drivers: backend is required")

	// ErrInvalidDataset is returned for a malformed Thread operational dataset.
	ErrInvalidDataset = errors.New("drivers: invalid operational dataset")

	// ErrLinkDown is returned by simulated backends while the link is down.
	ErrLinkDown = errors.New("drivers: link down")
)
