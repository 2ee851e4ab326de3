package registry

import "errors"

// Errors returned by the registry.
var (
	// ErrInvalidRegistration is returned for a nil registration, a nil cluster
	// or a cluster serving no paths.
	ErrInvalidRegistration = errors.New("registry: invalid registration")

	// ErrAlreadyRegistered is returned when the registration or its cluster is
	// already present.
	ErrAlreadyRegistered = errors.New("registry: already registered")

	// ErrPathInUse is returned when another server already serves one of the paths.
	ErrPathInUse = errors.New("registry: cluster path already in use")

	// ErrNotRegistered is returned when unregistering an unknown cluster.
	ErrNotRegistered = errors.New("registry: cluster not registered")

	// ErrClusterNotRegistered is returned when routing to a path with no server.
	ErrClusterNotRegistered = errors.New("registry: no cluster server for path")

	// ErrAlreadyStarted is returned by Start on a running registry.
	ErrAlreadyStarted = errors.New("registry: already started")
)
