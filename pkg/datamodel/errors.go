package datamodel

import "errors"

// Errors returned by datamodel operations.
var (
	// ErrEndpointNotFound indicates the requested endpoint does not exist.
	ErrEndpointNotFound = errors.New("datamodel: endpoint not found")

	// ErrEndpointExists indicates an endpoint with the same ID already exists.
	ErrEndpointExists = errors.New("datamodel: endpoint already exists")

	// ErrEndpointNotAllocated indicates a resumed endpoint ID was never handed out.
	ErrEndpointNotAllocated = errors.New("datamodel: endpoint id was never allocated")

	// ErrEndpointNotDestroyable indicates the endpoint lacks EndpointFlagDestroyable.
	ErrEndpointNotDestroyable = errors.New("datamodel: endpoint is not destroyable")

	// ErrEndpointLimit indicates the node cannot hold more endpoints.
	ErrEndpointLimit = errors.New("datamodel: endpoint limit reached")

	// ErrClusterNotFound indicates the requested cluster does not exist.
	ErrClusterNotFound = errors.New("datamodel: cluster not found")

	// ErrInvalidClusterFlags indicates neither the server nor client flag was set.
	ErrInvalidClusterFlags = errors.New("datamodel: server or client cluster flag required")

	// ErrAttributeNotFound indicates the requested attribute does not exist.
	ErrAttributeNotFound = errors.New("datamodel: attribute not found")

	// ErrAttributeExists indicates an attribute with the same ID already exists.
	ErrAttributeExists = errors.New("datamodel: attribute already exists")

	// ErrTypeMismatch indicates a value's type tag differs from the expected one.
	ErrTypeMismatch = errors.New("datamodel: value type mismatch")

	// ErrNullValue indicates a null value was read where a payload was expected.
	ErrNullValue = errors.New("datamodel: value is null")

	// ErrNotNullable indicates a null value was written to a non-nullable attribute.
	ErrNotNullable = errors.New("datamodel: attribute is not nullable")
)
