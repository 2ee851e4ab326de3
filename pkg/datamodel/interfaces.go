package datamodel

// Topology is the read-only view of the endpoint tree consumed by
// integration code.
type Topology interface {
	// Endpoint returns the endpoint with the specified ID, or nil if not found.
	Endpoint(id EndpointID) *Endpoint

	// Endpoints returns all endpoints in creation order.
	Endpoints() []*Endpoint
}

// AttributeAccessor reads tagged attribute values.
// Implementations fail when the endpoint, cluster or attribute is absent.
type AttributeAccessor interface {
	AttributeValue(path ConcreteAttributePath) (Value, error)
}

// AttributeChangeListener is notified when attribute values change.
type AttributeChangeListener interface {
	// OnAttributeChanged is called after the value at path changed.
	OnAttributeChanged(path ConcreteAttributePath)
}

// EndpointAllocationListener is an optional extension of
// AttributeChangeListener notified whenever the endpoint ID watermark moves.
type EndpointAllocationListener interface {
	OnEndpointIDAllocated(next EndpointID)
}
