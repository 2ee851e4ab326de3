package datamodel

import "sync"

// DeviceTypeEntry describes a device type present on an endpoint.
type DeviceTypeEntry struct {
	DeviceTypeID DeviceTypeID
	Revision     uint8
}

// Endpoint is an endpoint on a node. It is created through Node and keeps its
// clusters in creation order.
type Endpoint struct {
	mu          sync.RWMutex
	id          EndpointID
	flags       EndpointFlag
	parentID    EndpointID
	composition EndpointComposition
	clusters    []*Cluster // creation order
	deviceTypes []DeviceTypeEntry
	node        *Node
}

func newEndpoint(n *Node, id EndpointID, flags EndpointFlag) *Endpoint {
	return &Endpoint{
		id:          id,
		flags:       flags,
		parentID:    InvalidEndpointID,
		composition: CompositionFullFamily,
		node:        n,
	}
}

// ID returns the endpoint ID.
func (e *Endpoint) ID() EndpointID {
	return e.id
}

// Flags returns the endpoint flags.
func (e *Endpoint) Flags() EndpointFlag {
	return e.flags
}

// ParentID returns the parent endpoint, or InvalidEndpointID when unset.
func (e *Endpoint) ParentID() EndpointID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parentID
}

// SetParent sets the parent endpoint ID.
func (e *Endpoint) SetParent(parentID EndpointID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parentID = parentID
}

// CompositionPattern returns the endpoint composition pattern.
func (e *Endpoint) CompositionPattern() EndpointComposition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.composition
}

// SetCompositionPattern sets the endpoint composition pattern.
func (e *Endpoint) SetCompositionPattern(pattern EndpointComposition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.composition = pattern
}

// CreateCluster adds a cluster to the endpoint. Creating a cluster that
// already exists merges the flags into the existing entry and returns it.
func (e *Endpoint) CreateCluster(id ClusterID, flags ClusterFlag) (*Cluster, error) {
	if flags&(ClusterFlagServer|ClusterFlagClient) == 0 {
		return nil, ErrInvalidClusterFlags
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range e.clusters {
		if c.id == id {
			c.mergeFlags(flags)
			return c, nil
		}
	}

	c := newCluster(e, id, flags)
	e.clusters = append(e.clusters, c)
	return c, nil
}

// Cluster returns the cluster with the given ID, or nil if not found.
func (e *Endpoint) Cluster(id ClusterID) *Cluster {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, c := range e.clusters {
		if c.id == id {
			return c
		}
	}
	return nil
}

// Clusters returns all clusters in creation order.
func (e *Endpoint) Clusters() []*Cluster {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Cluster(nil), e.clusters...)
}

// HasServerCluster reports whether the endpoint exposes the server side of id.
func (e *Endpoint) HasServerCluster(id ClusterID) bool {
	c := e.Cluster(id)
	return c != nil && c.HasServer()
}

// AddDeviceType adds a device type to the endpoint.
func (e *Endpoint) AddDeviceType(dt DeviceTypeEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deviceTypes = append(e.deviceTypes, dt)
}

// DeviceTypes returns all device types for this endpoint.
func (e *Endpoint) DeviceTypes() []DeviceTypeEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]DeviceTypeEntry{}, e.deviceTypes...)
}
