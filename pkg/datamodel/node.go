package datamodel

import "sync"

// Node is the top of the data model. It owns endpoints in creation order
// and hands out endpoint IDs from a monotonically increasing counter so an
// ID is never reused within the node's persisted lifetime.
//
// All methods are safe for concurrent use.
type Node struct {
	mu           sync.RWMutex
	endpoints    []*Endpoint // creation order
	minUnusedID  EndpointID
	maxEndpoints int
	listener     AttributeChangeListener
}

// NodeConfig configures a Node.
type NodeConfig struct {
	// MaxEndpoints limits the number of endpoints. Zero means unlimited.
	MaxEndpoints int

	// MinUnusedEndpointID seeds the ID allocator, typically from storage.
	MinUnusedEndpointID EndpointID
}

// NewNode creates a new empty node with an unlimited endpoint count.
func NewNode() *Node {
	return NewNodeWithConfig(NodeConfig{})
}

// NewNodeWithConfig creates a new empty node.
func NewNodeWithConfig(cfg NodeConfig) *Node {
	return &Node{
		minUnusedID:  cfg.MinUnusedEndpointID,
		maxEndpoints: cfg.MaxEndpoints,
	}
}

// CreateEndpoint appends a new endpoint using the lowest never-used ID.
func (n *Node) CreateEndpoint(flags EndpointFlag) (*Endpoint, error) {
	n.mu.Lock()

	if n.maxEndpoints > 0 && len(n.endpoints) >= n.maxEndpoints {
		n.mu.Unlock()
		return nil, ErrEndpointLimit
	}
	if n.minUnusedID == InvalidEndpointID {
		n.mu.Unlock()
		return nil, ErrEndpointLimit
	}

	ep := newEndpoint(n, n.minUnusedID, flags)
	n.minUnusedID++
	n.endpoints = append(n.endpoints, ep)
	next := n.minUnusedID
	listener := n.listener
	n.mu.Unlock()

	if al, ok := listener.(EndpointAllocationListener); ok {
		al.OnEndpointIDAllocated(next)
	}
	return ep, nil
}

// ResumeEndpoint re-creates an endpoint with an ID allocated in an earlier
// run. The ID must be below the allocator watermark and not currently present.
func (n *Node) ResumeEndpoint(id EndpointID, flags EndpointFlag) (*Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ep := range n.endpoints {
		if ep.id == id {
			return nil, ErrEndpointExists
		}
	}
	if id >= n.minUnusedID {
		return nil, ErrEndpointNotAllocated
	}
	if n.maxEndpoints > 0 && len(n.endpoints) >= n.maxEndpoints {
		return nil, ErrEndpointLimit
	}

	ep := newEndpoint(n, id, flags)
	n.endpoints = append(n.endpoints, ep)
	return ep, nil
}

// DestroyEndpoint removes an endpoint created with EndpointFlagDestroyable.
func (n *Node) DestroyEndpoint(id EndpointID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, ep := range n.endpoints {
		if ep.id != id {
			continue
		}
		if ep.flags&EndpointFlagDestroyable == 0 {
			return ErrEndpointNotDestroyable
		}
		n.endpoints = append(n.endpoints[:i], n.endpoints[i+1:]...)
		return nil
	}
	return ErrEndpointNotFound
}

// Endpoint returns the endpoint with the given ID, or nil if not found.
func (n *Node) Endpoint(id EndpointID) *Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ep := range n.endpoints {
		if ep.id == id {
			return ep
		}
	}
	return nil
}

// Endpoints returns all endpoints in creation order.
func (n *Node) Endpoints() []*Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Endpoint(nil), n.endpoints...)
}

// EndpointCount returns the number of endpoints.
func (n *Node) EndpointCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.endpoints)
}

// MinUnusedEndpointID returns the next ID CreateEndpoint will hand out.
func (n *Node) MinUnusedEndpointID() EndpointID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.minUnusedID
}

// Cluster returns the cluster at the given endpoint, or nil if either is missing.
func (n *Node) Cluster(endpointID EndpointID, clusterID ClusterID) *Cluster {
	ep := n.Endpoint(endpointID)
	if ep == nil {
		return nil
	}
	return ep.Cluster(clusterID)
}

// Attribute returns the attribute at the given path, or nil if any part is missing.
func (n *Node) Attribute(path ConcreteAttributePath) *Attribute {
	c := n.Cluster(path.Endpoint, path.Cluster)
	if c == nil {
		return nil
	}
	return c.Attribute(path.Attribute)
}

// AttributeValue returns the tagged value stored at the given path.
func (n *Node) AttributeValue(path ConcreteAttributePath) (Value, error) {
	a, err := n.lookupAttribute(path)
	if err != nil {
		return Value{}, err
	}
	return a.Value(), nil
}

// SetAttributeValue stores v at the given path and notifies the listener.
func (n *Node) SetAttributeValue(path ConcreteAttributePath, v Value) error {
	a, err := n.lookupAttribute(path)
	if err != nil {
		return err
	}
	return a.Set(v)
}

// RestoreAttributeValue stores v without notifying the listener.
// Storage uses it to load persisted values at startup.
func (n *Node) RestoreAttributeValue(path ConcreteAttributePath, v Value) error {
	a, err := n.lookupAttribute(path)
	if err != nil {
		return err
	}
	return a.restore(v)
}

func (n *Node) lookupAttribute(path ConcreteAttributePath) (*Attribute, error) {
	ep := n.Endpoint(path.Endpoint)
	if ep == nil {
		return nil, ErrEndpointNotFound
	}
	c := ep.Cluster(path.Cluster)
	if c == nil {
		return nil, ErrClusterNotFound
	}
	a := c.Attribute(path.Attribute)
	if a == nil {
		return nil, ErrAttributeNotFound
	}
	return a, nil
}

// SetAttributeChangeListener sets the listener for attribute changes.
// Only one listener can be set at a time.
func (n *Node) SetAttributeChangeListener(listener AttributeChangeListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = listener
}

func (n *Node) notifyAttributeChanged(path ConcreteAttributePath) {
	n.mu.RLock()
	listener := n.listener
	n.mu.RUnlock()

	if listener != nil {
		listener.OnAttributeChanged(path)
	}
}

// Verify Node implements the interfaces.
var (
	_ Topology          = (*Node)(nil)
	_ AttributeAccessor = (*Node)(nil)
)
