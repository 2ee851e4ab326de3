package datamodel

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// Cluster is a cluster entry on an endpoint: its flags, data version and
// attribute storage. Server behavior lives in cluster server instances
// registered separately; this type only records what the endpoint exposes.
type Cluster struct {
	mu          sync.RWMutex
	id          ClusterID
	endpointID  EndpointID
	flags       ClusterFlag
	dataVersion atomic.Uint32
	attributes  []*Attribute // creation order
	endpoint    *Endpoint
}

func newCluster(ep *Endpoint, id ClusterID, flags ClusterFlag) *Cluster {
	c := &Cluster{
		id:         id,
		endpointID: ep.id,
		flags:      flags,
		endpoint:   ep,
	}
	c.dataVersion.Store(randomDataVersion())
	return c
}

// ID returns the cluster ID.
func (c *Cluster) ID() ClusterID {
	return c.id
}

// EndpointID returns the endpoint this cluster belongs to.
func (c *Cluster) EndpointID() EndpointID {
	return c.endpointID
}

// Flags returns the cluster flags.
func (c *Cluster) Flags() ClusterFlag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flags
}

// HasServer reports whether the server side of the cluster is present.
func (c *Cluster) HasServer() bool {
	return c.Flags()&ClusterFlagServer != 0
}

// HasClient reports whether the client side of the cluster is present.
func (c *Cluster) HasClient() bool {
	return c.Flags()&ClusterFlagClient != 0
}

func (c *Cluster) mergeFlags(flags ClusterFlag) {
	c.mu.Lock()
	c.flags |= flags
	c.mu.Unlock()
}

// Path returns the concrete cluster path.
func (c *Cluster) Path() ConcreteClusterPath {
	return ConcreteClusterPath{Endpoint: c.endpointID, Cluster: c.id}
}

// DataVersion returns the current data version.
func (c *Cluster) DataVersion() DataVersion {
	return DataVersion(c.dataVersion.Load())
}

// IncrementDataVersion increments the data version.
func (c *Cluster) IncrementDataVersion() {
	c.dataVersion.Add(1)
}

// CreateAttribute adds an attribute with an initial value. The value's type
// becomes the attribute's type.
func (c *Cluster) CreateAttribute(id AttributeID, flags AttributeFlag, initial Value) (*Attribute, error) {
	if !initial.IsValid() {
		return nil, ErrTypeMismatch
	}
	if initial.Null && flags&AttributeFlagNullable == 0 {
		return nil, ErrNotNullable
	}
	initial.Nullable = flags&AttributeFlagNullable != 0

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.attributes {
		if a.id == id {
			return nil, ErrAttributeExists
		}
	}

	a := &Attribute{
		id:        id,
		flags:     flags,
		valueType: initial.Type,
		value:     initial,
		cluster:   c,
	}
	c.attributes = append(c.attributes, a)
	return a, nil
}

// Attribute returns the attribute with the given ID, or nil if not found.
func (c *Cluster) Attribute(id AttributeID) *Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.attributes {
		if a.id == id {
			return a
		}
	}
	return nil
}

// Attributes returns all attributes in creation order.
func (c *Cluster) Attributes() []*Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Attribute(nil), c.attributes...)
}

func (c *Cluster) notify(path ConcreteAttributePath) {
	if c.endpoint != nil && c.endpoint.node != nil {
		c.endpoint.node.notifyAttributeChanged(path)
	}
}

// randomDataVersion generates a random initial data version.
func randomDataVersion() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return binary.LittleEndian.Uint32(buf[:])
}
