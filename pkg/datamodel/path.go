package datamodel

import "fmt"

// Fundamental ID types used throughout the data model.
type (
	// EndpointID is a 16-bit endpoint identifier.
	EndpointID uint16

	// ClusterID is a 32-bit cluster identifier.
	ClusterID uint32

	// AttributeID is a 32-bit attribute identifier.
	AttributeID uint32

	// CommandID is a 32-bit command identifier.
	CommandID uint32

	// EventID is a 32-bit event identifier.
	EventID uint32

	// DataVersion is a 32-bit version number for cluster data.
	DataVersion uint32

	// DeviceTypeID is a 32-bit device type identifier.
	DeviceTypeID uint32
)

const (
	// RootEndpointID is the root node endpoint. It is always the first
	// endpoint created on a node.
	RootEndpointID EndpointID = 0

	// InvalidEndpointID doubles as the wildcard endpoint.
	InvalidEndpointID EndpointID = 0xFFFF

	// InvalidClusterID doubles as the wildcard cluster.
	InvalidClusterID ClusterID = 0xFFFFFFFF
)

// ConcreteClusterPath identifies a specific cluster instance on an endpoint.
// Used for routing requests to the correct cluster server.
type ConcreteClusterPath struct {
	Endpoint EndpointID
	Cluster  ClusterID
}

// String returns the path formatted as "ep/0xCLUSTER".
func (p ConcreteClusterPath) String() string {
	return fmt.Sprintf("%d/0x%04X", p.Endpoint, uint32(p.Cluster))
}

// ConcreteAttributePath identifies a specific attribute within a cluster.
type ConcreteAttributePath struct {
	Endpoint  EndpointID
	Cluster   ClusterID
	Attribute AttributeID
}

// ClusterPath returns the cluster path portion.
func (p ConcreteAttributePath) ClusterPath() ConcreteClusterPath {
	return ConcreteClusterPath{
		Endpoint: p.Endpoint,
		Cluster:  p.Cluster,
	}
}

// String returns the path formatted as "ep/0xCLUSTER/0xATTR".
func (p ConcreteAttributePath) String() string {
	return fmt.Sprintf("%d/0x%04X/0x%04X", p.Endpoint, uint32(p.Cluster), uint32(p.Attribute))
}

// ConcreteCommandPath identifies a specific command within a cluster.
type ConcreteCommandPath struct {
	Endpoint EndpointID
	Cluster  ClusterID
	Command  CommandID
}

// ClusterPath returns the cluster path portion.
func (p ConcreteCommandPath) ClusterPath() ConcreteClusterPath {
	return ConcreteClusterPath{
		Endpoint: p.Endpoint,
		Cluster:  p.Cluster,
	}
}
