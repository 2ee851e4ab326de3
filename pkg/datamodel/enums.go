// Package datamodel provides the application-owned Matter data model: a node
// holding endpoints, each endpoint holding clusters, each cluster holding
// typed attribute values.
//
// Everything is kept in creation order. Integration code walks that order to
// map endpoints onto fixed slots of cluster server instances, so the order
// is part of the contract, not an implementation detail.
package datamodel

import "strings"

// EndpointFlag describes endpoint lifecycle properties.
type EndpointFlag uint16

const (
	// EndpointFlagNone marks a permanent endpoint.
	EndpointFlagNone EndpointFlag = 0

	// EndpointFlagDestroyable allows DestroyEndpoint to remove the endpoint.
	EndpointFlagDestroyable EndpointFlag = 1 << 0

	// EndpointFlagBridge marks an aggregator/bridge endpoint.
	EndpointFlagBridge EndpointFlag = 1 << 1
)

// String returns a "|" separated list of set flags.
func (f EndpointFlag) String() string {
	return flagString(uint32(f), []string{"Destroyable", "Bridge"})
}

// ClusterFlag describes which sides of a cluster an endpoint implements.
type ClusterFlag uint8

const (
	// ClusterFlagNone is not a valid creation flag on its own.
	ClusterFlagNone ClusterFlag = 0

	// ClusterFlagServer marks the server side of the cluster.
	ClusterFlagServer ClusterFlag = 1 << 0

	// ClusterFlagClient marks the client side of the cluster.
	ClusterFlagClient ClusterFlag = 1 << 1
)

// String returns a "|" separated list of set flags.
func (f ClusterFlag) String() string {
	return flagString(uint32(f), []string{"Server", "Client"})
}

// AttributeFlag describes storage and access properties of an attribute.
type AttributeFlag uint16

const (
	AttributeFlagNone AttributeFlag = 0

	// AttributeFlagWritable allows external writes.
	AttributeFlagWritable AttributeFlag = 1 << 0

	// AttributeFlagNonVolatile persists the value across restarts.
	AttributeFlagNonVolatile AttributeFlag = 1 << 1

	// AttributeFlagNullable allows null values.
	AttributeFlagNullable AttributeFlag = 1 << 2
)

// String returns a "|" separated list of set flags.
func (f AttributeFlag) String() string {
	return flagString(uint32(f), []string{"Writable", "NonVolatile", "Nullable"})
}

// EndpointComposition defines how child endpoints are organized.
type EndpointComposition int

const (
	// CompositionTree indicates a tree pattern (parent-child hierarchy).
	CompositionTree EndpointComposition = iota

	// CompositionFullFamily indicates all descendants are listed in the PartsList.
	CompositionFullFamily
)

// String returns a human-readable name for the composition pattern.
func (c EndpointComposition) String() string {
	switch c {
	case CompositionTree:
		return "Tree"
	case CompositionFullFamily:
		return "FullFamily"
	default:
		return "Unknown"
	}
}

func flagString(v uint32, names []string) string {
	if v == 0 {
		return "None"
	}
	var parts []string
	for i, name := range names {
		if v&(1<<uint(i)) != 0 {
			parts = append(parts, name)
			v &^= 1 << uint(i)
		}
	}
	if v != 0 {
		parts = append(parts, "Unknown")
	}
	return strings.Join(parts, "|")
}
