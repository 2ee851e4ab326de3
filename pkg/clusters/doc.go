// Package clusters provides shared infrastructure for cluster server
// implementations.
//
// # Architecture
//
// Cluster servers embed Base for identity, global attributes and data
// version management, and implement registry.ServerCluster:
//
//	type MyCluster struct {
//	    *clusters.Base
//	}
//
// # Subpackages
//
// Individual cluster servers are in subpackages:
//   - clusters/generalcommissioning: General Commissioning Cluster (0x0030)
//   - clusters/networkcommissioning: Network Commissioning Cluster (0x0031)
//   - clusters/timesync: Time Synchronization Cluster (0x0038)
//
// # Helpers
//
// This package also provides feature bitmap helpers (features.go) and
// interaction status mapping for cluster errors (status.go).
package clusters
