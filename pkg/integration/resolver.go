package integration

import (
	"math"

	"github.com/backkem/espmatter/pkg/datamodel"
)

// InvalidIndex is returned by ClusterEndpointIndex when the endpoint is
// absent or does not carry the cluster.
const InvalidIndex uint16 = math.MaxUint16

// ClusterEndpointIndex returns the slot index of endpoint for cluster: the
// number of endpoints created before it that also carry cluster as a
// server. The index is only stable while the topology is unchanged.
func ClusterEndpointIndex(topo datamodel.Topology, endpoint datamodel.EndpointID, cluster datamodel.ClusterID) uint16 {
	target := topo.Endpoint(endpoint)
	if target == nil || !target.HasServerCluster(cluster) {
		return InvalidIndex
	}

	var index uint16
	for _, ep := range topo.Endpoints() {
		if ep.ID() == endpoint {
			return index
		}
		if ep.HasServerCluster(cluster) {
			index++
		}
	}
	// The endpoint was removed between the lookup and the walk.
	return InvalidIndex
}
