package clusters

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
)

// Base provides common functionality for cluster server implementations.
// Embed it to get identity, the ClusterRevision and FeatureMap global
// attributes and data version management.
type Base struct {
	id          datamodel.ClusterID
	endpointID  datamodel.EndpointID
	revision    uint16
	featureMap  atomic.Uint32
	dataVersion atomic.Uint32
}

// NewBase creates a cluster base. The data version starts at a random value.
func NewBase(id datamodel.ClusterID, endpointID datamodel.EndpointID, revision uint16) *Base {
	b := &Base{
		id:         id,
		endpointID: endpointID,
		revision:   revision,
	}
	b.dataVersion.Store(randomDataVersion())
	return b
}

// ID returns the cluster ID.
func (b *Base) ID() datamodel.ClusterID {
	return b.id
}

// EndpointID returns the endpoint this cluster belongs to.
func (b *Base) EndpointID() datamodel.EndpointID {
	return b.endpointID
}

// ClusterRevision returns the cluster revision.
func (b *Base) ClusterRevision() uint16 {
	return b.revision
}

// FeatureMap returns the feature map.
func (b *Base) FeatureMap() uint32 {
	return b.featureMap.Load()
}

// SetFeatureMap sets the feature map bits.
func (b *Base) SetFeatureMap(features uint32) {
	b.featureMap.Store(features)
}

// DataVersion returns the current data version.
func (b *Base) DataVersion() datamodel.DataVersion {
	return datamodel.DataVersion(b.dataVersion.Load())
}

// IncrementDataVersion increments the data version.
// Call this whenever an attribute value changes.
func (b *Base) IncrementDataVersion() {
	b.dataVersion.Add(1)
}

// Path returns the concrete cluster path for this cluster.
func (b *Base) Path() datamodel.ConcreteClusterPath {
	return datamodel.ConcreteClusterPath{Endpoint: b.endpointID, Cluster: b.id}
}

// Paths returns the single path served by this cluster.
func (b *Base) Paths() []datamodel.ConcreteClusterPath {
	return []datamodel.ConcreteClusterPath{b.Path()}
}

// AttributePath returns a concrete attribute path on this cluster.
func (b *Base) AttributePath(attrID datamodel.AttributeID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{
		Endpoint:  b.endpointID,
		Cluster:   b.id,
		Attribute: attrID,
	}
}

// Startup is a no-op; clusters override it when they need the context.
func (b *Base) Startup(context.Context) error {
	return nil
}

// Shutdown is a no-op; clusters override it to release resources.
func (b *Base) Shutdown(registry.ShutdownType) {}

// ReadGlobalAttribute handles reads of the scalar global attributes.
// Returns false if attrID is not one of them.
func (b *Base) ReadGlobalAttribute(attrID datamodel.AttributeID) (datamodel.Value, bool) {
	switch attrID {
	case datamodel.GlobalAttrClusterRevision:
		return datamodel.Uint16(b.revision), true
	case datamodel.GlobalAttrFeatureMap:
		return datamodel.Bitmap32(b.FeatureMap()), true
	default:
		return datamodel.Value{}, false
	}
}

// CheckPath verifies that path addresses this cluster.
func (b *Base) CheckPath(path datamodel.ConcreteAttributePath) error {
	if path.Endpoint != b.endpointID || path.Cluster != b.id {
		return ErrWrongCluster
	}
	return nil
}

func randomDataVersion() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return binary.LittleEndian.Uint32(buf[:])
}
