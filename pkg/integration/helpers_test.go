package integration

import (
	"context"
	"testing"

	"github.com/backkem/espmatter/pkg/clusters"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCluster datamodel.ClusterID = 0xFFF1FC01

// newTopology creates endpoints first, first+1, ... where carry[i] tells
// whether endpoint i holds cluster as a server.
func newTopology(t *testing.T, first datamodel.EndpointID, cluster datamodel.ClusterID, carry ...bool) *datamodel.Node {
	t.Helper()
	node := datamodel.NewNodeWithConfig(datamodel.NodeConfig{MinUnusedEndpointID: first})
	for _, c := range carry {
		ep, err := node.CreateEndpoint(datamodel.EndpointFlagNone)
		require.NoError(t, err)
		if c {
			_, err = ep.CreateCluster(cluster, datamodel.ClusterFlagServer)
			require.NoError(t, err)
		} else {
			_, err = ep.CreateCluster(0x0006, datamodel.ClusterFlagServer)
			require.NoError(t, err)
		}
	}
	return node
}

// fakeInstance records the lifecycle calls made on it.
type fakeInstance struct {
	*clusters.Base
	initErr error
	inits   int
	deinits int
}

func newFakeInstance(cluster datamodel.ClusterID, endpoint datamodel.EndpointID) *fakeInstance {
	return &fakeInstance{Base: clusters.NewBase(cluster, endpoint, 1)}
}

func (f *fakeInstance) Init() error { f.inits++; return f.initErr }
func (f *fakeInstance) Deinit()     { f.deinits++ }

func (f *fakeInstance) ReadAttribute(_ context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	if v, ok := f.ReadGlobalAttribute(path.Attribute); ok {
		return v, nil
	}
	return datamodel.Value{}, clusters.ErrUnsupportedAttribute
}

func (f *fakeInstance) WriteAttribute(context.Context, datamodel.ConcreteAttributePath, datamodel.Value) error {
	return clusters.ErrUnsupportedWrite
}

// fakeFactory hands out fakeInstances and remembers them.
type fakeFactory struct {
	cluster   datamodel.ClusterID
	initErr   error
	err       error
	endpoints []datamodel.EndpointID
	made      []*fakeInstance
}

func (f *fakeFactory) build(endpoint datamodel.EndpointID) (Instance, error) {
	f.endpoints = append(f.endpoints, endpoint)
	if f.err != nil {
		return nil, f.err
	}
	inst := newFakeInstance(f.cluster, endpoint)
	inst.initErr = f.initErr
	f.made = append(f.made, inst)
	return inst, nil
}

// mockRegistrar is a testify mock of the cluster registry.
type mockRegistrar struct {
	mock.Mock
}

var _ Registrar = (*mockRegistrar)(nil)

func (m *mockRegistrar) Register(reg *registry.Registration) error {
	return m.Called(reg.Cluster).Error(0)
}

func (m *mockRegistrar) Unregister(c registry.ServerCluster, t registry.ShutdownType) error {
	return m.Called(c, t).Error(0)
}

// attrMap is an AttributeAccessor over a fixed set of values.
type attrMap map[datamodel.AttributeID]datamodel.Value

func (m attrMap) AttributeValue(path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	v, ok := m[path.Attribute]
	if !ok {
		return datamodel.Value{}, datamodel.ErrAttributeNotFound
	}
	return v, nil
}
