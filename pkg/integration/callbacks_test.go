package integration

import (
	"errors"
	"testing"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind     string
	endpoint datamodel.EndpointID
}

// fakeFamily records callback invocations.
type fakeFamily struct {
	id      datamodel.ClusterID
	initErr error
	events  []event
}

func (f *fakeFamily) ClusterID() datamodel.ClusterID { return f.id }

func (f *fakeFamily) ServerInitCallback(endpoint datamodel.EndpointID) error {
	f.events = append(f.events, event{"init", endpoint})
	return f.initErr
}

func (f *fakeFamily) ServerShutdownCallback(endpoint datamodel.EndpointID, _ registry.ShutdownType) error {
	f.events = append(f.events, event{"shutdown", endpoint})
	return nil
}

func (f *fakeFamily) PluginServerInitCallback() {
	f.events = append(f.events, event{"plugin-init", datamodel.InvalidEndpointID})
}

func (f *fakeFamily) PluginServerShutdownCallback() {
	f.events = append(f.events, event{"plugin-shutdown", datamodel.InvalidEndpointID})
}

func TestCallbacks_PluginInitOnce(t *testing.T) {
	node := newTopology(t, 0, testCluster, true, false, true)
	cb, err := NewCallbacks(CallbacksConfig{Topology: node})
	require.NoError(t, err)
	fam := &fakeFamily{id: testCluster}
	cb.Add(fam)

	require.NoError(t, cb.PluginInitAll())
	assert.Equal(t, []event{
		{"plugin-init", datamodel.InvalidEndpointID},
		{"init", 0},
		{"init", 2},
	}, fam.events)

	fam.events = nil
	require.NoError(t, cb.ShutdownAll(registry.ClusterShutdown))
	assert.Equal(t, []event{
		{"shutdown", 2},
		{"shutdown", 0},
		{"plugin-shutdown", datamodel.InvalidEndpointID},
	}, fam.events)

	// Plugin callbacks never run twice.
	fam.events = nil
	require.NoError(t, cb.PluginInitAll())
	require.NoError(t, cb.ShutdownAll(registry.ClusterShutdown))
	assert.Equal(t, []event{{"init", 0}, {"init", 2}, {"shutdown", 2}, {"shutdown", 0}}, fam.events)
}

func TestCallbacks_ContinuesAfterFailure(t *testing.T) {
	node := datamodel.NewNode()
	ep, err := node.CreateEndpoint(datamodel.EndpointFlagNone)
	require.NoError(t, err)
	_, err = ep.CreateCluster(0x0001, datamodel.ClusterFlagServer)
	require.NoError(t, err)
	_, err = ep.CreateCluster(0x0002, datamodel.ClusterFlagServer)
	require.NoError(t, err)
	_, err = ep.CreateCluster(0x0003, datamodel.ClusterFlagClient)
	require.NoError(t, err)

	boom := errors.New("boom")
	failing := &fakeFamily{id: 0x0001, initErr: boom}
	healthy := &fakeFamily{id: 0x0002}
	client := &fakeFamily{id: 0x0003}

	cb, err := NewCallbacks(CallbacksConfig{Topology: node})
	require.NoError(t, err)
	cb.Add(failing, healthy, client)

	err = cb.EndpointUp(ep.ID())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, healthy.events, event{"init", 0})
	assert.Empty(t, client.events, "client clusters get no server callbacks")

	assert.NoError(t, cb.EndpointUp(77))
	assert.NoError(t, cb.EndpointDown(77, registry.ClusterShutdown))
	assert.NoError(t, cb.ServerInit(0, 0x0999))
}

func TestCallbacks_WithCoordinators(t *testing.T) {
	node := newTimeSyncNode(t, TimeSyncAttributes{})
	reg := registry.New(registry.Config{})
	ts, err := NewTimeSync(TimeSyncConfig{Accessor: node, Topology: node, Registry: reg})
	require.NoError(t, err)

	cb, err := NewCallbacks(CallbacksConfig{Topology: node})
	require.NoError(t, err)
	cb.Add(ts)

	require.NoError(t, cb.PluginInitAll())
	assert.Len(t, reg.Clusters(), 1)
	assert.NotNil(t, ts.Cluster())

	require.NoError(t, cb.EndpointDown(datamodel.RootEndpointID, registry.PermanentRemove))
	assert.Empty(t, reg.Clusters())
}

func TestNewCallbacks_RequiresTopology(t *testing.T) {
	_, err := NewCallbacks(CallbacksConfig{})
	assert.ErrorIs(t, err, ErrInvalidBuildConfig)
}
