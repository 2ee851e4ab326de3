package integration

import (
	"testing"

	"github.com/backkem/espmatter/pkg/clusters/timesync"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAssembleTimeSyncStartup(t *testing.T) {
	allFeatures := timesync.FeatureTimeZone | timesync.FeatureNTPClient | timesync.FeatureNTPServer

	tests := []struct {
		name     string
		attrs    attrMap
		wantErr  bool
		want     TimeSyncStartup
		optional bool
	}{
		{
			name:    "missing feature map",
			attrs:   attrMap{},
			wantErr: true,
		},
		{
			name:    "feature map wrong type",
			attrs:   attrMap{datamodel.GlobalAttrFeatureMap: datamodel.Uint32(0)},
			wantErr: true,
		},
		{
			name:  "no features",
			attrs: attrMap{datamodel.GlobalAttrFeatureMap: datamodel.Bitmap32(0)},
			want:  TimeSyncStartup{},
		},
		{
			name: "ntp client without dns resolve",
			attrs: attrMap{
				datamodel.GlobalAttrFeatureMap: datamodel.Bitmap32(timesync.FeatureNTPClient),
			},
			wantErr: true,
		},
		{
			name: "ntp client dns resolve wrong type",
			attrs: attrMap{
				datamodel.GlobalAttrFeatureMap:  datamodel.Bitmap32(timesync.FeatureNTPClient),
				timesync.AttrSupportsDNSResolve: datamodel.Uint8(1),
			},
			wantErr: true,
		},
		{
			name: "time zone database wrong type",
			attrs: attrMap{
				datamodel.GlobalAttrFeatureMap: datamodel.Bitmap32(timesync.FeatureTimeZone),
				timesync.AttrTimeZoneDatabase:  datamodel.Bool(true),
			},
			wantErr: true,
		},
		{
			name: "ntp server missing availability",
			attrs: attrMap{
				datamodel.GlobalAttrFeatureMap: datamodel.Bitmap32(timesync.FeatureNTPServer),
			},
			wantErr: true,
		},
		{
			name: "feature gated attributes ignored when feature absent",
			attrs: attrMap{
				datamodel.GlobalAttrFeatureMap:  datamodel.Bitmap32(timesync.FeatureTimeZone),
				timesync.AttrTimeZoneDatabase:   datamodel.Enum8(uint8(timesync.TimeZoneDatabasePartial)),
				timesync.AttrSupportsDNSResolve: datamodel.Uint8(9),
			},
			want: TimeSyncStartup{
				Features: timesync.FeatureTimeZone,
				Startup:  timesync.StartupConfiguration{TimeZoneDatabase: timesync.TimeZoneDatabasePartial},
			},
		},
		{
			name: "all features with time source",
			attrs: attrMap{
				datamodel.GlobalAttrFeatureMap:  datamodel.Bitmap32(allFeatures),
				timesync.AttrSupportsDNSResolve: datamodel.Bool(true),
				timesync.AttrTimeZoneDatabase:   datamodel.Enum8(uint8(timesync.TimeZoneDatabaseFull)),
				timesync.AttrNTPServerAvailable: datamodel.Bool(true),
				timesync.AttrTimeSource:         datamodel.Enum8(uint8(timesync.TimeSourceMatterNTP)),
			},
			want: TimeSyncStartup{
				Features: allFeatures,
				Startup: timesync.StartupConfiguration{
					SupportsDNSResolve: true,
					TimeZoneDatabase:   timesync.TimeZoneDatabaseFull,
					NTPServerAvailable: true,
					TimeSource:         timesync.TimeSourceMatterNTP,
				},
				Optional: timesync.OptionalAttributeSet(0).Set(timesync.OptionalTimeSource),
			},
		},
		{
			name: "time source wrong type is skipped",
			attrs: attrMap{
				datamodel.GlobalAttrFeatureMap: datamodel.Bitmap32(0),
				timesync.AttrTimeSource:        datamodel.Uint16(7),
			},
			want: TimeSyncStartup{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AssembleTimeSyncStartup(tt.attrs, datamodel.RootEndpointID)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAttributeRead)
				assert.Equal(t, TimeSyncStartup{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// newTimeSyncNode builds a node whose root endpoint carries Time
// Synchronization with the given attributes.
func newTimeSyncNode(t *testing.T, attrs TimeSyncAttributes) *datamodel.Node {
	t.Helper()
	node := datamodel.NewNode()
	root, err := node.CreateEndpoint(datamodel.EndpointFlagNone)
	require.NoError(t, err)
	_, err = CreateTimeSyncCluster(root, attrs)
	require.NoError(t, err)
	app, err := node.CreateEndpoint(datamodel.EndpointFlagNone)
	require.NoError(t, err)
	_, err = CreateTimeSyncCluster(app, attrs)
	require.NoError(t, err)
	return node
}

func TestTimeSync_RootEndpoint(t *testing.T) {
	src := timesync.TimeSourceAdmin
	node := newTimeSyncNode(t, TimeSyncAttributes{
		Features:           timesync.FeatureNTPClient | timesync.FeatureTimeZone,
		SupportsDNSResolve: true,
		TimeZoneDatabase:   timesync.TimeZoneDatabaseNone,
		TimeSource:         &src,
	})
	reg := registry.New(registry.Config{})

	ts, err := NewTimeSync(TimeSyncConfig{Accessor: node, Topology: node, Registry: reg})
	require.NoError(t, err)
	require.NoError(t, ts.ServerInitCallback(datamodel.RootEndpointID))

	c := ts.Cluster()
	require.NotNil(t, c)
	assert.True(t, c.Initialized())
	assert.Equal(t, timesync.FeatureNTPClient|timesync.FeatureTimeZone, c.FeatureMap())
	assert.True(t, c.StartupConfiguration().SupportsDNSResolve)
	assert.True(t, c.OptionalAttributes().IsSet(timesync.OptionalTimeSource))
	assert.Equal(t, src, c.StartupConfiguration().TimeSource)
	assert.Same(t, c, reg.Lookup(datamodel.ConcreteClusterPath{Endpoint: 0, Cluster: timesync.ClusterID}))

	require.NoError(t, ts.ServerShutdownCallback(datamodel.RootEndpointID, registry.ClusterShutdown))
	assert.Nil(t, ts.Cluster())
	assert.False(t, c.Initialized())
	assert.Empty(t, reg.Clusters())
}

func TestTimeSync_NonRootEndpointIgnored(t *testing.T) {
	node := newTimeSyncNode(t, TimeSyncAttributes{})
	reg := &mockRegistrar{}

	ts, err := NewTimeSync(TimeSyncConfig{Accessor: node, Topology: node, Registry: reg})
	require.NoError(t, err)

	assert.NoError(t, ts.ServerInitCallback(1))
	assert.NoError(t, ts.ServerShutdownCallback(1, registry.PermanentRemove))
	reg.AssertNotCalled(t, "Register", mock.Anything)
	reg.AssertNotCalled(t, "Unregister", mock.Anything, mock.Anything)
	assert.Nil(t, ts.Cluster())
}

func TestTimeSync_AssemblyFailureSkipsConstruction(t *testing.T) {
	node := datamodel.NewNode()
	root, err := node.CreateEndpoint(datamodel.EndpointFlagNone)
	require.NoError(t, err)
	c, err := root.CreateCluster(timesync.ClusterID, datamodel.ClusterFlagServer)
	require.NoError(t, err)
	_, err = c.CreateAttribute(datamodel.GlobalAttrFeatureMap, 0, datamodel.Bitmap32(timesync.FeatureNTPClient))
	require.NoError(t, err)
	_, err = c.CreateAttribute(timesync.AttrSupportsDNSResolve, 0, datamodel.Uint8(1))
	require.NoError(t, err)

	reg := &mockRegistrar{}
	ts, err := NewTimeSync(TimeSyncConfig{Accessor: node, Topology: node, Registry: reg})
	require.NoError(t, err)

	err = ts.ServerInitCallback(datamodel.RootEndpointID)
	assert.ErrorIs(t, err, ErrAttributeRead)
	assert.ErrorIs(t, err, datamodel.ErrTypeMismatch)
	reg.AssertNotCalled(t, "Register", mock.Anything)
	assert.Nil(t, ts.Cluster())

	// Shutdown of the never-constructed slot is a no-op.
	assert.NoError(t, ts.ServerShutdownCallback(datamodel.RootEndpointID, registry.ClusterShutdown))
	reg.AssertNotCalled(t, "Unregister", mock.Anything, mock.Anything)
}

type recordingDelegate struct {
	timesync.DefaultDelegate
	name string
}

func TestTimeSync_Delegate(t *testing.T) {
	node := newTimeSyncNode(t, TimeSyncAttributes{})
	reg := registry.New(registry.Config{})
	first := &recordingDelegate{name: "first"}

	ts, err := NewTimeSync(TimeSyncConfig{Accessor: node, Topology: node, Registry: reg, Delegate: first})
	require.NoError(t, err)
	assert.Same(t, first, ts.Delegate())

	require.NoError(t, ts.ServerInitCallback(datamodel.RootEndpointID))
	assert.Same(t, first, ts.Cluster().Delegate())

	second := &recordingDelegate{name: "second"}
	ts.SetDelegate(second)
	assert.Same(t, second, ts.Cluster().Delegate())
	assert.Same(t, second, ts.Delegate())

	// The delegate outlives the instance.
	require.NoError(t, ts.ServerShutdownCallback(datamodel.RootEndpointID, registry.ClusterShutdown))
	assert.Same(t, second, ts.Delegate())
	require.NoError(t, ts.ServerInitCallback(datamodel.RootEndpointID))
	assert.Same(t, second, ts.Cluster().Delegate())
}

func TestNewTimeSync_RequiresAccessor(t *testing.T) {
	node := datamodel.NewNode()
	_, err := NewTimeSync(TimeSyncConfig{Topology: node, Registry: &mockRegistrar{}})
	assert.ErrorIs(t, err, ErrInvalidBuildConfig)
}

func TestCreateTimeSyncCluster_FeatureConditional(t *testing.T) {
	node := newTimeSyncNode(t, TimeSyncAttributes{Features: timesync.FeatureNTPServer, NTPServerAvailable: true})
	c := node.Cluster(0, timesync.ClusterID)
	require.NotNil(t, c)

	assert.NotNil(t, c.Attribute(timesync.AttrNTPServerAvailable))
	assert.NotNil(t, c.Attribute(timesync.AttrUTCTime))
	assert.Nil(t, c.Attribute(timesync.AttrSupportsDNSResolve))
	assert.Nil(t, c.Attribute(timesync.AttrTimeZoneDatabase))
	assert.Nil(t, c.Attribute(timesync.AttrTimeSource))
	assert.True(t, c.Attribute(timesync.AttrNTPServerAvailable).HasFlag(datamodel.AttributeFlagNonVolatile))
}
