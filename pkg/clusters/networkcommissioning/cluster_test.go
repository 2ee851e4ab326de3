package networkcommissioning

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/backkem/espmatter/pkg/clusters"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	initErr   error
	initCalls int
	shutdowns int
	cb        StatusChangeCallback
	enabled   bool
	networks  []NetworkInfo
}

func (d *fakeDriver) Init(cb StatusChangeCallback) error {
	d.initCalls++
	if d.initErr != nil {
		return d.initErr
	}
	d.cb = cb
	return nil
}

func (d *fakeDriver) Shutdown()               { d.shutdowns++; d.cb = nil }
func (d *fakeDriver) MaxNetworks() uint8      { return 1 }
func (d *fakeDriver) Networks() []NetworkInfo { return d.networks }
func (d *fakeDriver) Enabled() bool           { return d.enabled }
func (d *fakeDriver) SetEnabled(e bool) error { d.enabled = e; return nil }

type fakeWiFi struct {
	fakeDriver
	connect    ConnectResult
	connectErr error
	hang       bool
	scan       []WiFiScanResult
}

func (d *fakeWiFi) ScanMaxTimeSeconds() uint8    { return 10 }
func (d *fakeWiFi) ConnectMaxTimeSeconds() uint8 { return 20 }

func (d *fakeWiFi) RemoveNetwork(id []byte) (uint8, error) {
	for i, n := range d.networks {
		if bytes.Equal(n.NetworkID, id) {
			d.networks = append(d.networks[:i], d.networks[i+1:]...)
			return uint8(i), nil
		}
	}
	return 0, NewStatusError(StatusNetworkIDNotFound, "")
}

func (d *fakeWiFi) ReorderNetwork(id []byte, index uint8) error {
	if index != 0 {
		return NewStatusError(StatusOutOfRange, "single network")
	}
	return nil
}

func (d *fakeWiFi) ConnectNetwork(_ []byte, cb ConnectCallback) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	if !d.hang {
		go cb(d.connect)
	}
	return nil
}

func (d *fakeWiFi) AddOrUpdateWiFiNetwork(ssid, _ []byte) (uint8, error) {
	d.networks = []NetworkInfo{{NetworkID: append([]byte(nil), ssid...)}}
	return 0, nil
}

func (d *fakeWiFi) ScanWiFiNetworks(_ []byte, cb WiFiScanCallback) error {
	go cb(d.scan, nil)
	return nil
}

func (d *fakeWiFi) SupportedWiFiBands() []WiFiBand { return []WiFiBand{WiFiBand2G4} }

type fakeThread struct {
	fakeDriver
}

func (d *fakeThread) ScanMaxTimeSeconds() uint8                      { return 15 }
func (d *fakeThread) ConnectMaxTimeSeconds() uint8                   { return 30 }
func (d *fakeThread) RemoveNetwork([]byte) (uint8, error)            { return 0, nil }
func (d *fakeThread) ReorderNetwork([]byte, uint8) error             { return nil }
func (d *fakeThread) AddOrUpdateThreadNetwork([]byte) (uint8, error) { return 0, nil }
func (d *fakeThread) SupportedThreadFeatures() uint16                { return 0x1 }
func (d *fakeThread) ThreadVersion() uint16                          { return 4 }

func (d *fakeThread) ConnectNetwork(_ []byte, cb ConnectCallback) error {
	go cb(ConnectResult{Status: StatusSuccess})
	return nil
}

func (d *fakeThread) ScanThreadNetworks(cb ThreadScanCallback) error {
	go cb([]ThreadScanResult{{PanID: 0x1234, NetworkName: "home"}}, nil)
	return nil
}

type recordingBreadcrumb struct {
	values []uint64
}

func (r *recordingBreadcrumb) SetBreadcrumb(v uint64) { r.values = append(r.values, v) }

func newCluster(t *testing.T, d Driver, bc BreadcrumbTracker) *Cluster {
	t.Helper()
	c, err := New(Config{EndpointID: 1, Driver: d, Breadcrumb: bc})
	require.NoError(t, err)
	return c
}

func attrPath(id datamodel.AttributeID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: id}
}

func u64(v uint64) *uint64 { return &v }

func TestNew_RequiresDriver(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoDriver)
}

func TestFeaturesFor(t *testing.T) {
	assert.Equal(t, FeatureWiFiNetworkInterface, FeaturesFor(&fakeWiFi{}))
	assert.Equal(t, FeatureThreadNetworkInterface, FeaturesFor(&fakeThread{}))
	assert.Equal(t, FeatureEthernetNetworkInterface, FeaturesFor(&fakeDriver{}))
}

func TestCluster_InitDeinit(t *testing.T) {
	d := &fakeWiFi{}
	c := newCluster(t, d, nil)

	// Deinit before Init does not touch the driver.
	c.Deinit()
	assert.Zero(t, d.shutdowns)

	require.NoError(t, c.Init())
	require.NoError(t, c.Init())
	assert.Equal(t, 1, d.initCalls)
	assert.True(t, c.Initialized())

	c.Deinit()
	c.Deinit()
	assert.Equal(t, 1, d.shutdowns)
	assert.False(t, c.Initialized())
}

func TestCluster_InitFailure(t *testing.T) {
	d := &fakeDriver{initErr: errors.New("radio off")}
	c := newCluster(t, d, nil)

	assert.EqualError(t, c.Init(), "radio off")
	assert.False(t, c.Initialized())
}

func TestCluster_StatusChangeCallback(t *testing.T) {
	d := &fakeWiFi{}
	c := newCluster(t, d, nil)
	require.NoError(t, c.Init())

	before := c.DataVersion()
	code := int32(15)
	d.cb(StatusAuthFailure, []byte("home"), &code)

	require.NotNil(t, c.LastNetworkingStatus())
	assert.Equal(t, StatusAuthFailure, *c.LastNetworkingStatus())
	assert.Equal(t, []byte("home"), c.LastNetworkID())
	assert.NotEqual(t, before, c.DataVersion())

	v, err := c.ReadAttribute(context.Background(), attrPath(AttrLastConnectErrorValue))
	require.NoError(t, err)
	got, err := v.AsInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(15), got)
}

func TestCluster_ReadAttributes(t *testing.T) {
	ctx := context.Background()

	t.Run("wifi", func(t *testing.T) {
		c := newCluster(t, &fakeWiFi{}, nil)

		v, err := c.ReadAttribute(ctx, attrPath(AttrScanMaxTimeSeconds))
		require.NoError(t, err)
		assert.True(t, v.Equal(datamodel.Uint8(10)))

		v, err = c.ReadAttribute(ctx, attrPath(AttrLastNetworkingStatus))
		require.NoError(t, err)
		assert.True(t, v.IsNull())

		_, err = c.ReadAttribute(ctx, attrPath(AttrThreadVersion))
		assert.ErrorIs(t, err, clusters.ErrUnsupportedAttribute)

		assert.Contains(t, c.AttributeIDs(), AttrSupportedWiFiBands)
		assert.NotContains(t, c.AttributeIDs(), AttrThreadVersion)
		assert.Equal(t, []WiFiBand{WiFiBand2G4}, c.SupportedWiFiBands())
	})

	t.Run("thread", func(t *testing.T) {
		c := newCluster(t, &fakeThread{}, nil)

		v, err := c.ReadAttribute(ctx, attrPath(AttrThreadVersion))
		require.NoError(t, err)
		assert.True(t, v.Equal(datamodel.Uint16(4)))

		v, err = c.ReadAttribute(ctx, attrPath(datamodel.GlobalAttrFeatureMap))
		require.NoError(t, err)
		fm, err := v.AsBitmap32()
		require.NoError(t, err)
		assert.Equal(t, FeatureThreadNetworkInterface, fm)
	})

	t.Run("ethernet", func(t *testing.T) {
		c := newCluster(t, &fakeDriver{}, nil)

		_, err := c.ReadAttribute(ctx, attrPath(AttrScanMaxTimeSeconds))
		assert.ErrorIs(t, err, clusters.ErrUnsupportedAttribute)
		assert.NotContains(t, c.AttributeIDs(), AttrConnectMaxTimeSeconds)
		assert.Nil(t, c.SupportedWiFiBands())
	})
}

func TestCluster_WriteInterfaceEnabled(t *testing.T) {
	ctx := context.Background()
	d := &fakeDriver{}
	c := newCluster(t, d, nil)

	require.NoError(t, c.WriteAttribute(ctx, attrPath(AttrInterfaceEnabled), datamodel.Bool(true)))
	assert.True(t, d.enabled)

	assert.ErrorIs(t, c.WriteAttribute(ctx, attrPath(AttrInterfaceEnabled), datamodel.Uint8(1)), datamodel.ErrTypeMismatch)
	assert.ErrorIs(t, c.WriteAttribute(ctx, attrPath(AttrMaxNetworks), datamodel.Uint8(1)), clusters.ErrUnsupportedWrite)

	wrong := datamodel.ConcreteAttributePath{Endpoint: 9, Cluster: ClusterID, Attribute: AttrInterfaceEnabled}
	assert.ErrorIs(t, c.WriteAttribute(ctx, wrong, datamodel.Bool(false)), clusters.ErrWrongCluster)
}

func TestCluster_AddOrUpdateWiFiNetwork(t *testing.T) {
	bc := &recordingBreadcrumb{}
	d := &fakeWiFi{}
	c := newCluster(t, d, bc)

	resp, err := c.AddOrUpdateWiFiNetwork(AddOrUpdateWiFiNetworkRequest{
		SSID:        []byte("home"),
		Credentials: []byte("correct horse"),
		Breadcrumb:  u64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.NetworkingStatus)
	require.NotNil(t, resp.NetworkIndex)
	assert.Equal(t, uint8(0), *resp.NetworkIndex)
	assert.Equal(t, []uint64{3}, bc.values)
	assert.Len(t, c.Networks(), 1)

	tests := []struct {
		name  string
		ssid  string
		creds string
	}{
		{"empty ssid", "", "password"},
		{"short passphrase", "home", "short"},
		{"bad hex psk", "home", string(bytes.Repeat([]byte("z"), PSKHexLength))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.AddOrUpdateWiFiNetwork(AddOrUpdateWiFiNetworkRequest{
				SSID:        []byte(tt.ssid),
				Credentials: []byte(tt.creds),
				Breadcrumb:  u64(9),
			})
			require.NoError(t, err)
			assert.Equal(t, StatusOutOfRange, resp.NetworkingStatus)
			assert.Nil(t, resp.NetworkIndex)
			assert.Equal(t, StatusOutOfRange, *c.LastNetworkingStatus())
		})
	}
	assert.Equal(t, []uint64{3}, bc.values, "failures must not set the breadcrumb")

	_, err = c.AddOrUpdateThreadNetwork(AddOrUpdateThreadNetworkRequest{OperationalDataset: []byte{1}})
	assert.ErrorIs(t, err, clusters.ErrUnsupportedCommand)
}

func TestCluster_RemoveAndReorder(t *testing.T) {
	d := &fakeWiFi{}
	d.networks = []NetworkInfo{{NetworkID: []byte("home")}}
	c := newCluster(t, d, nil)

	resp, err := c.ReorderNetwork(ReorderNetworkRequest{NetworkID: []byte("home"), NetworkIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusOutOfRange, resp.NetworkingStatus)
	assert.Equal(t, "single network", resp.DebugText)

	resp, err = c.RemoveNetwork(RemoveNetworkRequest{NetworkID: []byte("home")})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.NetworkingStatus)

	resp, err = c.RemoveNetwork(RemoveNetworkRequest{NetworkID: []byte("home")})
	require.NoError(t, err)
	assert.Equal(t, StatusNetworkIDNotFound, resp.NetworkingStatus)

	_, err = c.RemoveNetwork(RemoveNetworkRequest{})
	assert.ErrorIs(t, err, clusters.ErrConstraint)
}

func TestCluster_ConnectNetwork(t *testing.T) {
	bc := &recordingBreadcrumb{}
	code := int32(-2)
	d := &fakeWiFi{connect: ConnectResult{Status: StatusAuthFailure, ErrorValue: &code}}
	c := newCluster(t, d, bc)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := c.ConnectNetwork(ctx, ConnectNetworkRequest{NetworkID: []byte("home"), Breadcrumb: u64(5)})
	require.NoError(t, err)
	assert.Equal(t, StatusAuthFailure, resp.NetworkingStatus)
	require.NotNil(t, resp.ErrorValue)
	assert.Equal(t, int32(-2), *resp.ErrorValue)
	assert.Empty(t, bc.values)
	assert.Equal(t, []byte("home"), c.LastNetworkID())

	d.connect = ConnectResult{Status: StatusSuccess}
	resp, err = c.ConnectNetwork(ctx, ConnectNetworkRequest{NetworkID: []byte("home"), Breadcrumb: u64(5)})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.NetworkingStatus)
	assert.Equal(t, []uint64{5}, bc.values)

	d.connectErr = NewStatusError(StatusNetworkNotFound, "no such network")
	resp, err = c.ConnectNetwork(ctx, ConnectNetworkRequest{NetworkID: []byte("away")})
	require.NoError(t, err)
	assert.Equal(t, StatusNetworkNotFound, resp.NetworkingStatus)
}

func TestCluster_ConnectNetworkContextDone(t *testing.T) {
	d := &fakeWiFi{hang: true}
	c := newCluster(t, d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ConnectNetwork(ctx, ConnectNetworkRequest{NetworkID: []byte("home")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCluster_ScanNetworks(t *testing.T) {
	ctx := context.Background()

	wifi := &fakeWiFi{scan: []WiFiScanResult{{SSID: []byte("home"), Channel: 6}}}
	resp, err := newCluster(t, wifi, nil).ScanNetworks(ctx, ScanNetworksRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.NetworkingStatus)
	assert.Len(t, resp.WiFiResults, 1)

	resp, err = newCluster(t, &fakeThread{}, nil).ScanNetworks(ctx, ScanNetworksRequest{})
	require.NoError(t, err)
	require.Len(t, resp.ThreadResults, 1)
	assert.Equal(t, "home", resp.ThreadResults[0].NetworkName)

	_, err = newCluster(t, &fakeDriver{}, nil).ScanNetworks(ctx, ScanNetworksRequest{})
	assert.ErrorIs(t, err, clusters.ErrUnsupportedCommand)

	_, err = newCluster(t, wifi, nil).ScanNetworks(ctx, ScanNetworksRequest{SSID: make([]byte, MaxSSIDLength+1)})
	assert.ErrorIs(t, err, clusters.ErrConstraint)
}

func TestStatusFromError(t *testing.T) {
	s, text := StatusFromError(nil)
	assert.Equal(t, StatusSuccess, s)
	assert.Empty(t, text)

	s, text = StatusFromError(NewStatusError(StatusBoundsExceeded, "full"))
	assert.Equal(t, StatusBoundsExceeded, s)
	assert.Equal(t, "full", text)

	s, _ = StatusFromError(errors.New("boom"))
	assert.Equal(t, StatusUnknownError, s)

	assert.Equal(t, "AuthFailure", StatusAuthFailure.String())
	assert.Equal(t, "NetworkingStatus(99)", NetworkingStatus(99).String())
}
