package timesync

import (
	"context"
	"testing"
	"time"

	"github.com/backkem/espmatter/pkg/clusters"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDelegate struct {
	mock.Mock
}

func (m *mockDelegate) IsNTPAddressValid(addr string) bool {
	return m.Called(addr).Bool(0)
}

func (m *mockDelegate) IsNTPAddressDomain(addr string) bool {
	return m.Called(addr).Bool(0)
}

func (m *mockDelegate) UTCTimeChanged(utc uint64, g Granularity) { m.Called(utc, g) }
func (m *mockDelegate) DefaultNTPChanged(ntp *string)            { m.Called(ntp) }
func (m *mockDelegate) TimeZoneListChanged(zones []TimeZone)     { m.Called(zones) }

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func newCluster(t *testing.T, cfg Config) *Cluster {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func attrPath(id datamodel.AttributeID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: 0, Cluster: ClusterID, Attribute: id}
}

func TestNew_InvalidStartup(t *testing.T) {
	_, err := New(Config{
		Startup:  StartupConfiguration{TimeSource: 200},
		Optional: OptionalAttributeSet(0).Set(OptionalTimeSource),
	})
	assert.ErrorIs(t, err, ErrInvalidStartup)

	_, err = New(Config{Startup: StartupConfiguration{TimeZoneDatabase: 9}})
	assert.ErrorIs(t, err, ErrInvalidStartup)

	// An unsupplied optional value is not validated.
	_, err = New(Config{Startup: StartupConfiguration{TimeSource: 200}})
	assert.NoError(t, err)
}

func TestCluster_DelegateDefaultAndOverride(t *testing.T) {
	c := newCluster(t, Config{})
	assert.IsType(t, DefaultDelegate{}, c.Delegate())

	d := &mockDelegate{}
	c.SetDelegate(d)
	assert.Same(t, d, c.Delegate())

	c.SetDelegate(nil)
	assert.IsType(t, DefaultDelegate{}, c.Delegate())
}

func TestCluster_InitDeinit(t *testing.T) {
	c := newCluster(t, Config{})
	require.NoError(t, c.Init())
	assert.True(t, c.Initialized())

	require.NoError(t, c.SetUTCTime(SetUTCTimeRequest{UTCTime: 10, Granularity: GranularitySeconds}))
	c.Deinit()
	assert.False(t, c.Initialized())
	assert.Nil(t, c.UTCTime())
}

func TestCluster_StartupReflectedInAttributes(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, Config{
		Features: FeatureNTPClient | FeatureTimeZone | FeatureNTPServer,
		Startup: StartupConfiguration{
			SupportsDNSResolve: true,
			TimeZoneDatabase:   TimeZoneDatabasePartial,
			NTPServerAvailable: true,
			TimeSource:         TimeSourceGNSS,
		},
		Optional: OptionalAttributeSet(0).Set(OptionalTimeSource),
	})

	tests := []struct {
		attr datamodel.AttributeID
		want datamodel.Value
	}{
		{AttrSupportsDNSResolve, datamodel.Bool(true)},
		{AttrTimeZoneDatabase, datamodel.Enum8(uint8(TimeZoneDatabasePartial))},
		{AttrNTPServerAvailable, datamodel.Bool(true)},
		{AttrTimeSource, datamodel.Enum8(uint8(TimeSourceGNSS))},
		{AttrTimeZoneListMaxSize, datamodel.Uint8(TimeZoneListMaxSize)},
		{AttrGranularity, datamodel.Enum8(uint8(GranularityNoTime))},
		{AttrUTCTime, datamodel.Null(datamodel.TypeUint64)},
		{AttrDefaultNTP, datamodel.Null(datamodel.TypeCharString)},
	}
	for _, tt := range tests {
		got, err := c.ReadAttribute(ctx, attrPath(tt.attr))
		require.NoError(t, err, "attribute 0x%04X", tt.attr)
		assert.True(t, got.Equal(tt.want), "attribute 0x%04X = %s, want %s", tt.attr, got.Format(), tt.want.Format())
	}

	assert.Equal(t, StartupConfiguration{
		SupportsDNSResolve: true,
		TimeZoneDatabase:   TimeZoneDatabasePartial,
		NTPServerAvailable: true,
		TimeSource:         TimeSourceGNSS,
	}, c.StartupConfiguration())
	assert.True(t, c.OptionalAttributes().IsSet(OptionalTimeSource))
}

func TestCluster_FeatureConditionalAttributes(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, Config{})

	for _, attr := range []datamodel.AttributeID{
		AttrTimeSource, AttrDefaultNTP, AttrSupportsDNSResolve, AttrLocalTime,
		AttrTimeZoneDatabase, AttrNTPServerAvailable,
	} {
		_, err := c.ReadAttribute(ctx, attrPath(attr))
		assert.ErrorIs(t, err, clusters.ErrUnsupportedAttribute, "attribute 0x%04X", attr)
	}
	assert.Equal(t, []datamodel.AttributeID{AttrUTCTime, AttrGranularity}, c.AttributeIDs())

	assert.ErrorIs(t, c.WriteAttribute(ctx, attrPath(AttrUTCTime), datamodel.Uint64(1)), clusters.ErrUnsupportedWrite)
}

func TestCluster_SetUTCTime(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	d := &mockDelegate{}
	d.On("UTCTimeChanged", uint64(1_000_000), GranularityMilliseconds).Return().Once()

	c := newCluster(t, Config{
		Delegate: d,
		Now:      clock.Now,
		Optional: OptionalAttributeSet(0).Set(OptionalTimeSource),
	})

	require.NoError(t, c.SetUTCTime(SetUTCTimeRequest{UTCTime: 1_000_000, Granularity: GranularityMilliseconds}))
	d.AssertExpectations(t)

	clock.t = clock.t.Add(2 * time.Second)
	require.NotNil(t, c.UTCTime())
	assert.Equal(t, uint64(3_000_000), *c.UTCTime())

	v, err := c.ReadAttribute(context.Background(), attrPath(AttrTimeSource))
	require.NoError(t, err)
	assert.True(t, v.Equal(datamodel.Enum8(uint8(TimeSourceAdmin))))

	// A coarser time is refused.
	err = c.SetUTCTime(SetUTCTimeRequest{UTCTime: 5, Granularity: GranularitySeconds})
	assert.ErrorIs(t, err, ErrTimeNotAccepted)

	assert.ErrorIs(t, c.SetUTCTime(SetUTCTimeRequest{Granularity: 9}), clusters.ErrConstraint)
	bad := TimeSource(99)
	assert.ErrorIs(t, c.SetUTCTime(SetUTCTimeRequest{Granularity: GranularityMicroseconds, TimeSource: &bad}), clusters.ErrConstraint)
}

func TestCluster_SetDefaultNTP(t *testing.T) {
	domain := "pool.ntp.org"
	ip := "192.0.2.1"

	t.Run("without NTPClient", func(t *testing.T) {
		c := newCluster(t, Config{})
		assert.ErrorIs(t, c.SetDefaultNTP(&ip), clusters.ErrUnsupportedCommand)
	})

	t.Run("domain without DNS resolve", func(t *testing.T) {
		c := newCluster(t, Config{Features: FeatureNTPClient})
		assert.ErrorIs(t, c.SetDefaultNTP(&domain), clusters.ErrInvalidInState)
		require.NoError(t, c.SetDefaultNTP(&ip))

		v, err := c.ReadAttribute(context.Background(), attrPath(AttrDefaultNTP))
		require.NoError(t, err)
		got, err := v.AsCharString()
		require.NoError(t, err)
		assert.Equal(t, ip, got)
	})

	t.Run("domain with DNS resolve", func(t *testing.T) {
		c := newCluster(t, Config{
			Features: FeatureNTPClient,
			Startup:  StartupConfiguration{SupportsDNSResolve: true},
		})
		require.NoError(t, c.SetDefaultNTP(&domain))
		require.NoError(t, c.SetDefaultNTP(nil))

		v, err := c.ReadAttribute(context.Background(), attrPath(AttrDefaultNTP))
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	})

	t.Run("delegate rejects", func(t *testing.T) {
		d := &mockDelegate{}
		d.On("IsNTPAddressValid", ip).Return(false)
		c := newCluster(t, Config{Features: FeatureNTPClient, Delegate: d})

		assert.ErrorIs(t, c.SetDefaultNTP(&ip), clusters.ErrConstraint)
		d.AssertNotCalled(t, "DefaultNTPChanged", mock.Anything)
	})
}

func TestCluster_SetTimeZone(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newCluster(t, Config{
		Features: FeatureTimeZone,
		Startup:  StartupConfiguration{TimeZoneDatabase: TimeZoneDatabaseNone},
		Now:      clock.Now,
	})

	tests := []struct {
		name  string
		zones []TimeZone
	}{
		{"empty", nil},
		{"too many", []TimeZone{{}, {ValidAt: 1}, {ValidAt: 2}}},
		{"offset too low", []TimeZone{{Offset: MinTimeZoneOffset - 1}}},
		{"offset too high", []TimeZone{{Offset: MaxTimeZoneOffset + 1}}},
		{"first not from zero", []TimeZone{{ValidAt: 5}}},
		{"second from zero", []TimeZone{{}, {}}},
		{"long name", []TimeZone{{Name: string(make([]byte, MaxTimeZoneNameLength+1))}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SetTimeZone(tt.zones)
			assert.ErrorIs(t, err, clusters.ErrConstraint)
		})
	}

	resp, err := c.SetTimeZone([]TimeZone{{Offset: 3600, Name: "Europe/Brussels"}})
	require.NoError(t, err)
	assert.True(t, resp.DSTOffsetRequired)
	assert.Equal(t, "Europe/Brussels", c.TimeZones()[0].Name)

	assert.Nil(t, c.LocalTime(), "local time needs UTC time")
	require.NoError(t, c.SetUTCTime(SetUTCTimeRequest{UTCTime: 0, Granularity: GranularitySeconds}))
	require.NotNil(t, c.LocalTime())
	assert.Equal(t, uint64(3600*1_000_000), *c.LocalTime())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Milliseconds", GranularityMilliseconds.String())
	assert.Equal(t, "Granularity(7)", Granularity(7).String())
	assert.Equal(t, "Partial", TimeZoneDatabasePartial.String())
	assert.False(t, TimeSource(17).Valid())
}
