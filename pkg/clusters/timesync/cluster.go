// Package timesync implements the Time Synchronization Cluster (0x0038).
//
// An instance is built from a StartupConfiguration assembled from
// persisted attributes, an OptionalAttributeSet naming which optional
// attributes were explicitly supplied, and the feature map. The delegate
// validates NTP server addresses and observes changes.
package timesync

import (
	"context"
	"sync"
	"time"

	"github.com/backkem/espmatter/pkg/clusters"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0038
	ClusterRevision uint16              = 2
)

// Attribute IDs.
const (
	AttrUTCTime             datamodel.AttributeID = 0x0000
	AttrGranularity         datamodel.AttributeID = 0x0001
	AttrTimeSource          datamodel.AttributeID = 0x0002
	AttrDefaultNTP          datamodel.AttributeID = 0x0004
	AttrTimeZone            datamodel.AttributeID = 0x0005
	AttrLocalTime           datamodel.AttributeID = 0x0007
	AttrTimeZoneDatabase    datamodel.AttributeID = 0x0008
	AttrNTPServerAvailable  datamodel.AttributeID = 0x0009
	AttrTimeZoneListMaxSize datamodel.AttributeID = 0x000A
	AttrSupportsDNSResolve  datamodel.AttributeID = 0x000C
)

// Command IDs.
const (
	CmdSetUTCTime          datamodel.CommandID = 0x00
	CmdSetTimeZone         datamodel.CommandID = 0x02
	CmdSetTimeZoneResponse datamodel.CommandID = 0x03
	CmdSetDefaultNTP       datamodel.CommandID = 0x05
)

// Feature bits.
const (
	FeatureTimeZone       uint32 = 1 << 0
	FeatureNTPClient      uint32 = 1 << 1
	FeatureNTPServer      uint32 = 1 << 2
	FeatureTimeSyncClient uint32 = 1 << 3
)

// Limits.
const (
	TimeZoneListMaxSize   = 2
	MaxDefaultNTPLength   = 128
	MaxTimeZoneNameLength = 64
	MinTimeZoneOffset     = -12 * 60 * 60
	MaxTimeZoneOffset     = 14 * 60 * 60
)

// matterEpoch is the origin of UTCTime.
var matterEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Config provides dependencies for a Time Synchronization cluster.
type Config struct {
	// EndpointID is the endpoint this instance serves (the root endpoint).
	EndpointID datamodel.EndpointID

	// Features is the feature map.
	Features uint32

	// Startup is the assembled startup configuration.
	Startup StartupConfiguration

	// Optional names the optional attributes supplied in Startup.
	Optional OptionalAttributeSet

	// Delegate validates addresses and observes changes. Optional.
	Delegate Delegate

	// Now returns the current time. Optional, defaults to time.Now.
	Now func() time.Time

	// LoggerFactory creates the "timesync" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Time Synchronization cluster (0x0038).
type Cluster struct {
	*clusters.Base
	startup  StartupConfiguration
	optional OptionalAttributeSet
	now      func() time.Time
	log      logging.LeveledLogger

	mu          sync.RWMutex
	delegate    Delegate
	initialized bool
	utcAtSet    *uint64
	setAt       time.Time
	granularity Granularity
	timeSource  TimeSource
	defaultNTP  *string
	timeZones   []TimeZone
}

// New creates a cluster instance from an assembled startup configuration.
func New(cfg Config) (*Cluster, error) {
	if cfg.Optional.IsSet(OptionalTimeSource) && !cfg.Startup.TimeSource.Valid() {
		return nil, ErrInvalidStartup
	}
	if cfg.Startup.TimeZoneDatabase > TimeZoneDatabaseNone {
		return nil, ErrInvalidStartup
	}

	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	delegate := cfg.Delegate
	if delegate == nil {
		delegate = DefaultDelegate{}
	}

	c := &Cluster{
		Base:       clusters.NewBase(ClusterID, cfg.EndpointID, ClusterRevision),
		startup:    cfg.Startup,
		optional:   cfg.Optional,
		now:        now,
		log:        lf.NewLogger("timesync"),
		delegate:   delegate,
		timeSource: TimeSourceNone,
		timeZones:  []TimeZone{{Offset: 0, ValidAt: 0}},
	}
	if cfg.Optional.IsSet(OptionalTimeSource) {
		c.timeSource = cfg.Startup.TimeSource
	}
	c.SetFeatureMap(cfg.Features)
	return c, nil
}

// Init marks the instance ready.
func (c *Cluster) Init() error {
	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	c.log.Debugf("time sync on endpoint %d initialized, features 0x%X", c.EndpointID(), c.FeatureMap())
	return nil
}

// Deinit drops the volatile time state.
func (c *Cluster) Deinit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = false
	c.utcAtSet = nil
	c.granularity = GranularityNoTime
}

// Initialized reports whether Init was called without a later Deinit.
func (c *Cluster) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// Delegate returns the current delegate.
func (c *Cluster) Delegate() Delegate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delegate
}

// SetDelegate replaces the delegate; nil restores DefaultDelegate.
func (c *Cluster) SetDelegate(d Delegate) {
	if d == nil {
		d = DefaultDelegate{}
	}
	c.mu.Lock()
	c.delegate = d
	c.mu.Unlock()
}

// StartupConfiguration returns the configuration the instance was built from.
func (c *Cluster) StartupConfiguration() StartupConfiguration {
	return c.startup
}

// OptionalAttributes returns the explicitly supplied optional attributes.
func (c *Cluster) OptionalAttributes() OptionalAttributeSet {
	return c.optional
}

func (c *Cluster) has(feature uint32) bool {
	return clusters.FeatureSet(c.FeatureMap()).Has(feature)
}

// UTCTime returns the current UTC time in microseconds since the Matter
// epoch, or nil if the time is unknown.
func (c *Cluster) UTCTime() *uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.utcTimeLocked()
}

func (c *Cluster) utcTimeLocked() *uint64 {
	if c.utcAtSet == nil {
		return nil
	}
	elapsed := c.now().Sub(c.setAt)
	if elapsed < 0 {
		elapsed = 0
	}
	utc := *c.utcAtSet + uint64(elapsed.Microseconds())
	return &utc
}

// LocalTime returns UTCTime adjusted by the active time zone, or nil.
func (c *Cluster) LocalTime() *uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	utc := c.utcTimeLocked()
	if utc == nil {
		return nil
	}
	offset := c.activeZoneLocked(*utc).Offset
	local := int64(*utc) + int64(offset)*int64(time.Second/time.Microsecond)
	if local < 0 {
		return nil
	}
	l := uint64(local)
	return &l
}

func (c *Cluster) activeZoneLocked(utc uint64) TimeZone {
	active := c.timeZones[0]
	for _, tz := range c.timeZones[1:] {
		if tz.ValidAt <= utc {
			active = tz
		}
	}
	return active
}

// TimeZones returns a copy of the TimeZone list.
func (c *Cluster) TimeZones() []TimeZone {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]TimeZone(nil), c.timeZones...)
}

// AttributeIDs returns the attributes served given features and optional set.
func (c *Cluster) AttributeIDs() []datamodel.AttributeID {
	ids := []datamodel.AttributeID{AttrUTCTime, AttrGranularity}
	if c.optional.IsSet(OptionalTimeSource) {
		ids = append(ids, AttrTimeSource)
	}
	if c.has(FeatureTimeZone) {
		ids = append(ids, AttrTimeZone, AttrLocalTime, AttrTimeZoneDatabase, AttrTimeZoneListMaxSize)
	}
	if c.has(FeatureNTPClient) {
		ids = append(ids, AttrDefaultNTP, AttrSupportsDNSResolve)
	}
	if c.has(FeatureNTPServer) {
		ids = append(ids, AttrNTPServerAvailable)
	}
	return ids
}

// ReadAttribute implements registry.ServerCluster. The TimeZone list is
// exposed through TimeZones.
func (c *Cluster) ReadAttribute(_ context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	if err := c.CheckPath(path); err != nil {
		return datamodel.Value{}, err
	}
	if v, ok := c.ReadGlobalAttribute(path.Attribute); ok {
		return v, nil
	}

	switch path.Attribute {
	case AttrUTCTime:
		return datamodel.NullableUint64(c.UTCTime()), nil
	case AttrGranularity:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return datamodel.Enum8(uint8(c.granularity)), nil
	case AttrTimeSource:
		if c.optional.IsSet(OptionalTimeSource) {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return datamodel.Enum8(uint8(c.timeSource)), nil
		}
	case AttrDefaultNTP:
		if c.has(FeatureNTPClient) {
			c.mu.RLock()
			defer c.mu.RUnlock()
			if c.defaultNTP == nil {
				return datamodel.Null(datamodel.TypeCharString), nil
			}
			return datamodel.CharString(*c.defaultNTP).AsNullable(), nil
		}
	case AttrSupportsDNSResolve:
		if c.has(FeatureNTPClient) {
			return datamodel.Bool(c.startup.SupportsDNSResolve), nil
		}
	case AttrLocalTime:
		if c.has(FeatureTimeZone) {
			return datamodel.NullableUint64(c.LocalTime()), nil
		}
	case AttrTimeZoneDatabase:
		if c.has(FeatureTimeZone) {
			return datamodel.Enum8(uint8(c.startup.TimeZoneDatabase)), nil
		}
	case AttrTimeZoneListMaxSize:
		if c.has(FeatureTimeZone) {
			return datamodel.Uint8(TimeZoneListMaxSize), nil
		}
	case AttrNTPServerAvailable:
		if c.has(FeatureNTPServer) {
			return datamodel.Bool(c.startup.NTPServerAvailable), nil
		}
	}
	return datamodel.Value{}, clusters.ErrUnsupportedAttribute
}

// WriteAttribute implements registry.ServerCluster. No attribute is writable.
func (c *Cluster) WriteAttribute(_ context.Context, path datamodel.ConcreteAttributePath, _ datamodel.Value) error {
	if err := c.CheckPath(path); err != nil {
		return err
	}
	return clusters.ErrUnsupportedWrite
}
