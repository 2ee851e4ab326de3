package integration

import (
	"fmt"
	"sync"
	"time"

	"github.com/backkem/espmatter/pkg/clusters/timesync"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/pion/logging"
)

// TimeSyncStartup is everything a Time Synchronization instance is built
// from, read out of the data model in one pass.
type TimeSyncStartup struct {
	Features uint32
	Startup  timesync.StartupConfiguration
	Optional timesync.OptionalAttributeSet
}

func readAttr(acc datamodel.AttributeAccessor, endpoint datamodel.EndpointID, attr datamodel.AttributeID) (datamodel.Value, datamodel.ConcreteAttributePath, error) {
	path := datamodel.ConcreteAttributePath{Endpoint: endpoint, Cluster: timesync.ClusterID, Attribute: attr}
	v, err := acc.AttributeValue(path)
	return v, path, err
}

func attrReadError(path datamodel.ConcreteAttributePath, err error) error {
	return fmt.Errorf("%w %s: %w", ErrAttributeRead, path, err)
}

// AssembleTimeSyncStartup reads the feature map and the feature-gated
// attributes of the Time Synchronization cluster on endpoint. Any
// mandatory attribute that is missing or mistyped fails the whole
// assembly. TimeSource is optional and only recorded when readable.
func AssembleTimeSyncStartup(acc datamodel.AttributeAccessor, endpoint datamodel.EndpointID) (TimeSyncStartup, error) {
	var out TimeSyncStartup

	v, path, err := readAttr(acc, endpoint, datamodel.GlobalAttrFeatureMap)
	if err == nil {
		out.Features, err = v.AsBitmap32()
	}
	if err != nil {
		return TimeSyncStartup{}, attrReadError(path, err)
	}

	if out.Features&timesync.FeatureNTPClient != 0 {
		v, path, err = readAttr(acc, endpoint, timesync.AttrSupportsDNSResolve)
		if err == nil {
			out.Startup.SupportsDNSResolve, err = v.AsBool()
		}
		if err != nil {
			return TimeSyncStartup{}, attrReadError(path, err)
		}
	}

	if out.Features&timesync.FeatureTimeZone != 0 {
		var db uint8
		v, path, err = readAttr(acc, endpoint, timesync.AttrTimeZoneDatabase)
		if err == nil {
			db, err = v.AsEnum8()
		}
		if err != nil {
			return TimeSyncStartup{}, attrReadError(path, err)
		}
		out.Startup.TimeZoneDatabase = timesync.TimeZoneDatabase(db)
	}

	if out.Features&timesync.FeatureNTPServer != 0 {
		v, path, err = readAttr(acc, endpoint, timesync.AttrNTPServerAvailable)
		if err == nil {
			out.Startup.NTPServerAvailable, err = v.AsBool()
		}
		if err != nil {
			return TimeSyncStartup{}, attrReadError(path, err)
		}
	}

	if v, _, err = readAttr(acc, endpoint, timesync.AttrTimeSource); err == nil {
		if src, err := v.AsEnum8(); err == nil {
			out.Startup.TimeSource = timesync.TimeSource(src)
			out.Optional = out.Optional.Set(timesync.OptionalTimeSource)
		}
	}
	return out, nil
}

// TimeSyncConfig configures the Time Synchronization integration.
type TimeSyncConfig struct {
	// Accessor reads the startup attributes. Required.
	Accessor datamodel.AttributeAccessor

	// Topology resolves endpoints. Required.
	Topology datamodel.Topology

	// Registry receives the instance. Required.
	Registry Registrar

	// Delegate is handed to the instance at construction. Optional.
	Delegate timesync.Delegate

	// Now is passed to the instance. Optional.
	Now func() time.Time

	// Metrics records lifecycle steps. Optional.
	Metrics *Metrics

	// LoggerFactory creates loggers. Optional.
	LoggerFactory logging.LoggerFactory
}

// TimeSync integrates the Time Synchronization cluster. It serves the
// root endpoint only.
type TimeSync struct {
	cfg   TimeSyncConfig
	coord *Coordinator
	lf    logging.LoggerFactory
	log   logging.LeveledLogger

	mu       sync.Mutex
	delegate timesync.Delegate
}

var _ ClusterFamily = (*TimeSync)(nil)

// NewTimeSync creates the integration with a single slot.
func NewTimeSync(cfg TimeSyncConfig) (*TimeSync, error) {
	if cfg.Accessor == nil {
		return nil, fmt.Errorf("%w: time sync accessor is required", ErrInvalidBuildConfig)
	}
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	ts := &TimeSync{
		cfg:      cfg,
		lf:       cfg.LoggerFactory,
		log:      cfg.LoggerFactory.NewLogger("integration"),
		delegate: cfg.Delegate,
	}
	coord, err := NewCoordinator(CoordinatorConfig{
		Cluster:       timesync.ClusterID,
		Capacity:      1,
		Topology:      cfg.Topology,
		Registry:      cfg.Registry,
		Factory:       ts.construct,
		Metrics:       cfg.Metrics,
		LoggerFactory: cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	ts.coord = coord
	return ts, nil
}

func (ts *TimeSync) construct(endpoint datamodel.EndpointID) (Instance, error) {
	startup, err := AssembleTimeSyncStartup(ts.cfg.Accessor, endpoint)
	if err != nil {
		ts.log.Errorf("time sync on endpoint %d: %v", endpoint, err)
		return nil, err
	}
	ts.mu.Lock()
	delegate := ts.delegate
	ts.mu.Unlock()
	return timesync.New(timesync.Config{
		EndpointID:    endpoint,
		Features:      startup.Features,
		Startup:       startup.Startup,
		Optional:      startup.Optional,
		Delegate:      delegate,
		Now:           ts.cfg.Now,
		LoggerFactory: ts.lf,
	})
}

// ClusterID implements ClusterFamily.
func (ts *TimeSync) ClusterID() datamodel.ClusterID { return timesync.ClusterID }

// ServerInitCallback implements ClusterFamily. Endpoints other than the
// root endpoint are ignored.
func (ts *TimeSync) ServerInitCallback(endpoint datamodel.EndpointID) error {
	if endpoint != datamodel.RootEndpointID {
		return nil
	}
	return ts.coord.Startup(endpoint)
}

// ServerShutdownCallback implements ClusterFamily.
func (ts *TimeSync) ServerShutdownCallback(endpoint datamodel.EndpointID, shutdownType registry.ShutdownType) error {
	if endpoint != datamodel.RootEndpointID {
		return nil
	}
	return ts.coord.Shutdown(endpoint, shutdownType)
}

// PluginServerInitCallback implements ClusterFamily.
func (ts *TimeSync) PluginServerInitCallback() {}

// PluginServerShutdownCallback implements ClusterFamily.
func (ts *TimeSync) PluginServerShutdownCallback() {}

// Coordinator returns the lifecycle coordinator.
func (ts *TimeSync) Coordinator() *Coordinator {
	return ts.coord
}

// Cluster returns the live instance, or nil.
func (ts *TimeSync) Cluster() *timesync.Cluster {
	inst, ok := ts.coord.Instance(datamodel.RootEndpointID)
	if !ok {
		return nil
	}
	c, _ := inst.(*timesync.Cluster)
	return c
}

// SetDelegate installs d on the live instance and keeps it for instances
// constructed later.
func (ts *TimeSync) SetDelegate(d timesync.Delegate) {
	ts.mu.Lock()
	ts.delegate = d
	ts.mu.Unlock()
	if c := ts.Cluster(); c != nil {
		c.SetDelegate(d)
	}
}

// Delegate returns the delegate of the live instance, or the pending one
// when no instance exists.
func (ts *TimeSync) Delegate() timesync.Delegate {
	if c := ts.Cluster(); c != nil {
		return c.Delegate()
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.delegate
}
