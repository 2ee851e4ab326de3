package integration

import (
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/pion/logging"
)

// ClusterFamily is the set of callbacks the stack invokes for one cluster
// ID. Server callbacks run per endpoint; plugin callbacks run once per
// process lifetime.
type ClusterFamily interface {
	ClusterID() datamodel.ClusterID
	ServerInitCallback(endpoint datamodel.EndpointID) error
	ServerShutdownCallback(endpoint datamodel.EndpointID, shutdownType registry.ShutdownType) error
	PluginServerInitCallback()
	PluginServerShutdownCallback()
}

type familyEntry struct {
	family       ClusterFamily
	pluginInit   sync.Once
	pluginDown   sync.Once
	pluginActive bool
}

// CallbacksConfig configures Callbacks.
type CallbacksConfig struct {
	// Topology lists endpoints and their server clusters. Required.
	Topology datamodel.Topology

	// LoggerFactory creates the "integration" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Callbacks dispatches endpoint lifecycle events to cluster families.
// Failures are logged and do not stop the remaining clusters; the joined
// errors are returned for callers that care.
type Callbacks struct {
	topo datamodel.Topology
	log  logging.LeveledLogger

	mu       sync.Mutex
	families map[datamodel.ClusterID]*familyEntry
	order    []datamodel.ClusterID
}

// NewCallbacks creates a dispatcher with no families.
func NewCallbacks(cfg CallbacksConfig) (*Callbacks, error) {
	if cfg.Topology == nil {
		return nil, fmt.Errorf("%w: callbacks topology is required", ErrInvalidBuildConfig)
	}
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Callbacks{
		topo:     cfg.Topology,
		log:      lf.NewLogger("integration"),
		families: make(map[datamodel.ClusterID]*familyEntry),
	}, nil
}

// Add registers families. A second family for the same cluster ID
// replaces the first.
func (cb *Callbacks) Add(families ...ClusterFamily) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	for _, f := range families {
		id := f.ClusterID()
		if _, ok := cb.families[id]; !ok {
			cb.order = append(cb.order, id)
		}
		cb.families[id] = &familyEntry{family: f}
	}
}

func (cb *Callbacks) entry(id datamodel.ClusterID) *familyEntry {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.families[id]
}

func (cb *Callbacks) pluginInit(e *familyEntry) {
	e.pluginInit.Do(func() {
		e.family.PluginServerInitCallback()
		cb.mu.Lock()
		e.pluginActive = true
		cb.mu.Unlock()
	})
}

// ServerInit runs the init callback of cluster on endpoint. The family's
// plugin callback runs first, once. Clusters without a family are ignored.
func (cb *Callbacks) ServerInit(endpoint datamodel.EndpointID, cluster datamodel.ClusterID) error {
	e := cb.entry(cluster)
	if e == nil {
		return nil
	}
	cb.pluginInit(e)
	if err := e.family.ServerInitCallback(endpoint); err != nil {
		cb.log.Errorf("init of cluster 0x%04X on endpoint %d failed: %v", uint32(cluster), endpoint, err)
		return err
	}
	return nil
}

// ServerShutdown runs the shutdown callback of cluster on endpoint.
func (cb *Callbacks) ServerShutdown(endpoint datamodel.EndpointID, cluster datamodel.ClusterID, shutdownType registry.ShutdownType) error {
	e := cb.entry(cluster)
	if e == nil {
		return nil
	}
	if err := e.family.ServerShutdownCallback(endpoint, shutdownType); err != nil {
		cb.log.Errorf("shutdown of cluster 0x%04X on endpoint %d failed: %v", uint32(cluster), endpoint, err)
		return err
	}
	return nil
}

func serverClusters(ep *datamodel.Endpoint) []datamodel.ClusterID {
	var ids []datamodel.ClusterID
	for _, c := range ep.Clusters() {
		if c.HasServer() {
			ids = append(ids, c.ID())
		}
	}
	return ids
}

// EndpointUp runs the init callbacks of every server cluster on endpoint
// in cluster creation order.
func (cb *Callbacks) EndpointUp(endpoint datamodel.EndpointID) error {
	ep := cb.topo.Endpoint(endpoint)
	if ep == nil {
		return nil
	}
	var errs []error
	for _, id := range serverClusters(ep) {
		errs = append(errs, cb.ServerInit(endpoint, id))
	}
	return errors.Join(errs...)
}

// EndpointDown runs the shutdown callbacks of every server cluster on
// endpoint in reverse creation order.
func (cb *Callbacks) EndpointDown(endpoint datamodel.EndpointID, shutdownType registry.ShutdownType) error {
	ep := cb.topo.Endpoint(endpoint)
	if ep == nil {
		return nil
	}
	ids := serverClusters(ep)
	var errs []error
	for i := len(ids) - 1; i >= 0; i-- {
		errs = append(errs, cb.ServerShutdown(endpoint, ids[i], shutdownType))
	}
	return errors.Join(errs...)
}

// PluginInitAll brings up every endpoint of the node in creation order.
func (cb *Callbacks) PluginInitAll() error {
	var errs []error
	for _, ep := range cb.topo.Endpoints() {
		errs = append(errs, cb.EndpointUp(ep.ID()))
	}
	return errors.Join(errs...)
}

// ShutdownAll takes every endpoint down in reverse creation order, then
// runs the plugin shutdown callback of each family whose plugin init ran.
func (cb *Callbacks) ShutdownAll(shutdownType registry.ShutdownType) error {
	eps := cb.topo.Endpoints()
	var errs []error
	for i := len(eps) - 1; i >= 0; i-- {
		errs = append(errs, cb.EndpointDown(eps[i].ID(), shutdownType))
	}

	cb.mu.Lock()
	var active []*familyEntry
	for _, id := range cb.order {
		if e := cb.families[id]; e.pluginActive {
			active = append(active, e)
		}
	}
	cb.mu.Unlock()
	for _, e := range active {
		e.pluginDown.Do(e.family.PluginServerShutdownCallback)
	}
	return errors.Join(errs...)
}
