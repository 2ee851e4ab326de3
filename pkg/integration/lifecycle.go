package integration

import (
	"errors"
	"sync"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/pion/logging"
)

// Factory constructs the cluster instance for an endpoint. A returned error
// skips construction.
type Factory func(endpoint datamodel.EndpointID) (Instance, error)

// Registrar is the part of the cluster registry the Coordinator uses.
type Registrar interface {
	Register(reg *registry.Registration) error
	Unregister(cluster registry.ServerCluster, shutdownType registry.ShutdownType) error
}

var _ Registrar = (*registry.Registry)(nil)

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	// Cluster is the cluster ID managed by the coordinator. Required.
	Cluster datamodel.ClusterID

	// Capacity is the number of slots. Required, positive.
	Capacity int

	// Topology resolves endpoints to slot indices. Required.
	Topology datamodel.Topology

	// Registry receives constructed instances. Required.
	Registry Registrar

	// Factory constructs instances. Required.
	Factory Factory

	// Metrics records lifecycle steps. Optional.
	Metrics *Metrics

	// LoggerFactory creates the "integration" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *CoordinatorConfig) Validate() error {
	switch {
	case c.Capacity <= 0:
		return ErrInvalidCapacity
	case c.Topology == nil, c.Registry == nil, c.Factory == nil:
		return errors.New("integration: topology, registry and factory are required")
	}
	return nil
}

// Coordinator brings cluster instances up and down per endpoint. Each
// endpoint carrying the cluster maps to one slot; a slot moves through
// Empty, Constructed, Registered and Unregistered back to Empty.
//
// All methods are safe for concurrent use. Startup and Shutdown resolve
// the endpoint index under the coordinator lock; topology changes made
// concurrently by other goroutines are not synchronized with it.
type Coordinator struct {
	cluster  datamodel.ClusterID
	topo     datamodel.Topology
	registry Registrar
	factory  Factory
	metrics  *Metrics
	log      logging.LeveledLogger

	mu    sync.Mutex
	slots *SlotTable
}

// NewCoordinator creates a coordinator with an empty slot table.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slots, err := NewSlotTable(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Coordinator{
		cluster:  cfg.Cluster,
		topo:     cfg.Topology,
		registry: cfg.Registry,
		factory:  cfg.Factory,
		metrics:  cfg.Metrics,
		log:      lf.NewLogger("integration"),
		slots:    slots,
	}, nil
}

// Cluster returns the managed cluster ID.
func (c *Coordinator) Cluster() datamodel.ClusterID {
	return c.cluster
}

// Capacity returns the slot count.
func (c *Coordinator) Capacity() int {
	return c.slots.Capacity()
}

func (c *Coordinator) fail(endpoint datamodel.EndpointID, stage Stage, err error) *LifecycleError {
	return &LifecycleError{Cluster: c.cluster, Endpoint: endpoint, Stage: stage, Err: err}
}

// Startup constructs, initializes and registers the instance for endpoint.
// An endpoint that is absent or lacks the cluster is a no-op. Init and
// Register failures do not abort the sequence; they are returned together
// once both steps were attempted.
func (c *Coordinator) Startup(endpoint datamodel.EndpointID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := ClusterEndpointIndex(c.topo, endpoint, c.cluster)
	if index == InvalidIndex {
		c.metrics.skipped(c.cluster, StageConstruct)
		return nil
	}
	if int(index) >= c.slots.Capacity() {
		err := c.fail(endpoint, StageConstruct, ErrSlotOutOfRange)
		c.metrics.observe(c.cluster, StageConstruct, err)
		return err
	}
	if _, ok := c.slots.Find(endpoint); ok {
		err := c.fail(endpoint, StageConstruct, ErrSlotOccupied)
		c.metrics.observe(c.cluster, StageConstruct, err)
		return err
	}
	// After endpoints were destroyed the resolved slot may still hold
	// another endpoint's instance; take the first free slot instead.
	if s := c.slots.ptr(index); s.Constructed() {
		free, ok := c.slots.FirstEmpty()
		if !ok {
			err := c.fail(endpoint, StageConstruct, ErrSlotOccupied)
			c.metrics.observe(c.cluster, StageConstruct, err)
			return err
		}
		index = free
	}
	slot := c.slots.ptr(index)

	inst, err := c.factory(endpoint)
	if err == nil && inst == nil {
		err = ErrNilInstance
	}
	c.metrics.observe(c.cluster, StageConstruct, err)
	if err != nil {
		return c.fail(endpoint, StageConstruct, err)
	}
	*slot = Slot{State: SlotConstructed, Endpoint: endpoint, Instance: inst}
	c.metrics.setLive(c.cluster, c.slots.Live())

	var errs []error
	if err := inst.Init(); err != nil {
		c.log.Errorf("cluster 0x%04X endpoint %d: init failed: %v", uint32(c.cluster), endpoint, err)
		errs = append(errs, c.fail(endpoint, StageInit, err))
		c.metrics.observe(c.cluster, StageInit, err)
	} else {
		c.metrics.observe(c.cluster, StageInit, nil)
	}

	if err := c.registry.Register(registry.NewRegistration(inst)); err != nil {
		c.log.Errorf("cluster 0x%04X endpoint %d: register failed: %v", uint32(c.cluster), endpoint, err)
		errs = append(errs, c.fail(endpoint, StageRegister, err))
		c.metrics.observe(c.cluster, StageRegister, err)
	} else {
		slot.State = SlotRegistered
		c.metrics.observe(c.cluster, StageRegister, nil)
	}

	c.log.Debugf("cluster 0x%04X endpoint %d: slot %d %s", uint32(c.cluster), endpoint, index, slot.State)
	return errors.Join(errs...)
}

// Shutdown unregisters and deinitializes the instance for endpoint. It is
// a no-op when the endpoint resolves to no slot or holds no instance, so
// calling it twice is safe. An Unregister failure is returned after the
// instance has been deinitialized.
func (c *Coordinator) Shutdown(endpoint datamodel.EndpointID, shutdownType registry.ShutdownType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := ClusterEndpointIndex(c.topo, endpoint, c.cluster)
	if index == InvalidIndex {
		c.metrics.skipped(c.cluster, StageUnregister)
		return nil
	}
	// The resolved index goes stale once earlier endpoints are destroyed,
	// so the slot is looked up by the endpoint it was started for.
	index, ok := c.slots.Find(endpoint)
	if !ok {
		c.metrics.skipped(c.cluster, StageUnregister)
		return nil
	}
	slot := c.slots.ptr(index)

	var err error
	if slot.State == SlotRegistered {
		if uerr := c.registry.Unregister(slot.Instance, shutdownType); uerr != nil {
			c.log.Errorf("cluster 0x%04X endpoint %d: unregister failed: %v", uint32(c.cluster), endpoint, uerr)
			err = c.fail(endpoint, StageUnregister, uerr)
		}
		c.metrics.observe(c.cluster, StageUnregister, err)
	}
	slot.State = SlotUnregistered

	slot.Instance.Deinit()
	*slot = Slot{}
	c.metrics.setLive(c.cluster, c.slots.Live())
	c.log.Debugf("cluster 0x%04X endpoint %d: slot %d released (%s)", uint32(c.cluster), endpoint, index, shutdownType)
	return err
}

// Instance returns the constructed instance serving endpoint.
func (c *Coordinator) Instance(endpoint datamodel.EndpointID) (Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index, ok := c.slots.Find(endpoint)
	if !ok {
		return nil, false
	}
	s, _ := c.slots.Get(index)
	return s.Instance, true
}

// Slot returns a copy of the slot at index.
func (c *Coordinator) Slot(index uint16) (Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots.Get(index)
}

// Live returns the number of constructed slots.
func (c *Coordinator) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots.Live()
}
