package integration

import (
	"github.com/backkem/espmatter/pkg/clusters/generalcommissioning"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/pion/logging"
)

// generalCommissioningInstance gives the General Commissioning cluster the
// Init/Deinit pair the Coordinator drives; it has nothing to set up.
type generalCommissioningInstance struct {
	*generalcommissioning.Cluster
}

func (generalCommissioningInstance) Init() error { return nil }
func (generalCommissioningInstance) Deinit()     {}

// GeneralCommissioningConfig configures the General Commissioning integration.
type GeneralCommissioningConfig struct {
	// Cluster is the template configuration; EndpointID is overwritten.
	Cluster generalcommissioning.Config

	// Topology resolves endpoints. Required.
	Topology datamodel.Topology

	// Registry receives the instance. Required.
	Registry Registrar

	// Metrics records lifecycle steps. Optional.
	Metrics *Metrics

	// LoggerFactory creates loggers. Optional.
	LoggerFactory logging.LoggerFactory
}

// GeneralCommissioning integrates the General Commissioning cluster on the
// root endpoint. It owns the breadcrumb that Network Commissioning
// commands update.
type GeneralCommissioning struct {
	cfg   GeneralCommissioningConfig
	coord *Coordinator
}

var _ ClusterFamily = (*GeneralCommissioning)(nil)

// NewGeneralCommissioning creates the integration with a single slot.
func NewGeneralCommissioning(cfg GeneralCommissioningConfig) (*GeneralCommissioning, error) {
	g := &GeneralCommissioning{cfg: cfg}
	coord, err := NewCoordinator(CoordinatorConfig{
		Cluster:       generalcommissioning.ClusterID,
		Capacity:      1,
		Topology:      cfg.Topology,
		Registry:      cfg.Registry,
		Factory:       g.construct,
		Metrics:       cfg.Metrics,
		LoggerFactory: cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	g.coord = coord
	return g, nil
}

func (g *GeneralCommissioning) construct(endpoint datamodel.EndpointID) (Instance, error) {
	cfg := g.cfg.Cluster
	cfg.EndpointID = endpoint
	return generalCommissioningInstance{generalcommissioning.New(cfg)}, nil
}

// ClusterID implements ClusterFamily.
func (g *GeneralCommissioning) ClusterID() datamodel.ClusterID {
	return generalcommissioning.ClusterID
}

// ServerInitCallback implements ClusterFamily.
func (g *GeneralCommissioning) ServerInitCallback(endpoint datamodel.EndpointID) error {
	if endpoint != datamodel.RootEndpointID {
		return nil
	}
	return g.coord.Startup(endpoint)
}

// ServerShutdownCallback implements ClusterFamily.
func (g *GeneralCommissioning) ServerShutdownCallback(endpoint datamodel.EndpointID, shutdownType registry.ShutdownType) error {
	if endpoint != datamodel.RootEndpointID {
		return nil
	}
	return g.coord.Shutdown(endpoint, shutdownType)
}

// PluginServerInitCallback implements ClusterFamily.
func (g *GeneralCommissioning) PluginServerInitCallback() {}

// PluginServerShutdownCallback implements ClusterFamily.
func (g *GeneralCommissioning) PluginServerShutdownCallback() {}

// Cluster returns the live instance, or nil.
func (g *GeneralCommissioning) Cluster() *generalcommissioning.Cluster {
	inst, ok := g.coord.Instance(datamodel.RootEndpointID)
	if !ok {
		return nil
	}
	gc, _ := inst.(generalCommissioningInstance)
	return gc.Cluster
}

// Breadcrumb returns a tracker that forwards to the live instance.
func (g *GeneralCommissioning) Breadcrumb() *BreadcrumbTracker {
	return NewBreadcrumbTracker(g.Cluster)
}
