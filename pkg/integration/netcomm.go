package integration

import (
	"fmt"
	"reflect"

	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/pion/logging"
)

// NetworkTechnology names a network commissioning driver kind.
type NetworkTechnology uint8

const (
	TechnologyThread NetworkTechnology = iota
	TechnologyWiFi
	TechnologyEthernet
)

// String returns the technology name.
func (t NetworkTechnology) String() string {
	switch t {
	case TechnologyThread:
		return "thread"
	case TechnologyWiFi:
		return "wifi"
	case TechnologyEthernet:
		return "ethernet"
	default:
		return fmt.Sprintf("NetworkTechnology(%d)", uint8(t))
	}
}

// NetworkInterface binds a technology to its endpoint and driver.
type NetworkInterface struct {
	Technology NetworkTechnology
	Endpoint   datamodel.EndpointID
	Driver     nc.Driver
}

// NetworkCommissioningConfig configures the Network Commissioning
// integration. A technology is enabled by setting its endpoint ID.
type NetworkCommissioningConfig struct {
	// ThreadEndpoint is the endpoint served by ThreadDriver.
	ThreadEndpoint *datamodel.EndpointID
	ThreadDriver   nc.ThreadDriver

	// WiFiEndpoint is the endpoint served by WiFiDriver.
	WiFiEndpoint *datamodel.EndpointID
	WiFiDriver   nc.WiFiDriver

	// EthernetEndpoint is the endpoint served by EthernetDriver.
	EthernetEndpoint *datamodel.EndpointID
	EthernetDriver   nc.EthernetDriver

	// Breadcrumb receives breadcrumbs of successful commands. Optional.
	Breadcrumb nc.BreadcrumbTracker

	// Topology resolves endpoints. Required.
	Topology datamodel.Topology

	// Registry receives cluster instances. Required.
	Registry Registrar

	// Metrics records lifecycle steps. Optional.
	Metrics *Metrics

	// LoggerFactory creates loggers. Optional.
	LoggerFactory logging.LoggerFactory
}

// Interfaces returns the enabled technologies in selection order: Thread,
// then Wi-Fi, then Ethernet.
func (c *NetworkCommissioningConfig) Interfaces() []NetworkInterface {
	var out []NetworkInterface
	if c.ThreadEndpoint != nil {
		out = append(out, NetworkInterface{TechnologyThread, *c.ThreadEndpoint, driverOrNil(c.ThreadDriver)})
	}
	if c.WiFiEndpoint != nil {
		out = append(out, NetworkInterface{TechnologyWiFi, *c.WiFiEndpoint, driverOrNil(c.WiFiDriver)})
	}
	if c.EthernetEndpoint != nil {
		out = append(out, NetworkInterface{TechnologyEthernet, *c.EthernetEndpoint, driverOrNil(c.EthernetDriver)})
	}
	return out
}

// driverOrNil converts a typed driver to nc.Driver, keeping nil interfaces nil.
func driverOrNil[D nc.Driver](d D) nc.Driver {
	if isNil(d) {
		return nil
	}
	return d
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// sameDriver reports whether a and b are the same driver instance.
func sameDriver(a, b nc.Driver) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}

// Enable binds d to tech on endpoint. d must implement the driver
// interface of tech.
func (c *NetworkCommissioningConfig) Enable(tech NetworkTechnology, endpoint datamodel.EndpointID, d nc.Driver) error {
	ep := endpoint
	switch tech {
	case TechnologyThread:
		td, ok := d.(nc.ThreadDriver)
		if !ok {
			return fmt.Errorf("%w: %T is not a thread driver", ErrWrongDriverKind, d)
		}
		c.ThreadEndpoint, c.ThreadDriver = &ep, td
	case TechnologyWiFi:
		wd, ok := d.(nc.WiFiDriver)
		if !ok {
			return fmt.Errorf("%w: %T is not a wifi driver", ErrWrongDriverKind, d)
		}
		c.WiFiEndpoint, c.WiFiDriver = &ep, wd
	case TechnologyEthernet:
		if d == nil {
			return fmt.Errorf("%w: %s", ErrMissingDriver, tech)
		}
		c.EthernetEndpoint, c.EthernetDriver = &ep, d
	default:
		return fmt.Errorf("%w: %s", ErrWrongDriverKind, tech)
	}
	return nil
}

// Capacity returns the slot count: the number of enabled technologies.
func (c *NetworkCommissioningConfig) Capacity() int {
	return len(c.Interfaces())
}

// Validate checks the configuration for errors.
func (c *NetworkCommissioningConfig) Validate() error {
	if c.Topology == nil || c.Registry == nil {
		return fmt.Errorf("%w: topology and registry are required", ErrInvalidBuildConfig)
	}
	ifaces := c.Interfaces()
	if len(ifaces) == 0 {
		return ErrNoNetworkDrivers
	}
	for i, a := range ifaces {
		if a.Driver == nil {
			return fmt.Errorf("%w: %s", ErrMissingDriver, a.Technology)
		}
		for _, b := range ifaces[i+1:] {
			if a.Endpoint == b.Endpoint {
				return fmt.Errorf("%w: endpoint %d is %s and %s", ErrEndpointConflict, a.Endpoint, a.Technology, b.Technology)
			}
			if b.Driver != nil && sameDriver(a.Driver, b.Driver) {
				return fmt.Errorf("%w: %s and %s", ErrDriverAliased, a.Technology, b.Technology)
			}
		}
	}
	return nil
}

// DriverFor selects the driver for endpoint by matching it against the
// configured endpoint IDs.
func (c *NetworkCommissioningConfig) DriverFor(endpoint datamodel.EndpointID) (nc.Driver, NetworkTechnology, error) {
	for _, iface := range c.Interfaces() {
		if iface.Endpoint == endpoint {
			return iface.Driver, iface.Technology, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %d", ErrNoDriverForEndpoint, endpoint)
}

// NetworkCommissioning integrates the Network Commissioning cluster: one
// instance per configured network endpoint.
type NetworkCommissioning struct {
	cfg   NetworkCommissioningConfig
	coord *Coordinator
	lf    logging.LoggerFactory
	log   logging.LeveledLogger
}

var _ ClusterFamily = (*NetworkCommissioning)(nil)

// NewNetworkCommissioning validates cfg and creates the integration.
func NewNetworkCommissioning(cfg NetworkCommissioningConfig) (*NetworkCommissioning, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	n := &NetworkCommissioning{
		cfg: cfg,
		lf:  cfg.LoggerFactory,
		log: cfg.LoggerFactory.NewLogger("integration"),
	}
	coord, err := NewCoordinator(CoordinatorConfig{
		Cluster:       nc.ClusterID,
		Capacity:      cfg.Capacity(),
		Topology:      cfg.Topology,
		Registry:      cfg.Registry,
		Factory:       n.construct,
		Metrics:       cfg.Metrics,
		LoggerFactory: cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	n.coord = coord
	return n, nil
}

func (n *NetworkCommissioning) construct(endpoint datamodel.EndpointID) (Instance, error) {
	driver, tech, err := n.cfg.DriverFor(endpoint)
	if err != nil {
		return nil, err
	}
	n.log.Infof("network commissioning on endpoint %d uses the %s driver", endpoint, tech)
	return nc.New(nc.Config{
		EndpointID:    endpoint,
		Driver:        driver,
		Breadcrumb:    n.cfg.Breadcrumb,
		LoggerFactory: n.lf,
	})
}

// ClusterID implements ClusterFamily.
func (n *NetworkCommissioning) ClusterID() datamodel.ClusterID { return nc.ClusterID }

// ServerInitCallback implements ClusterFamily.
func (n *NetworkCommissioning) ServerInitCallback(endpoint datamodel.EndpointID) error {
	return n.coord.Startup(endpoint)
}

// ServerShutdownCallback implements ClusterFamily.
func (n *NetworkCommissioning) ServerShutdownCallback(endpoint datamodel.EndpointID, shutdownType registry.ShutdownType) error {
	return n.coord.Shutdown(endpoint, shutdownType)
}

// PluginServerInitCallback implements ClusterFamily.
func (n *NetworkCommissioning) PluginServerInitCallback() {
	n.log.Debugf("network commissioning plugin up, %d interface(s)", n.coord.Capacity())
}

// PluginServerShutdownCallback implements ClusterFamily.
func (n *NetworkCommissioning) PluginServerShutdownCallback() {}

// Coordinator returns the lifecycle coordinator.
func (n *NetworkCommissioning) Coordinator() *Coordinator {
	return n.coord
}

// Cluster returns the live instance serving endpoint, or nil.
func (n *NetworkCommissioning) Cluster(endpoint datamodel.EndpointID) *nc.Cluster {
	inst, ok := n.coord.Instance(endpoint)
	if !ok {
		return nil
	}
	c, _ := inst.(*nc.Cluster)
	return c
}
