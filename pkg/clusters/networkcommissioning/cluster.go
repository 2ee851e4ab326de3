// Package networkcommissioning implements the Network Commissioning
// Cluster (0x0031).
//
// A cluster instance fronts exactly one network driver. The driver kind
// (Wi-Fi, Thread or Ethernet) determines the feature map, which in turn
// determines the attributes and commands the instance serves.
package networkcommissioning

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/backkem/espmatter/pkg/clusters"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0031
	ClusterRevision uint16              = 1
)

// Attribute IDs.
const (
	AttrMaxNetworks             datamodel.AttributeID = 0x0000
	AttrNetworks                datamodel.AttributeID = 0x0001
	AttrScanMaxTimeSeconds      datamodel.AttributeID = 0x0002
	AttrConnectMaxTimeSeconds   datamodel.AttributeID = 0x0003
	AttrInterfaceEnabled        datamodel.AttributeID = 0x0004
	AttrLastNetworkingStatus    datamodel.AttributeID = 0x0005
	AttrLastNetworkID           datamodel.AttributeID = 0x0006
	AttrLastConnectErrorValue   datamodel.AttributeID = 0x0007
	AttrSupportedWiFiBands      datamodel.AttributeID = 0x0008
	AttrSupportedThreadFeatures datamodel.AttributeID = 0x0009
	AttrThreadVersion           datamodel.AttributeID = 0x000A
)

// Command IDs.
const (
	CmdScanNetworks             datamodel.CommandID = 0x00
	CmdScanNetworksResponse     datamodel.CommandID = 0x01
	CmdAddOrUpdateWiFiNetwork   datamodel.CommandID = 0x02
	CmdAddOrUpdateThreadNetwork datamodel.CommandID = 0x03
	CmdRemoveNetwork            datamodel.CommandID = 0x04
	CmdNetworkConfigResponse    datamodel.CommandID = 0x05
	CmdConnectNetwork           datamodel.CommandID = 0x06
	CmdConnectNetworkResponse   datamodel.CommandID = 0x07
	CmdReorderNetwork           datamodel.CommandID = 0x08
)

// Feature bits.
const (
	FeatureWiFiNetworkInterface     uint32 = 1 << 0
	FeatureThreadNetworkInterface   uint32 = 1 << 1
	FeatureEthernetNetworkInterface uint32 = 1 << 2
)

// FeaturesFor returns the feature map implied by the driver's kind.
func FeaturesFor(d Driver) uint32 {
	switch d.(type) {
	case WiFiDriver:
		return FeatureWiFiNetworkInterface
	case ThreadDriver:
		return FeatureThreadNetworkInterface
	default:
		return FeatureEthernetNetworkInterface
	}
}

// BreadcrumbTracker receives the breadcrumb of successful commands.
type BreadcrumbTracker interface {
	SetBreadcrumb(value uint64)
}

// Config provides dependencies for a Network Commissioning cluster.
type Config struct {
	// EndpointID is the endpoint this instance serves.
	EndpointID datamodel.EndpointID

	// Driver is the network driver. Required.
	Driver Driver

	// Breadcrumb receives breadcrumbs of successful commands. Optional.
	Breadcrumb BreadcrumbTracker

	// LoggerFactory creates the "netcomm" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Network Commissioning cluster (0x0031).
type Cluster struct {
	*clusters.Base
	driver     Driver
	breadcrumb BreadcrumbTracker
	log        logging.LeveledLogger

	initMu      sync.Mutex
	initialized bool

	mu                   sync.RWMutex
	lastNetworkingStatus *NetworkingStatus
	lastNetworkID        []byte
	lastConnectError     *int32
}

// ErrNoDriver is returned by New when Config.Driver is nil.
var ErrNoDriver = errors.New("networkcommissioning: driver required")

// New creates a cluster instance. The driver is not touched until Init.
func New(cfg Config) (*Cluster, error) {
	if cfg.Driver == nil {
		return nil, ErrNoDriver
	}
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}

	c := &Cluster{
		Base:       clusters.NewBase(ClusterID, cfg.EndpointID, ClusterRevision),
		driver:     cfg.Driver,
		breadcrumb: cfg.Breadcrumb,
		log:        lf.NewLogger("netcomm"),
	}
	c.SetFeatureMap(FeaturesFor(cfg.Driver))
	return c, nil
}

// Driver returns the driver fronted by this instance.
func (c *Cluster) Driver() Driver {
	return c.driver
}

// Init initializes the driver and subscribes to its status changes.
func (c *Cluster) Init() error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.driver.Init(c.onStatusChange); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Deinit shuts the driver down. It is safe to call without a prior Init.
func (c *Cluster) Deinit() {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		c.driver.Shutdown()
		c.initialized = false
	}
}

// Initialized reports whether Init succeeded and Deinit was not called since.
func (c *Cluster) Initialized() bool {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	return c.initialized
}

func (c *Cluster) onStatusChange(status NetworkingStatus, networkID []byte, connectErr *int32) {
	c.log.Debugf("endpoint %d networking status %s", c.EndpointID(), status)
	c.recordStatus(status, networkID, connectErr)
}

// recordStatus updates the Last* attributes.
func (c *Cluster) recordStatus(status NetworkingStatus, networkID []byte, connectErr *int32) {
	c.mu.Lock()
	changed := c.lastNetworkingStatus == nil || *c.lastNetworkingStatus != status
	c.lastNetworkingStatus = &status
	if networkID != nil {
		changed = changed || !bytes.Equal(c.lastNetworkID, networkID)
		c.lastNetworkID = append([]byte(nil), networkID...)
	}
	if connectErr != nil || c.lastConnectError != nil {
		changed = true
		c.lastConnectError = connectErr
	}
	c.mu.Unlock()

	if changed {
		c.IncrementDataVersion()
	}
}

// LastNetworkingStatus returns the last recorded status, or nil.
func (c *Cluster) LastNetworkingStatus() *NetworkingStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastNetworkingStatus == nil {
		return nil
	}
	s := *c.lastNetworkingStatus
	return &s
}

// LastNetworkID returns the last network ID used, or nil.
func (c *Cluster) LastNetworkID() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]byte(nil), c.lastNetworkID...)
}

// Networks returns the driver's configured networks.
func (c *Cluster) Networks() []NetworkInfo {
	return c.driver.Networks()
}

// SupportedWiFiBands returns the Wi-Fi bands, or nil for non-Wi-Fi drivers.
func (c *Cluster) SupportedWiFiBands() []WiFiBand {
	if w, ok := c.driver.(WiFiDriver); ok {
		return w.SupportedWiFiBands()
	}
	return nil
}

// AttributeIDs returns the attributes served given the feature map.
func (c *Cluster) AttributeIDs() []datamodel.AttributeID {
	ids := []datamodel.AttributeID{
		AttrMaxNetworks,
		AttrNetworks,
		AttrInterfaceEnabled,
		AttrLastNetworkingStatus,
		AttrLastNetworkID,
		AttrLastConnectErrorValue,
	}
	features := clusters.FeatureSet(c.FeatureMap())
	if features.HasAny(FeatureWiFiNetworkInterface | FeatureThreadNetworkInterface) {
		ids = append(ids, AttrScanMaxTimeSeconds, AttrConnectMaxTimeSeconds)
	}
	if features.Has(FeatureWiFiNetworkInterface) {
		ids = append(ids, AttrSupportedWiFiBands)
	}
	if features.Has(FeatureThreadNetworkInterface) {
		ids = append(ids, AttrSupportedThreadFeatures, AttrThreadVersion)
	}
	return ids
}

// ReadAttribute implements registry.ServerCluster.
//
// List-valued attributes (Networks, SupportedWiFiBands) are exposed
// through typed accessors.
func (c *Cluster) ReadAttribute(_ context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	if err := c.CheckPath(path); err != nil {
		return datamodel.Value{}, err
	}
	if v, ok := c.ReadGlobalAttribute(path.Attribute); ok {
		return v, nil
	}

	wireless, isWireless := c.driver.(WirelessDriver)
	thread, isThread := c.driver.(ThreadDriver)

	switch path.Attribute {
	case AttrMaxNetworks:
		return datamodel.Uint8(c.driver.MaxNetworks()), nil
	case AttrInterfaceEnabled:
		return datamodel.Bool(c.driver.Enabled()), nil
	case AttrLastNetworkingStatus:
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.lastNetworkingStatus == nil {
			return datamodel.Null(datamodel.TypeEnum8), nil
		}
		return datamodel.Enum8(uint8(*c.lastNetworkingStatus)).AsNullable(), nil
	case AttrLastNetworkID:
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.lastNetworkID == nil {
			return datamodel.Null(datamodel.TypeOctetString), nil
		}
		return datamodel.OctetString(c.lastNetworkID).AsNullable(), nil
	case AttrLastConnectErrorValue:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return datamodel.NullableInt32(c.lastConnectError), nil
	case AttrScanMaxTimeSeconds:
		if isWireless {
			return datamodel.Uint8(wireless.ScanMaxTimeSeconds()), nil
		}
	case AttrConnectMaxTimeSeconds:
		if isWireless {
			return datamodel.Uint8(wireless.ConnectMaxTimeSeconds()), nil
		}
	case AttrSupportedThreadFeatures:
		if isThread {
			return datamodel.Bitmap16(thread.SupportedThreadFeatures()), nil
		}
	case AttrThreadVersion:
		if isThread {
			return datamodel.Uint16(thread.ThreadVersion()), nil
		}
	}
	return datamodel.Value{}, clusters.ErrUnsupportedAttribute
}

// WriteAttribute implements registry.ServerCluster. Only InterfaceEnabled is writable.
func (c *Cluster) WriteAttribute(_ context.Context, path datamodel.ConcreteAttributePath, v datamodel.Value) error {
	if err := c.CheckPath(path); err != nil {
		return err
	}
	if path.Attribute != AttrInterfaceEnabled {
		return clusters.ErrUnsupportedWrite
	}
	enabled, err := v.AsBool()
	if err != nil {
		return err
	}
	if enabled == c.driver.Enabled() {
		return nil
	}
	if err := c.driver.SetEnabled(enabled); err != nil {
		return err
	}
	c.IncrementDataVersion()
	return nil
}
