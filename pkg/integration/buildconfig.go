package integration

import (
	"fmt"
	"os"
	"strings"

	"github.com/backkem/espmatter/pkg/clusters/timesync"
	"github.com/backkem/espmatter/pkg/datamodel"
	"gopkg.in/yaml.v3"
)

// DefaultMaxDynamicEndpoints bounds the endpoints a node may hold when the
// build configuration leaves it unset.
const DefaultMaxDynamicEndpoints = 16

// InterfaceBuildConfig enables one network technology.
type InterfaceBuildConfig struct {
	Enabled  bool                 `yaml:"enabled"`
	Endpoint datamodel.EndpointID `yaml:"endpoint"`
}

// NetworkBuildConfig selects the network commissioning technologies.
type NetworkBuildConfig struct {
	Thread   InterfaceBuildConfig `yaml:"thread"`
	WiFi     InterfaceBuildConfig `yaml:"wifi"`
	Ethernet InterfaceBuildConfig `yaml:"ethernet"`
}

// TimeSyncBuildConfig describes the Time Synchronization cluster of the
// root endpoint.
type TimeSyncBuildConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Features           []string `yaml:"features"`
	SupportsDNSResolve bool     `yaml:"supports_dns_resolve"`
	TimeZoneDatabase   string   `yaml:"time_zone_database"`
	NTPServerAvailable bool     `yaml:"ntp_server_available"`
	TimeSource         *uint8   `yaml:"time_source"`
}

// BuildConfig holds the switches a node is built with.
type BuildConfig struct {
	MaxDynamicEndpoints  int                 `yaml:"max_dynamic_endpoints"`
	GeneralCommissioning bool                `yaml:"general_commissioning"`
	NetworkCommissioning NetworkBuildConfig  `yaml:"network_commissioning"`
	TimeSync             TimeSyncBuildConfig `yaml:"time_sync"`
}

var timeSyncFeatureNames = map[string]uint32{
	"time_zone":        timesync.FeatureTimeZone,
	"ntp_client":       timesync.FeatureNTPClient,
	"ntp_server":       timesync.FeatureNTPServer,
	"time_sync_client": timesync.FeatureTimeSyncClient,
}

var timeZoneDatabaseNames = map[string]timesync.TimeZoneDatabase{
	"full":    timesync.TimeZoneDatabaseFull,
	"partial": timesync.TimeZoneDatabasePartial,
	"none":    timesync.TimeZoneDatabaseNone,
}

// LoadBuildConfig reads, defaults and validates a YAML build configuration.
func LoadBuildConfig(path string) (*BuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("integration: read build config: %w", err)
	}
	return ParseBuildConfig(data)
}

// ParseBuildConfig decodes, defaults and validates a YAML build configuration.
func ParseBuildConfig(data []byte) (*BuildConfig, error) {
	var cfg BuildConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBuildConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *BuildConfig) applyDefaults() {
	if c.MaxDynamicEndpoints == 0 {
		c.MaxDynamicEndpoints = DefaultMaxDynamicEndpoints
	}
	if c.TimeSync.TimeZoneDatabase == "" {
		c.TimeSync.TimeZoneDatabase = "none"
	}
}

// Validate checks the configuration for errors.
func (c *BuildConfig) Validate() error {
	if c.MaxDynamicEndpoints <= 0 || c.MaxDynamicEndpoints >= int(datamodel.InvalidEndpointID) {
		return fmt.Errorf("%w: max_dynamic_endpoints %d out of range", ErrInvalidBuildConfig, c.MaxDynamicEndpoints)
	}

	seen := make(map[datamodel.EndpointID]NetworkTechnology)
	for tech, iface := range c.NetworkCommissioning.interfaces() {
		if !iface.Enabled {
			continue
		}
		if other, ok := seen[iface.Endpoint]; ok {
			return fmt.Errorf("%w: %w: endpoint %d is %s and %s",
				ErrInvalidBuildConfig, ErrEndpointConflict, iface.Endpoint, other, NetworkTechnology(tech))
		}
		seen[iface.Endpoint] = NetworkTechnology(tech)
	}

	if _, err := c.TimeSync.FeatureMap(); err != nil {
		return err
	}
	if _, err := c.TimeSync.Database(); err != nil {
		return err
	}
	if src := c.TimeSync.TimeSource; src != nil && !timesync.TimeSource(*src).Valid() {
		return fmt.Errorf("%w: time_source %d", ErrInvalidBuildConfig, *src)
	}
	return nil
}

// interfaces returns the technologies indexed by NetworkTechnology.
func (n NetworkBuildConfig) interfaces() [3]InterfaceBuildConfig {
	return [3]InterfaceBuildConfig{
		TechnologyThread:   n.Thread,
		TechnologyWiFi:     n.WiFi,
		TechnologyEthernet: n.Ethernet,
	}
}

// Enabled returns the enabled technologies in selection order.
func (n NetworkBuildConfig) Enabled() []NetworkTechnology {
	var out []NetworkTechnology
	for tech, iface := range n.interfaces() {
		if iface.Enabled {
			out = append(out, NetworkTechnology(tech))
		}
	}
	return out
}

// Endpoint returns the endpoint configured for tech.
func (n NetworkBuildConfig) Endpoint(tech NetworkTechnology) (datamodel.EndpointID, bool) {
	ifaces := n.interfaces()
	if int(tech) >= len(ifaces) || !ifaces[tech].Enabled {
		return 0, false
	}
	return ifaces[tech].Endpoint, true
}

// FeatureMap translates the feature names to the cluster feature bitmap.
func (t TimeSyncBuildConfig) FeatureMap() (uint32, error) {
	var features uint32
	for _, name := range t.Features {
		bit, ok := timeSyncFeatureNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("%w: unknown time sync feature %q", ErrInvalidBuildConfig, name)
		}
		features |= bit
	}
	return features, nil
}

// Database translates the time zone database name.
func (t TimeSyncBuildConfig) Database() (timesync.TimeZoneDatabase, error) {
	name := t.TimeZoneDatabase
	if name == "" {
		name = "none"
	}
	db, ok := timeZoneDatabaseNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown time zone database %q", ErrInvalidBuildConfig, t.TimeZoneDatabase)
	}
	return db, nil
}

// Attributes returns the data model defaults of the Time Synchronization
// cluster. The configuration must have been validated.
func (t TimeSyncBuildConfig) Attributes() TimeSyncAttributes {
	features, _ := t.FeatureMap()
	db, _ := t.Database()
	attrs := TimeSyncAttributes{
		Features:           features,
		SupportsDNSResolve: t.SupportsDNSResolve,
		TimeZoneDatabase:   db,
		NTPServerAvailable: t.NTPServerAvailable,
	}
	if t.TimeSource != nil {
		src := timesync.TimeSource(*t.TimeSource)
		attrs.TimeSource = &src
	}
	return attrs
}

// NodeConfig returns the data model limits of the build.
func (c *BuildConfig) NodeConfig() datamodel.NodeConfig {
	return datamodel.NodeConfig{MaxEndpoints: c.MaxDynamicEndpoints}
}
