package integration

import (
	"github.com/backkem/espmatter/pkg/clusters/generalcommissioning"
	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/backkem/espmatter/pkg/clusters/timesync"
	"github.com/backkem/espmatter/pkg/datamodel"
)

// attrSpec is one attribute to create on a data model cluster.
type attrSpec struct {
	id    datamodel.AttributeID
	flags datamodel.AttributeFlag
	value datamodel.Value
	when  bool
}

func createAttributes(c *datamodel.Cluster, specs []attrSpec) error {
	for _, s := range specs {
		if !s.when {
			continue
		}
		if _, err := c.CreateAttribute(s.id, s.flags, s.value); err != nil {
			return err
		}
	}
	return nil
}

// CreateGeneralCommissioningCluster adds a General Commissioning server
// cluster to ep. Only the Breadcrumb is stored in the data model, where
// it persists across restarts.
func CreateGeneralCommissioningCluster(ep *datamodel.Endpoint) (*datamodel.Cluster, error) {
	c, err := ep.CreateCluster(generalcommissioning.ClusterID, datamodel.ClusterFlagServer)
	if err != nil {
		return nil, err
	}
	if err := c.CreateGlobalAttributes(generalcommissioning.ClusterRevision, 0); err != nil {
		return nil, err
	}
	flags := datamodel.AttributeFlagWritable | datamodel.AttributeFlagNonVolatile
	if _, err := c.CreateAttribute(generalcommissioning.AttrBreadcrumb, flags, datamodel.Uint64(0)); err != nil {
		return nil, err
	}
	return c, nil
}

// NetworkCommissioningAttributes are the data model defaults of a Network
// Commissioning cluster.
type NetworkCommissioningAttributes struct {
	Features                uint32
	MaxNetworks             uint8
	ScanMaxTimeSeconds      uint8
	ConnectMaxTimeSeconds   uint8
	SupportedThreadFeatures uint16
	ThreadVersion           uint16
}

// CreateNetworkCommissioningCluster adds a Network Commissioning server
// cluster to ep with the attributes its features call for. List-valued
// attributes (Networks, SupportedWiFiBands) are served by the cluster
// instance and are not stored in the data model.
func CreateNetworkCommissioningCluster(ep *datamodel.Endpoint, attrs NetworkCommissioningAttributes) (*datamodel.Cluster, error) {
	c, err := ep.CreateCluster(nc.ClusterID, datamodel.ClusterFlagServer)
	if err != nil {
		return nil, err
	}
	wireless := attrs.Features&(nc.FeatureWiFiNetworkInterface|nc.FeatureThreadNetworkInterface) != 0
	thread := attrs.Features&nc.FeatureThreadNetworkInterface != 0
	nullable := datamodel.AttributeFlagNullable

	if err := c.CreateGlobalAttributes(nc.ClusterRevision, attrs.Features); err != nil {
		return nil, err
	}
	err = createAttributes(c, []attrSpec{
		{nc.AttrMaxNetworks, 0, datamodel.Uint8(attrs.MaxNetworks), true},
		{nc.AttrScanMaxTimeSeconds, 0, datamodel.Uint8(attrs.ScanMaxTimeSeconds), wireless},
		{nc.AttrConnectMaxTimeSeconds, 0, datamodel.Uint8(attrs.ConnectMaxTimeSeconds), wireless},
		{nc.AttrInterfaceEnabled, datamodel.AttributeFlagWritable | datamodel.AttributeFlagNonVolatile, datamodel.Bool(true), true},
		{nc.AttrLastNetworkingStatus, nullable, datamodel.Null(datamodel.TypeEnum8), true},
		{nc.AttrLastNetworkID, nullable, datamodel.Null(datamodel.TypeOctetString), true},
		{nc.AttrLastConnectErrorValue, nullable, datamodel.Null(datamodel.TypeInt32), true},
		{nc.AttrSupportedThreadFeatures, 0, datamodel.Bitmap16(attrs.SupportedThreadFeatures), thread},
		{nc.AttrThreadVersion, 0, datamodel.Uint16(attrs.ThreadVersion), thread},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// TimeSyncAttributes are the data model defaults of a Time
// Synchronization cluster.
type TimeSyncAttributes struct {
	Features           uint32
	SupportsDNSResolve bool
	TimeZoneDatabase   timesync.TimeZoneDatabase
	NTPServerAvailable bool

	// TimeSource creates the optional TimeSource attribute when set.
	TimeSource *timesync.TimeSource
}

// CreateTimeSyncCluster adds a Time Synchronization server cluster to ep
// with the attributes its features call for. These are the attributes
// AssembleTimeSyncStartup reads back.
func CreateTimeSyncCluster(ep *datamodel.Endpoint, attrs TimeSyncAttributes) (*datamodel.Cluster, error) {
	c, err := ep.CreateCluster(timesync.ClusterID, datamodel.ClusterFlagServer)
	if err != nil {
		return nil, err
	}
	tz := attrs.Features&timesync.FeatureTimeZone != 0
	ntpClient := attrs.Features&timesync.FeatureNTPClient != 0
	ntpServer := attrs.Features&timesync.FeatureNTPServer != 0
	nullable := datamodel.AttributeFlagNullable
	persisted := datamodel.AttributeFlagNonVolatile

	var source datamodel.Value
	if attrs.TimeSource != nil {
		source = datamodel.Enum8(uint8(*attrs.TimeSource))
	}

	if err := c.CreateGlobalAttributes(timesync.ClusterRevision, attrs.Features); err != nil {
		return nil, err
	}
	err = createAttributes(c, []attrSpec{
		{timesync.AttrUTCTime, nullable, datamodel.Null(datamodel.TypeUint64), true},
		{timesync.AttrGranularity, 0, datamodel.Enum8(uint8(timesync.GranularityNoTime)), true},
		{timesync.AttrTimeSource, 0, source, attrs.TimeSource != nil},
		{timesync.AttrDefaultNTP, nullable | persisted, datamodel.Null(datamodel.TypeCharString), ntpClient},
		{timesync.AttrLocalTime, nullable, datamodel.Null(datamodel.TypeUint64), tz},
		{timesync.AttrTimeZoneDatabase, persisted, datamodel.Enum8(uint8(attrs.TimeZoneDatabase)), tz},
		{timesync.AttrNTPServerAvailable, persisted, datamodel.Bool(attrs.NTPServerAvailable), ntpServer},
		{timesync.AttrTimeZoneListMaxSize, 0, datamodel.Uint8(timesync.TimeZoneListMaxSize), tz},
		{timesync.AttrSupportsDNSResolve, persisted, datamodel.Bool(attrs.SupportsDNSResolve), ntpClient},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
