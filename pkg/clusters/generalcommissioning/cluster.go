// Package generalcommissioning implements the General Commissioning Cluster (0x0030).
//
// The cluster owns the commissioning breadcrumb, the regulatory
// configuration and the fail-safe commands. Other commissioning clusters
// update the breadcrumb through SetBreadcrumb.
//
// This cluster is mandatory on the root endpoint (endpoint 0).
package generalcommissioning

import (
	"context"
	"errors"
	"sync"

	"github.com/backkem/espmatter/pkg/clusters"
	"github.com/backkem/espmatter/pkg/datamodel"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0030
	ClusterRevision uint16              = 1
)

// Attribute IDs.
const (
	AttrBreadcrumb                   datamodel.AttributeID = 0x0000
	AttrBasicCommissioningInfo       datamodel.AttributeID = 0x0001
	AttrRegulatoryConfig             datamodel.AttributeID = 0x0002
	AttrLocationCapability           datamodel.AttributeID = 0x0003
	AttrSupportsConcurrentConnection datamodel.AttributeID = 0x0004
)

// Command IDs.
const (
	CmdArmFailSafe                 datamodel.CommandID = 0x00
	CmdArmFailSafeResponse         datamodel.CommandID = 0x01
	CmdSetRegulatoryConfig         datamodel.CommandID = 0x02
	CmdSetRegulatoryConfigResponse datamodel.CommandID = 0x03
	CmdCommissioningComplete       datamodel.CommandID = 0x04
	CmdCommissioningCompleteResp   datamodel.CommandID = 0x05
)

// FabricIndex identifies the fabric of the invoking administrator.
type FabricIndex uint8

// RegulatoryLocationType indicates the regulatory location type.
type RegulatoryLocationType uint8

const (
	RegulatoryIndoor        RegulatoryLocationType = 0
	RegulatoryOutdoor       RegulatoryLocationType = 1
	RegulatoryIndoorOutdoor RegulatoryLocationType = 2
)

// String returns the name of the regulatory location type.
func (r RegulatoryLocationType) String() string {
	switch r {
	case RegulatoryIndoor:
		return "Indoor"
	case RegulatoryOutdoor:
		return "Outdoor"
	case RegulatoryIndoorOutdoor:
		return "IndoorOutdoor"
	default:
		return "Unknown"
	}
}

// CommissioningErrorCode is the error code carried by command responses.
type CommissioningErrorCode uint8

const (
	CommissioningOK                    CommissioningErrorCode = 0
	CommissioningValueOutsideRange     CommissioningErrorCode = 1
	CommissioningInvalidAuthentication CommissioningErrorCode = 2
	CommissioningNoFailSafe            CommissioningErrorCode = 3
	CommissioningBusyWithOtherAdmin    CommissioningErrorCode = 4
)

// String returns the name of the commissioning error code.
func (c CommissioningErrorCode) String() string {
	switch c {
	case CommissioningOK:
		return "OK"
	case CommissioningValueOutsideRange:
		return "ValueOutsideRange"
	case CommissioningInvalidAuthentication:
		return "InvalidAuthentication"
	case CommissioningNoFailSafe:
		return "NoFailSafe"
	case CommissioningBusyWithOtherAdmin:
		return "BusyWithOtherAdmin"
	default:
		return "Unknown"
	}
}

// BasicCommissioningInfo provides constant values for commissioning.
type BasicCommissioningInfo struct {
	// FailSafeExpiryLengthSeconds is the initial fail-safe duration.
	FailSafeExpiryLengthSeconds uint16

	// MaxCumulativeFailsafeSeconds is the maximum total fail-safe duration.
	MaxCumulativeFailsafeSeconds uint16
}

// FailSafeManager provides the fail-safe context management.
type FailSafeManager interface {
	// IsArmed returns true if the fail-safe timer is currently armed.
	IsArmed() bool

	// ArmedFabricIndex returns the fabric index that armed the fail-safe,
	// or 0 if not armed.
	ArmedFabricIndex() FabricIndex

	// Arm arms the fail-safe timer for the specified duration.
	Arm(fabricIndex FabricIndex, expirySeconds uint16) error

	// Disarm disarms the fail-safe timer.
	Disarm(fabricIndex FabricIndex) error

	// ExtendArm extends the fail-safe timer.
	ExtendArm(fabricIndex FabricIndex, expirySeconds uint16) error

	// Complete marks commissioning as complete.
	Complete(fabricIndex FabricIndex) error
}

// Config provides dependencies for the General Commissioning cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to (should be 0).
	EndpointID datamodel.EndpointID

	// BasicCommissioningInfo provides commissioning timing parameters.
	BasicCommissioningInfo BasicCommissioningInfo

	// LocationCapability indicates the regulatory location capability.
	LocationCapability RegulatoryLocationType

	// SupportsConcurrentConnection indicates concurrent connection support.
	SupportsConcurrentConnection bool

	// FailSafeManager provides fail-safe context management.
	// Optional; without it fail-safe commands succeed without side effects.
	FailSafeManager FailSafeManager
}

// Cluster implements the General Commissioning cluster (0x0030).
type Cluster struct {
	*clusters.Base
	config Config

	mu               sync.RWMutex
	breadcrumb       uint64
	regulatoryConfig RegulatoryLocationType
}

// New creates a new General Commissioning cluster.
func New(cfg Config) *Cluster {
	return &Cluster{
		Base:             clusters.NewBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:           cfg,
		regulatoryConfig: cfg.LocationCapability,
	}
}

// ReadAttribute implements registry.ServerCluster.
//
// BasicCommissioningInfo is struct-valued and is exposed through
// BasicCommissioningInfo() instead.
func (c *Cluster) ReadAttribute(_ context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	if err := c.CheckPath(path); err != nil {
		return datamodel.Value{}, err
	}
	if v, ok := c.ReadGlobalAttribute(path.Attribute); ok {
		return v, nil
	}

	switch path.Attribute {
	case AttrBreadcrumb:
		return datamodel.Uint64(c.Breadcrumb()), nil
	case AttrRegulatoryConfig:
		return datamodel.Enum8(uint8(c.RegulatoryConfig())), nil
	case AttrLocationCapability:
		return datamodel.Enum8(uint8(c.config.LocationCapability)), nil
	case AttrSupportsConcurrentConnection:
		return datamodel.Bool(c.config.SupportsConcurrentConnection), nil
	default:
		return datamodel.Value{}, clusters.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements registry.ServerCluster. Only Breadcrumb is writable.
func (c *Cluster) WriteAttribute(_ context.Context, path datamodel.ConcreteAttributePath, v datamodel.Value) error {
	if err := c.CheckPath(path); err != nil {
		return err
	}
	switch path.Attribute {
	case AttrBreadcrumb:
		val, err := v.AsUint64()
		if err != nil {
			return err
		}
		c.SetBreadcrumb(val)
		return nil
	default:
		return clusters.ErrUnsupportedWrite
	}
}

// BasicCommissioningInfo returns the fixed commissioning timing parameters.
func (c *Cluster) BasicCommissioningInfo() BasicCommissioningInfo {
	return c.config.BasicCommissioningInfo
}

// Breadcrumb returns the current breadcrumb value.
func (c *Cluster) Breadcrumb() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.breadcrumb
}

// SetBreadcrumb sets the breadcrumb value.
// This is also called by fail-safe expiry to reset to 0.
func (c *Cluster) SetBreadcrumb(value uint64) {
	c.mu.Lock()
	changed := c.breadcrumb != value
	c.breadcrumb = value
	c.mu.Unlock()
	if changed {
		c.IncrementDataVersion()
	}
}

// RegulatoryConfig returns the current regulatory configuration.
func (c *Cluster) RegulatoryConfig() RegulatoryLocationType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.regulatoryConfig
}

// Errors for commissioning operations.
var (
	ErrFailSafeNotArmed   = errors.New("generalcommissioning: fail-safe not armed")
	ErrBusyWithOtherAdmin = errors.New("generalcommissioning: busy with other admin")
)
