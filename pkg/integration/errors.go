package integration

import (
	"errors"
	"fmt"

	"github.com/backkem/espmatter/pkg/datamodel"
)

// Package errors.
var (
	// ErrInvalidCapacity is returned for a slot table with no slots.
	ErrInvalidCapacity = errors.New("integration: slot capacity must be positive")

	// ErrSlotOutOfRange is returned when an endpoint resolves to an index
	// beyond the slot table.
	ErrSlotOutOfRange = errors.New("integration: slot index out of range")

	// ErrSlotOccupied is returned by Startup for an endpoint whose slot is
	// already constructed.
	ErrSlotOccupied = errors.New("integration: slot already occupied")

	// ErrNilInstance is returned when a factory returns neither an instance
	// nor an error.
	ErrNilInstance = errors.New("integration: factory returned nil instance")

	// ErrNoNetworkDrivers is returned when no network technology is enabled.
	ErrNoNetworkDrivers = errors.New("integration: no network commissioning driver configured")

	// ErrNoDriverForEndpoint is returned when an endpoint matches no
	// configured network endpoint id.
	ErrNoDriverForEndpoint = errors.New("integration: no network driver for endpoint")

	// ErrEndpointConflict is returned when two technologies share an endpoint id.
	ErrEndpointConflict = errors.New("integration: endpoint configured for more than one network technology")

	// ErrDriverAliased is returned when one driver instance backs two technologies.
	ErrDriverAliased = errors.New("integration: driver instance configured for more than one endpoint")

	// ErrMissingDriver is returned when an enabled technology has no driver.
	ErrMissingDriver = errors.New("integration: enabled network technology has no driver")

	// ErrWrongDriverKind is returned when a driver does not implement the
	// interface of its technology.
	ErrWrongDriverKind = errors.New("integration: driver does not match network technology")

	// ErrAttributeRead is returned when a startup attribute is unreadable or
	// has the wrong type.
	ErrAttributeRead = errors.New("integration: startup attribute read failed")

	// ErrInvalidBuildConfig is returned when BuildConfig validation fails.
	ErrInvalidBuildConfig = errors.New("integration: invalid build configuration")
)

// Stage names the lifecycle step that failed.
type Stage uint8

const (
	StageConstruct Stage = iota
	StageInit
	StageRegister
	StageUnregister
)

var stageNames = [...]string{"construct", "init", "register", "unregister"}

// String returns the stage name.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// LifecycleError reports a failed lifecycle step for one endpoint.
type LifecycleError struct {
	Cluster  datamodel.ClusterID
	Endpoint datamodel.EndpointID
	Stage    Stage
	Err      error
}

// Error implements error.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("integration: cluster 0x%04X on endpoint %d: %s: %v",
		uint32(e.Cluster), e.Endpoint, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *LifecycleError) Unwrap() error {
	return e.Err
}
