package clusters

import (
	"errors"
	"fmt"

	"github.com/backkem/espmatter/pkg/datamodel"
)

// Errors shared by cluster servers.
var (
	// ErrUnsupportedAttribute indicates the attribute is not supported by the cluster.
	ErrUnsupportedAttribute = errors.New("unsupported attribute")

	// ErrUnsupportedWrite indicates the attribute does not support writes.
	ErrUnsupportedWrite = errors.New("unsupported write")

	// ErrUnsupportedCommand indicates the command is not enabled by the feature map.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrConstraint indicates a value outside its allowed range.
	ErrConstraint = errors.New("constraint error")

	// ErrInvalidInState indicates the command cannot run in the current state.
	ErrInvalidInState = errors.New("invalid in state")

	// ErrWrongCluster indicates a path routed to the wrong cluster instance.
	ErrWrongCluster = errors.New("path does not address this cluster")
)

// Status is an interaction model status code.
type Status uint8

// Interaction model status codes produced by cluster servers.
const (
	StatusSuccess              Status = 0x00
	StatusFailure              Status = 0x01
	StatusInvalidCommand       Status = 0x85
	StatusUnsupportedAttribute Status = 0x86
	StatusConstraintError      Status = 0x87
	StatusUnsupportedWrite     Status = 0x88
	StatusNotFound             Status = 0x8B
	StatusInvalidInState       Status = 0xCB
	StatusUnsupportedCommand   Status = 0x81
)

var statusNames = map[Status]string{
	StatusSuccess:              "Success",
	StatusFailure:              "Failure",
	StatusInvalidCommand:       "InvalidCommand",
	StatusUnsupportedAttribute: "UnsupportedAttribute",
	StatusConstraintError:      "ConstraintError",
	StatusUnsupportedWrite:     "UnsupportedWrite",
	StatusNotFound:             "NotFound",
	StatusInvalidInState:       "InvalidInState",
	StatusUnsupportedCommand:   "UnsupportedCommand",
}

// String returns the status name.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(0x%02X)", uint8(s))
}

// StatusOf maps a cluster server error to the status an interaction model
// dispatcher would report for it.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrUnsupportedAttribute), errors.Is(err, datamodel.ErrAttributeNotFound):
		return StatusUnsupportedAttribute
	case errors.Is(err, ErrUnsupportedWrite):
		return StatusUnsupportedWrite
	case errors.Is(err, ErrUnsupportedCommand):
		return StatusUnsupportedCommand
	case errors.Is(err, ErrConstraint):
		return StatusConstraintError
	case errors.Is(err, ErrInvalidInState):
		return StatusInvalidInState
	case errors.Is(err, datamodel.ErrTypeMismatch), errors.Is(err, datamodel.ErrNotNullable):
		return StatusConstraintError
	case errors.Is(err, ErrWrongCluster), errors.Is(err, datamodel.ErrClusterNotFound):
		return StatusNotFound
	default:
		return StatusFailure
	}
}
