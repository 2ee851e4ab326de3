// Package storage persists the parts of the data model that must survive a
// restart: non-volatile attribute values and the endpoint ID watermark.
package storage

import (
	"errors"

	"github.com/backkem/espmatter/pkg/datamodel"
)

// StateVersion is the current version of the persisted state format.
const StateVersion = 1

// ErrUnsupportedVersion is returned when loading state written by a newer format.
var ErrUnsupportedVersion = errors.New("storage: unsupported state version")

// State is the persisted snapshot.
type State struct {
	// Version is the state format version.
	Version int `cbor:"1,keyasint"`

	// MinUnusedEndpointID is the endpoint ID allocator watermark, nil when
	// no endpoint has been created yet.
	MinUnusedEndpointID *datamodel.EndpointID `cbor:"2,keyasint,omitempty"`

	// Attributes holds the non-volatile attribute values.
	Attributes []AttributeRecord `cbor:"3,keyasint,omitempty"`
}

// AttributeRecord is a persisted attribute value.
type AttributeRecord struct {
	Endpoint  datamodel.EndpointID  `cbor:"1,keyasint"`
	Cluster   datamodel.ClusterID   `cbor:"2,keyasint"`
	Attribute datamodel.AttributeID `cbor:"3,keyasint"`
	Value     datamodel.Value       `cbor:"4,keyasint"`
}

// Path returns the attribute path of the record.
func (r AttributeRecord) Path() datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: r.Endpoint, Cluster: r.Cluster, Attribute: r.Attribute}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return &State{Version: StateVersion}
	}
	clone := &State{Version: s.Version}
	if s.MinUnusedEndpointID != nil {
		id := *s.MinUnusedEndpointID
		clone.MinUnusedEndpointID = &id
	}
	clone.Attributes = make([]AttributeRecord, len(s.Attributes))
	for i, r := range s.Attributes {
		if r.Value.Bytes != nil {
			r.Value.Bytes = append([]byte(nil), r.Value.Bytes...)
		}
		clone.Attributes[i] = r
	}
	return clone
}

// Store abstracts persistent storage of the snapshot.
// Implementations can use files, databases, or in-memory storage.
//
// All methods must be safe for concurrent use.
type Store interface {
	// Load returns the stored state, or nil if nothing was saved yet.
	Load() (*State, error)

	// Save replaces the stored state.
	Save(state *State) error
}
