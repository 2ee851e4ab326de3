package integration

import (
	"fmt"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/registry"
)

// Instance is a cluster server instance managed by a Coordinator.
type Instance interface {
	registry.ServerCluster

	// Init prepares the instance after construction.
	Init() error

	// Deinit releases what Init acquired.
	Deinit()
}

// SlotState is the lifecycle state of a slot.
type SlotState uint8

const (
	SlotEmpty SlotState = iota
	SlotConstructed
	SlotRegistered
	SlotUnregistered
)

var slotStateNames = [...]string{"Empty", "Constructed", "Registered", "Unregistered"}

// String returns the state name.
func (s SlotState) String() string {
	if int(s) < len(slotStateNames) {
		return slotStateNames[s]
	}
	return fmt.Sprintf("SlotState(%d)", uint8(s))
}

// Slot is one entry of a SlotTable.
type Slot struct {
	State    SlotState
	Endpoint datamodel.EndpointID
	Instance Instance
}

// Constructed reports whether the slot holds an instance.
func (s Slot) Constructed() bool {
	return s.State != SlotEmpty && s.Instance != nil
}

// SlotTable is a fixed-capacity table of cluster instance slots indexed by
// ClusterEndpointIndex. It is not safe for concurrent use; the Coordinator
// serializes access.
type SlotTable struct {
	slots []Slot
}

// NewSlotTable creates a table with capacity empty slots.
func NewSlotTable(capacity int) (*SlotTable, error) {
	if capacity <= 0 || capacity >= int(InvalidIndex) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &SlotTable{slots: make([]Slot, capacity)}, nil
}

// Capacity returns the number of slots.
func (t *SlotTable) Capacity() int {
	return len(t.slots)
}

// Get returns the slot at index.
func (t *SlotTable) Get(index uint16) (Slot, bool) {
	if int(index) >= len(t.slots) {
		return Slot{}, false
	}
	return t.slots[index], true
}

func (t *SlotTable) ptr(index uint16) *Slot {
	if int(index) >= len(t.slots) {
		return nil
	}
	return &t.slots[index]
}

// Find returns the index of the constructed slot serving endpoint.
func (t *SlotTable) Find(endpoint datamodel.EndpointID) (uint16, bool) {
	for i, s := range t.slots {
		if s.Constructed() && s.Endpoint == endpoint {
			return uint16(i), true
		}
	}
	return InvalidIndex, false
}

// FirstEmpty returns the index of the lowest empty slot.
func (t *SlotTable) FirstEmpty() (uint16, bool) {
	for i, s := range t.slots {
		if !s.Constructed() {
			return uint16(i), true
		}
	}
	return InvalidIndex, false
}

// Live returns the number of constructed slots.
func (t *SlotTable) Live() int {
	n := 0
	for _, s := range t.slots {
		if s.Constructed() {
			n++
		}
	}
	return n
}
