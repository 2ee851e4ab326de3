package datamodel

import "sync"

// Attribute is a typed attribute value stored on a cluster.
// The type is fixed at creation; later writes must carry the same tag.
type Attribute struct {
	mu        sync.RWMutex
	id        AttributeID
	flags     AttributeFlag
	valueType ValueType
	value     Value
	cluster   *Cluster
}

// ID returns the attribute ID.
func (a *Attribute) ID() AttributeID {
	return a.id
}

// Flags returns the attribute flags.
func (a *Attribute) Flags() AttributeFlag {
	return a.flags
}

// Type returns the value type fixed at creation.
func (a *Attribute) Type() ValueType {
	return a.valueType
}

// HasFlag reports whether all bits of f are set.
func (a *Attribute) HasFlag(f AttributeFlag) bool {
	return a.flags&f == f
}

// Path returns the concrete path of this attribute.
func (a *Attribute) Path() ConcreteAttributePath {
	return ConcreteAttributePath{
		Endpoint:  a.cluster.endpointID,
		Cluster:   a.cluster.id,
		Attribute: a.id,
	}
}

// Value returns the current value.
func (a *Attribute) Value() Value {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Set stores v. The cluster data version is bumped and the node listener is
// notified only when the stored value actually changes.
func (a *Attribute) Set(v Value) error {
	changed, err := a.store(v)
	if err != nil || !changed {
		return err
	}
	a.cluster.IncrementDataVersion()
	a.cluster.notify(a.Path())
	return nil
}

// restore stores v without notifying listeners. Used when loading persisted state.
func (a *Attribute) restore(v Value) error {
	_, err := a.store(v)
	return err
}

func (a *Attribute) store(v Value) (bool, error) {
	if v.Type != a.valueType {
		return false, ErrTypeMismatch
	}
	nullable := a.HasFlag(AttributeFlagNullable)
	if v.Null && !nullable {
		return false, ErrNotNullable
	}
	v.Nullable = nullable

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.value.Equal(v) {
		return false, nil
	}
	a.value = v
	return true, nil
}
