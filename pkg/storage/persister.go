package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/pion/logging"
)

// ErrNoStore is returned by NewPersister when Config.Store is nil.
var ErrNoStore = errors.New("storage: store is required")

// Config configures a Persister.
type Config struct {
	// Store holds the snapshot. Required.
	Store Store

	// LoggerFactory creates the "storage" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Persister mirrors non-volatile attributes and the endpoint ID watermark
// of a node into a Store. Install it with Node.SetAttributeChangeListener.
type Persister struct {
	store Store
	log   logging.LeveledLogger

	mu          sync.Mutex
	node        *datamodel.Node
	minUnused   *datamodel.EndpointID
	attributes  map[datamodel.ConcreteAttributePath]datamodel.Value
	saveFailure error
}

var (
	_ datamodel.AttributeChangeListener    = (*Persister)(nil)
	_ datamodel.EndpointAllocationListener = (*Persister)(nil)
)

// NewPersister loads the current snapshot from the store.
func NewPersister(cfg Config) (*Persister, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}

	p := &Persister{
		store:      cfg.Store,
		log:        lf.NewLogger("storage"),
		attributes: make(map[datamodel.ConcreteAttributePath]datamodel.Value),
	}

	state, err := cfg.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}
	if state != nil {
		if state.MinUnusedEndpointID != nil {
			id := *state.MinUnusedEndpointID
			p.minUnused = &id
		}
		for _, r := range state.Attributes {
			p.attributes[r.Path()] = r.Value
		}
	}
	return p, nil
}

// NodeConfig returns a node configuration seeded with the persisted
// endpoint ID watermark.
func (p *Persister) NodeConfig() datamodel.NodeConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	var cfg datamodel.NodeConfig
	if p.minUnused != nil {
		cfg.MinUnusedEndpointID = *p.minUnused
	}
	return cfg
}

// Attach installs the persister as the node's change listener.
func (p *Persister) Attach(node *datamodel.Node) {
	p.mu.Lock()
	p.node = node
	p.mu.Unlock()
	node.SetAttributeChangeListener(p)
}

// Restore loads persisted values into non-volatile attributes of node.
// Records for attributes that no longer exist or changed type are skipped.
// It returns the number of restored attributes.
func (p *Persister) Restore(node *datamodel.Node) int {
	p.mu.Lock()
	records := make(map[datamodel.ConcreteAttributePath]datamodel.Value, len(p.attributes))
	for path, v := range p.attributes {
		records[path] = v
	}
	p.mu.Unlock()

	restored := 0
	for path, v := range records {
		a := node.Attribute(path)
		if a == nil || !a.HasFlag(datamodel.AttributeFlagNonVolatile) {
			continue
		}
		if err := node.RestoreAttributeValue(path, v); err != nil {
			p.log.Warnf("skipping persisted %s: %v", path, err)
			continue
		}
		restored++
	}
	p.log.Debugf("restored %d attributes", restored)
	return restored
}

// OnAttributeChanged implements datamodel.AttributeChangeListener.
func (p *Persister) OnAttributeChanged(path datamodel.ConcreteAttributePath) {
	p.mu.Lock()
	node := p.node
	p.mu.Unlock()
	if node == nil {
		return
	}
	a := node.Attribute(path)
	if a == nil || !a.HasFlag(datamodel.AttributeFlagNonVolatile) {
		return
	}

	p.mu.Lock()
	p.attributes[path] = a.Value()
	p.mu.Unlock()
	p.save()
}

// OnEndpointIDAllocated implements datamodel.EndpointAllocationListener.
func (p *Persister) OnEndpointIDAllocated(next datamodel.EndpointID) {
	p.mu.Lock()
	p.minUnused = &next
	p.mu.Unlock()
	p.save()
}

// Err returns the last save failure, or nil.
func (p *Persister) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveFailure
}

func (p *Persister) snapshot() *State {
	state := &State{Version: StateVersion}
	if p.minUnused != nil {
		id := *p.minUnused
		state.MinUnusedEndpointID = &id
	}
	for path, v := range p.attributes {
		state.Attributes = append(state.Attributes, AttributeRecord{
			Endpoint:  path.Endpoint,
			Cluster:   path.Cluster,
			Attribute: path.Attribute,
			Value:     v,
		})
	}
	sort.Slice(state.Attributes, func(i, j int) bool {
		a, b := state.Attributes[i], state.Attributes[j]
		if a.Endpoint != b.Endpoint {
			return a.Endpoint < b.Endpoint
		}
		if a.Cluster != b.Cluster {
			return a.Cluster < b.Cluster
		}
		return a.Attribute < b.Attribute
	})
	return state
}

func (p *Persister) save() {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.store.Save(p.snapshot())
	p.saveFailure = err
	if err != nil {
		p.log.Errorf("failed to persist state: %v", err)
	}
}
