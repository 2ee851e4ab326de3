// Package registry holds the cluster server instances that are visible to
// the interaction model. Integration code registers a server when an
// endpoint comes up and unregisters it when the endpoint goes away; reads
// and writes are routed by concrete cluster path.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/pion/logging"
)

// ShutdownType tells a cluster server why it is being shut down.
type ShutdownType uint8

const (
	// ClusterShutdown is a regular shutdown; persisted cluster data is kept.
	ClusterShutdown ShutdownType = iota

	// PermanentRemove means the cluster is going away for good and may
	// erase its persisted data.
	PermanentRemove
)

// String returns the name of the shutdown type.
func (t ShutdownType) String() string {
	switch t {
	case ClusterShutdown:
		return "ClusterShutdown"
	case PermanentRemove:
		return "PermanentRemove"
	default:
		return "Unknown"
	}
}

// ServerCluster is a cluster server instance serving one or more concrete
// cluster paths.
type ServerCluster interface {
	// Paths returns the concrete cluster paths served by this instance.
	Paths() []datamodel.ConcreteClusterPath

	// DataVersion returns the current cluster data version.
	DataVersion() datamodel.DataVersion

	// FeatureMap returns the supported features bitmap.
	FeatureMap() uint32

	// Startup is called once the cluster becomes reachable through a running registry.
	Startup(ctx context.Context) error

	// Shutdown is called when the cluster leaves a running registry.
	Shutdown(t ShutdownType)

	// ReadAttribute reads a single attribute.
	ReadAttribute(ctx context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error)

	// WriteAttribute writes a single attribute.
	WriteAttribute(ctx context.Context, path datamodel.ConcreteAttributePath, v datamodel.Value) error
}

// Registration links a cluster server into the registry.
type Registration struct {
	Cluster ServerCluster
}

// NewRegistration wraps a cluster server for registration.
func NewRegistration(c ServerCluster) *Registration {
	return &Registration{Cluster: c}
}

// Config holds registry dependencies.
type Config struct {
	// LoggerFactory creates the "registry" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Registry is a path-indexed set of cluster servers.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	registrations []*Registration // registration order
	byPath        map[datamodel.ConcreteClusterPath]ServerCluster
	ctx           context.Context // non-nil while started
	log           logging.LeveledLogger
}

// New creates an empty, stopped registry.
func New(cfg Config) *Registry {
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Registry{
		byPath: make(map[datamodel.ConcreteClusterPath]ServerCluster),
		log:    lf.NewLogger("registry"),
	}
}

// Register adds a cluster server. If the registry is running, the server's
// Startup is called first and a failure leaves it unregistered.
func (r *Registry) Register(reg *Registration) error {
	if reg == nil || reg.Cluster == nil {
		return ErrInvalidRegistration
	}
	paths := reg.Cluster.Paths()
	if len(paths) == 0 {
		return ErrInvalidRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.registrations {
		if existing == reg || existing.Cluster == reg.Cluster {
			return ErrAlreadyRegistered
		}
	}
	for _, p := range paths {
		if _, taken := r.byPath[p]; taken {
			return ErrPathInUse
		}
	}

	if r.ctx != nil {
		if err := reg.Cluster.Startup(r.ctx); err != nil {
			return err
		}
	}

	r.registrations = append(r.registrations, reg)
	for _, p := range paths {
		r.byPath[p] = reg.Cluster
	}
	r.log.Debugf("registered cluster server %v", paths)
	return nil
}

// Unregister removes a cluster server. If the registry is running, the
// server's Shutdown is called with t.
func (r *Registry) Unregister(c ServerCluster, t ShutdownType) error {
	if c == nil {
		return ErrInvalidRegistration
	}

	r.mu.Lock()
	idx := -1
	for i, reg := range r.registrations {
		if reg.Cluster == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return ErrNotRegistered
	}

	r.registrations = append(r.registrations[:idx], r.registrations[idx+1:]...)
	for _, p := range c.Paths() {
		if r.byPath[p] == c {
			delete(r.byPath, p)
		}
	}
	started := r.ctx != nil
	r.mu.Unlock()

	if started {
		c.Shutdown(t)
	}
	r.log.Debugf("unregistered cluster server %v (%s)", c.Paths(), t)
	return nil
}

// Start runs Startup on every registered server and on every server
// registered afterwards until Stop. Startup failures are joined.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.ctx != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.ctx = ctx
	clusters := r.clustersLocked()
	r.mu.Unlock()

	var errs []error
	for _, c := range clusters {
		if err := c.Startup(ctx); err != nil {
			r.log.Warnf("startup of %v failed: %v", c.Paths(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop shuts down all registered servers with ClusterShutdown. The servers
// stay registered.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.ctx == nil {
		r.mu.Unlock()
		return
	}
	r.ctx = nil
	clusters := r.clustersLocked()
	r.mu.Unlock()

	for _, c := range clusters {
		c.Shutdown(ClusterShutdown)
	}
}

// Running reports whether Start was called without a matching Stop.
func (r *Registry) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctx != nil
}

// Lookup returns the server for a cluster path, or nil if none is registered.
func (r *Registry) Lookup(path datamodel.ConcreteClusterPath) ServerCluster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byPath[path]
}

// Clusters returns all registered servers in registration order.
func (r *Registry) Clusters() []ServerCluster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clustersLocked()
}

func (r *Registry) clustersLocked() []ServerCluster {
	result := make([]ServerCluster, 0, len(r.registrations))
	for _, reg := range r.registrations {
		result = append(result, reg.Cluster)
	}
	return result
}

// ReadAttribute routes a read to the owning cluster server.
func (r *Registry) ReadAttribute(ctx context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	c := r.Lookup(path.ClusterPath())
	if c == nil {
		return datamodel.Value{}, ErrClusterNotRegistered
	}
	return c.ReadAttribute(ctx, path)
}

// WriteAttribute routes a write to the owning cluster server.
func (r *Registry) WriteAttribute(ctx context.Context, path datamodel.ConcreteAttributePath, v datamodel.Value) error {
	c := r.Lookup(path.ClusterPath())
	if c == nil {
		return ErrClusterNotRegistered
	}
	return c.WriteAttribute(ctx, path, v)
}
