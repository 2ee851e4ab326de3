package drivers

import (
	"context"
	"sync"

	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/pion/logging"
)

// EthernetBackend controls a wired interface.
type EthernetBackend interface {
	// LinkUp reports whether a cable is connected.
	LinkUp() bool

	// SetEnabled brings the interface up or down.
	SetEnabled(enabled bool) error

	// Events delivers link changes; nil if the backend has none.
	Events() <-chan LinkEvent
}

// EthernetConfig configures an Ethernet driver.
type EthernetConfig struct {
	// Backend controls the interface. Required.
	Backend EthernetBackend

	// InterfaceName is reported as the single network ID. Default: "eth0"
	InterfaceName string

	// LoggerFactory creates the "drivers" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Ethernet is an Ethernet driver. It reports one network, the interface
// itself, connected while the link is up.
type Ethernet struct {
	backend EthernetBackend
	name    []byte
	log     logging.LeveledLogger

	mu       sync.Mutex
	enabled  bool
	onStatus nc.StatusChangeCallback
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

var _ nc.EthernetDriver = (*Ethernet)(nil)

// NewEthernet creates an Ethernet driver.
func NewEthernet(cfg EthernetConfig) (*Ethernet, error) {
	if cfg.Backend == nil {
		return nil, ErrNoBackend
	}
	if cfg.InterfaceName == "" {
		cfg.InterfaceName = "eth0"
	}
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &Ethernet{
		backend: cfg.Backend,
		name:    []byte(cfg.InterfaceName),
		log:     cfg.LoggerFactory.NewLogger("drivers"),
		enabled: true,
	}, nil
}

// Init implements networkcommissioning.Driver.
func (d *Ethernet) Init(cb nc.StatusChangeCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return ErrAlreadyInitialized
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.onStatus = cb

	if events := d.backend.Events(); events != nil {
		d.wg.Add(1)
		go d.watch(ctx, events)
	}
	d.log.Debugf("ethernet %s initialized", d.name)
	return nil
}

func (d *Ethernet) watch(ctx context.Context, events <-chan LinkEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.mu.Lock()
			cb := d.onStatus
			d.mu.Unlock()
			if cb == nil {
				continue
			}
			if ev.Up {
				cb(nc.StatusSuccess, d.name, nil)
			} else {
				reason := ev.Reason
				cb(nc.StatusOtherConnectionFailure, d.name, &reason)
			}
		}
	}
}

// Shutdown implements networkcommissioning.Driver.
func (d *Ethernet) Shutdown() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.onStatus = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// MaxNetworks implements networkcommissioning.Driver.
func (d *Ethernet) MaxNetworks() uint8 { return 1 }

// Networks implements networkcommissioning.Driver.
func (d *Ethernet) Networks() []nc.NetworkInfo {
	return []nc.NetworkInfo{{
		NetworkID: append([]byte(nil), d.name...),
		Connected: d.Enabled() && d.backend.LinkUp(),
	}}
}

// Enabled implements networkcommissioning.Driver.
func (d *Ethernet) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// SetEnabled implements networkcommissioning.Driver.
func (d *Ethernet) SetEnabled(enabled bool) error {
	if err := d.backend.SetEnabled(enabled); err != nil {
		return err
	}
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
	return nil
}
