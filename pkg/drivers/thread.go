package drivers

import (
	"context"
	"time"

	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/pion/logging"
)

// Thread driver defaults.
const (
	DefaultThreadScanTimeout    = 10 * time.Second
	DefaultThreadConnectTimeout = 20 * time.Second
	DefaultThreadVersion        = 4 // Thread 1.3
)

// Operational dataset TLV types.
const (
	datasetTLVExtendedPanID = 0x02
	datasetTLVNetworkName   = 0x03
)

// ThreadBackend performs Thread radio operations.
type ThreadBackend interface {
	// Attach joins the network described by an operational dataset.
	Attach(ctx context.Context, dataset []byte) error

	// Scan returns discovered networks.
	Scan(ctx context.Context) ([]nc.ThreadScanResult, error)

	// SetEnabled starts or stops the Thread interface.
	SetEnabled(enabled bool) error

	// Events delivers link changes; nil if the backend has none.
	Events() <-chan LinkEvent
}

// ThreadConfig configures a ThreadNode.
type ThreadConfig struct {
	// Backend performs radio operations. Required.
	Backend ThreadBackend

	// Features is the SupportedThreadFeatures bitmap.
	Features uint16

	// Version is the Thread version. Default: 4
	Version uint16

	// ScanTimeout bounds a scan. Default: 10s
	ScanTimeout time.Duration

	// ConnectTimeout bounds an attach. Default: 20s
	ConnectTimeout time.Duration

	// LoggerFactory creates the "drivers" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

func (c *ThreadConfig) applyDefaults() {
	if c.Version == 0 {
		c.Version = DefaultThreadVersion
	}
	if c.ScanTimeout == 0 {
		c.ScanTimeout = DefaultThreadScanTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultThreadConnectTimeout
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}

// ThreadNode is a Thread driver holding a single operational dataset. The
// network ID is the dataset's extended PAN ID.
type ThreadNode struct {
	*wireless
	backend  ThreadBackend
	features uint16
	version  uint16
}

var _ nc.ThreadDriver = (*ThreadNode)(nil)

// NewThreadNode creates a Thread driver.
func NewThreadNode(cfg ThreadConfig) (*ThreadNode, error) {
	if cfg.Backend == nil {
		return nil, ErrNoBackend
	}
	cfg.applyDefaults()
	return &ThreadNode{
		wireless: newWireless(wirelessConfig{
			maxNetworks:    1,
			scanMaxTime:    cfg.ScanTimeout,
			connectMaxTime: cfg.ConnectTimeout,
			events:         cfg.Backend.Events(),
			setEnabled:     cfg.Backend.SetEnabled,
			log:            cfg.LoggerFactory.NewLogger("drivers"),
		}),
		backend:  cfg.Backend,
		features: cfg.Features,
		version:  cfg.Version,
	}, nil
}

// ExtendedPanID returns the extended PAN ID TLV of an operational dataset.
func ExtendedPanID(dataset []byte) ([]byte, error) {
	v, err := datasetTLV(dataset, datasetTLVExtendedPanID)
	if err != nil {
		return nil, err
	}
	if len(v) != 8 {
		return nil, ErrInvalidDataset
	}
	return v, nil
}

// NetworkName returns the network name TLV of an operational dataset.
func NetworkName(dataset []byte) (string, error) {
	v, err := datasetTLV(dataset, datasetTLVNetworkName)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// datasetTLV walks the type-length-value records of a dataset.
func datasetTLV(dataset []byte, typ byte) ([]byte, error) {
	for len(dataset) > 0 {
		if len(dataset) < 2 {
			return nil, ErrInvalidDataset
		}
		t, l := dataset[0], int(dataset[1])
		if len(dataset) < 2+l {
			return nil, ErrInvalidDataset
		}
		if t == typ {
			return append([]byte(nil), dataset[2:2+l]...), nil
		}
		dataset = dataset[2+l:]
	}
	return nil, ErrInvalidDataset
}

// Init implements networkcommissioning.Driver.
func (d *ThreadNode) Init(cb nc.StatusChangeCallback) error {
	if err := d.init(cb); err != nil {
		return err
	}
	d.log.Debugf("thread node initialized, version %d", d.version)
	return nil
}

// Shutdown implements networkcommissioning.Driver.
func (d *ThreadNode) Shutdown() { d.shutdown() }

// MaxNetworks implements networkcommissioning.Driver.
func (d *ThreadNode) MaxNetworks() uint8 { return d.maxNetworks() }

// Networks implements networkcommissioning.Driver.
func (d *ThreadNode) Networks() []nc.NetworkInfo { return d.networks() }

// Enabled implements networkcommissioning.Driver.
func (d *ThreadNode) Enabled() bool { return d.isEnabled() }

// SetEnabled implements networkcommissioning.Driver.
func (d *ThreadNode) SetEnabled(enabled bool) error { return d.setEnabled(enabled) }

// ScanMaxTimeSeconds implements networkcommissioning.WirelessDriver.
func (d *ThreadNode) ScanMaxTimeSeconds() uint8 { return d.scanMaxTimeSeconds() }

// ConnectMaxTimeSeconds implements networkcommissioning.WirelessDriver.
func (d *ThreadNode) ConnectMaxTimeSeconds() uint8 { return d.connectMaxTimeSeconds() }

// RemoveNetwork implements networkcommissioning.WirelessDriver.
func (d *ThreadNode) RemoveNetwork(networkID []byte) (uint8, error) {
	return d.remove(networkID)
}

// ReorderNetwork implements networkcommissioning.WirelessDriver.
func (d *ThreadNode) ReorderNetwork(networkID []byte, index uint8) error {
	return d.reorder(networkID, index)
}

// ConnectNetwork implements networkcommissioning.WirelessDriver.
func (d *ThreadNode) ConnectNetwork(networkID []byte, cb nc.ConnectCallback) error {
	return d.connect(networkID, cb, func(ctx context.Context, n network) error {
		return d.backend.Attach(ctx, n.credentials)
	})
}

// AddOrUpdateThreadNetwork implements networkcommissioning.ThreadDriver.
// A dataset for a different network replaces the stored one only after it
// has been removed.
func (d *ThreadNode) AddOrUpdateThreadNetwork(dataset []byte) (uint8, error) {
	id, err := ExtendedPanID(dataset)
	if err != nil {
		return 0, nc.NewStatusError(nc.StatusOutOfRange, "dataset has no extended PAN ID")
	}
	return d.addOrUpdate(id, dataset)
}

// ScanThreadNetworks implements networkcommissioning.ThreadDriver.
func (d *ThreadNode) ScanThreadNetworks(cb nc.ThreadScanCallback) error {
	return d.start(&d.scanning, d.cfg.scanMaxTime, func(ctx context.Context) func() {
		results, err := d.backend.Scan(ctx)
		if err != nil {
			d.log.Warnf("thread scan failed: %v", err)
		}
		return func() { cb(results, err) }
	})
}

// SupportedThreadFeatures implements networkcommissioning.ThreadDriver.
func (d *ThreadNode) SupportedThreadFeatures() uint16 { return d.features }

// ThreadVersion implements networkcommissioning.ThreadDriver.
func (d *ThreadNode) ThreadVersion() uint16 { return d.version }
