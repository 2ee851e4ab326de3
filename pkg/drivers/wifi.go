package drivers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/pion/logging"
	"golang.org/x/crypto/pbkdf2"
)

// WPA2 pre-shared key derivation parameters (IEEE 802.11i).
const (
	PSKIterations = 4096
	PSKLength     = 32
)

// Wi-Fi driver defaults.
const (
	DefaultWiFiMaxNetworks    = 1
	DefaultWiFiScanTimeout    = 10 * time.Second
	DefaultWiFiConnectTimeout = 20 * time.Second
)

// WiFiBackend performs Wi-Fi station radio operations.
type WiFiBackend interface {
	// Connect associates with ssid. psk is nil for open networks.
	Connect(ctx context.Context, ssid, psk []byte) error

	// Scan returns visible networks, filtered to ssid when non-empty.
	Scan(ctx context.Context, ssid []byte) ([]nc.WiFiScanResult, error)

	// SetEnabled powers the station interface up or down.
	SetEnabled(enabled bool) error

	// Bands returns the supported frequency bands.
	Bands() []nc.WiFiBand

	// Events delivers link changes; nil if the backend has none.
	Events() <-chan LinkEvent
}

// WiFiConfig configures a WiFiStation.
type WiFiConfig struct {
	// Backend performs radio operations. Required.
	Backend WiFiBackend

	// MaxNetworks bounds the network list. Default: 1
	MaxNetworks uint8

	// ScanTimeout bounds a scan. Default: 10s
	ScanTimeout time.Duration

	// ConnectTimeout bounds a connect. Default: 20s
	ConnectTimeout time.Duration

	// LoggerFactory creates the "drivers" logger. Optional.
	LoggerFactory logging.LoggerFactory
}

func (c *WiFiConfig) applyDefaults() {
	if c.MaxNetworks == 0 {
		c.MaxNetworks = DefaultWiFiMaxNetworks
	}
	if c.ScanTimeout == 0 {
		c.ScanTimeout = DefaultWiFiScanTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultWiFiConnectTimeout
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}

// WiFiStation is a Wi-Fi station driver. Credentials are stored as the
// derived 32-byte PSK, never as the passphrase.
type WiFiStation struct {
	*wireless
	backend WiFiBackend
}

var _ nc.WiFiDriver = (*WiFiStation)(nil)

// NewWiFiStation creates a Wi-Fi station driver.
func NewWiFiStation(cfg WiFiConfig) (*WiFiStation, error) {
	if cfg.Backend == nil {
		return nil, ErrNoBackend
	}
	cfg.applyDefaults()
	return &WiFiStation{
		wireless: newWireless(wirelessConfig{
			maxNetworks:    cfg.MaxNetworks,
			scanMaxTime:    cfg.ScanTimeout,
			connectMaxTime: cfg.ConnectTimeout,
			events:         cfg.Backend.Events(),
			setEnabled:     cfg.Backend.SetEnabled,
			log:            cfg.LoggerFactory.NewLogger("drivers"),
		}),
		backend: cfg.Backend,
	}, nil
}

// DerivePSK derives the WPA2 pre-shared key for a passphrase and SSID.
func DerivePSK(passphrase, ssid []byte) []byte {
	return pbkdf2.Key(passphrase, ssid, PSKIterations, PSKLength, sha1.New)
}

// pskFromCredentials accepts an empty credential (open network), a
// 64-character hex PSK or an 8..63 byte passphrase.
func pskFromCredentials(ssid, credentials []byte) ([]byte, error) {
	switch n := len(credentials); {
	case n == 0:
		return nil, nil
	case n == 2*PSKLength:
		psk := make([]byte, PSKLength)
		if _, err := hex.Decode(psk, credentials); err != nil {
			return nil, nc.NewStatusError(nc.StatusOutOfRange, "invalid hex PSK")
		}
		return psk, nil
	case n >= 8 && n <= 63:
		return DerivePSK(credentials, ssid), nil
	default:
		return nil, nc.NewStatusError(nc.StatusOutOfRange, "invalid credentials length")
	}
}

// Init implements networkcommissioning.Driver.
func (d *WiFiStation) Init(cb nc.StatusChangeCallback) error {
	if err := d.init(cb); err != nil {
		return err
	}
	d.log.Debug("wifi station initialized")
	return nil
}

// Shutdown implements networkcommissioning.Driver.
func (d *WiFiStation) Shutdown() { d.shutdown() }

// MaxNetworks implements networkcommissioning.Driver.
func (d *WiFiStation) MaxNetworks() uint8 { return d.maxNetworks() }

// Networks implements networkcommissioning.Driver.
func (d *WiFiStation) Networks() []nc.NetworkInfo { return d.networks() }

// Enabled implements networkcommissioning.Driver.
func (d *WiFiStation) Enabled() bool { return d.isEnabled() }

// SetEnabled implements networkcommissioning.Driver.
func (d *WiFiStation) SetEnabled(enabled bool) error { return d.setEnabled(enabled) }

// ScanMaxTimeSeconds implements networkcommissioning.WirelessDriver.
func (d *WiFiStation) ScanMaxTimeSeconds() uint8 { return d.scanMaxTimeSeconds() }

// ConnectMaxTimeSeconds implements networkcommissioning.WirelessDriver.
func (d *WiFiStation) ConnectMaxTimeSeconds() uint8 { return d.connectMaxTimeSeconds() }

// RemoveNetwork implements networkcommissioning.WirelessDriver.
func (d *WiFiStation) RemoveNetwork(networkID []byte) (uint8, error) {
	return d.remove(networkID)
}

// ReorderNetwork implements networkcommissioning.WirelessDriver.
func (d *WiFiStation) ReorderNetwork(networkID []byte, index uint8) error {
	return d.reorder(networkID, index)
}

// ConnectNetwork implements networkcommissioning.WirelessDriver.
func (d *WiFiStation) ConnectNetwork(networkID []byte, cb nc.ConnectCallback) error {
	return d.connect(networkID, cb, func(ctx context.Context, n network) error {
		return d.backend.Connect(ctx, n.id, n.credentials)
	})
}

// AddOrUpdateWiFiNetwork implements networkcommissioning.WiFiDriver.
func (d *WiFiStation) AddOrUpdateWiFiNetwork(ssid, credentials []byte) (uint8, error) {
	if len(ssid) == 0 || len(ssid) > nc.MaxSSIDLength {
		return 0, nc.NewStatusError(nc.StatusOutOfRange, "invalid SSID")
	}
	psk, err := pskFromCredentials(ssid, credentials)
	if err != nil {
		return 0, err
	}
	return d.addOrUpdate(ssid, psk)
}

// ScanWiFiNetworks implements networkcommissioning.WiFiDriver.
func (d *WiFiStation) ScanWiFiNetworks(ssid []byte, cb nc.WiFiScanCallback) error {
	filter := append([]byte(nil), ssid...)
	return d.start(&d.scanning, d.cfg.scanMaxTime, func(ctx context.Context) func() {
		results, err := d.backend.Scan(ctx, filter)
		if err != nil {
			d.log.Warnf("wifi scan failed: %v", err)
		} else if len(filter) > 0 && len(results) == 0 {
			err = nc.NewStatusError(nc.StatusNetworkNotFound, "")
		}
		return func() { cb(results, err) }
	})
}

// SupportedWiFiBands implements networkcommissioning.WiFiDriver.
func (d *WiFiStation) SupportedWiFiBands() []nc.WiFiBand {
	return d.backend.Bands()
}
