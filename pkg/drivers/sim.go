package drivers

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"

	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
)

// IEEE 802.11 reason code for a failed 4-way handshake.
const reasonHandshakeTimeout int32 = 15

// SimAccessPoint is an access point visible to a SimWiFi backend.
type SimAccessPoint struct {
	SSID       string
	Passphrase string // empty for open networks
	Channel    uint16
	Band       nc.WiFiBand
	RSSI       int8
}

// SimWiFi is an in-memory Wi-Fi backend.
type SimWiFi struct {
	// Delay is applied to connects and scans.
	Delay time.Duration

	mu      sync.Mutex
	aps     []SimAccessPoint
	enabled bool
	events  chan LinkEvent
}

var _ WiFiBackend = (*SimWiFi)(nil)

// NewSimWiFi creates a simulated Wi-Fi backend with the given access points.
func NewSimWiFi(aps ...SimAccessPoint) *SimWiFi {
	return &SimWiFi{aps: aps, enabled: true, events: make(chan LinkEvent, 4)}
}

// AddAccessPoint makes an access point visible.
func (s *SimWiFi) AddAccessPoint(ap SimAccessPoint) {
	s.mu.Lock()
	s.aps = append(s.aps, ap)
	s.mu.Unlock()
}

// DropLink reports a link loss with the given reason.
func (s *SimWiFi) DropLink(reason int32) {
	s.events <- LinkEvent{Up: false, Reason: reason}
}

func (s *SimWiFi) wait(ctx context.Context) error {
	if s.Delay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Connect implements WiFiBackend.
func (s *SimWiFi) Connect(ctx context.Context, ssid, psk []byte) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return ErrLinkDown
	}
	for _, ap := range s.aps {
		if ap.SSID != string(ssid) {
			continue
		}
		var want []byte
		if ap.Passphrase != "" {
			want = DerivePSK([]byte(ap.Passphrase), ssid)
		}
		if !bytes.Equal(want, psk) {
			return &ConnectError{Status: nc.StatusAuthFailure, Reason: reasonHandshakeTimeout}
		}
		return nil
	}
	return nc.NewStatusError(nc.StatusNetworkNotFound, "")
}

// Scan implements WiFiBackend.
func (s *SimWiFi) Scan(ctx context.Context, ssid []byte) ([]nc.WiFiScanResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []nc.WiFiScanResult
	for i, ap := range s.aps {
		if len(ssid) > 0 && ap.SSID != string(ssid) {
			continue
		}
		security := nc.WiFiSecurityUnencrypted
		if ap.Passphrase != "" {
			security = nc.WiFiSecurityWPA2
		}
		out = append(out, nc.WiFiScanResult{
			Security: security,
			SSID:     []byte(ap.SSID),
			BSSID:    [6]byte{0x02, 0, 0, 0, 0, byte(i + 1)},
			Channel:  ap.Channel,
			Band:     ap.Band,
			RSSI:     ap.RSSI,
		})
	}
	return out, nil
}

// SetEnabled implements WiFiBackend.
func (s *SimWiFi) SetEnabled(enabled bool) error {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	return nil
}

// Bands implements WiFiBackend.
func (s *SimWiFi) Bands() []nc.WiFiBand {
	return []nc.WiFiBand{nc.WiFiBand2G4, nc.WiFiBand5G}
}

// Events implements WiFiBackend.
func (s *SimWiFi) Events() <-chan LinkEvent { return s.events }

// SimThread is an in-memory Thread backend. Attach succeeds for datasets
// whose extended PAN ID belongs to a known network.
type SimThread struct {
	mu       sync.Mutex
	networks []nc.ThreadScanResult
	enabled  bool
	events   chan LinkEvent
}

var _ ThreadBackend = (*SimThread)(nil)

// NewSimThread creates a simulated Thread backend.
func NewSimThread(networks ...nc.ThreadScanResult) *SimThread {
	return &SimThread{networks: networks, enabled: true, events: make(chan LinkEvent, 4)}
}

// DropLink reports a detach with the given reason.
func (s *SimThread) DropLink(reason int32) {
	s.events <- LinkEvent{Up: false, Reason: reason}
}

// Attach implements ThreadBackend.
func (s *SimThread) Attach(ctx context.Context, dataset []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := ExtendedPanID(dataset)
	if err != nil {
		return nc.NewStatusError(nc.StatusOutOfRange, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return ErrLinkDown
	}
	for _, n := range s.networks {
		if extendedPanIDBytes(n.ExtendedPanID) == string(id) {
			return nil
		}
	}
	return nc.NewStatusError(nc.StatusNetworkNotFound, "")
}

func extendedPanIDBytes(v uint64) string {
	return string(binary.BigEndian.AppendUint64(nil, v))
}

// Scan implements ThreadBackend.
func (s *SimThread) Scan(ctx context.Context) ([]nc.ThreadScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]nc.ThreadScanResult(nil), s.networks...), nil
}

// SetEnabled implements ThreadBackend.
func (s *SimThread) SetEnabled(enabled bool) error {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	return nil
}

// Events implements ThreadBackend.
func (s *SimThread) Events() <-chan LinkEvent { return s.events }

// SimEthernet is an in-memory Ethernet backend.
type SimEthernet struct {
	mu     sync.Mutex
	up     bool
	events chan LinkEvent
}

var _ EthernetBackend = (*SimEthernet)(nil)

// NewSimEthernet creates a simulated Ethernet backend with the link up.
func NewSimEthernet() *SimEthernet {
	return &SimEthernet{up: true, events: make(chan LinkEvent, 4)}
}

// SetLink changes the link state and reports it.
func (s *SimEthernet) SetLink(up bool) {
	s.mu.Lock()
	s.up = up
	s.mu.Unlock()
	s.events <- LinkEvent{Up: up}
}

// LinkUp implements EthernetBackend.
func (s *SimEthernet) LinkUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.up
}

// SetEnabled implements EthernetBackend.
func (s *SimEthernet) SetEnabled(bool) error { return nil }

// Events implements EthernetBackend.
func (s *SimEthernet) Events() <-chan LinkEvent { return s.events }
