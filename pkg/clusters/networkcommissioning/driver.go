package networkcommissioning

import (
	"errors"
	"fmt"
)

// NetworkingStatus is the result of a network commissioning operation.
type NetworkingStatus uint8

const (
	StatusSuccess                NetworkingStatus = 0
	StatusOutOfRange             NetworkingStatus = 1
	StatusBoundsExceeded         NetworkingStatus = 2
	StatusNetworkIDNotFound      NetworkingStatus = 3
	StatusDuplicateNetworkID     NetworkingStatus = 4
	StatusNetworkNotFound        NetworkingStatus = 5
	StatusRegulatoryError        NetworkingStatus = 6
	StatusAuthFailure            NetworkingStatus = 7
	StatusUnsupportedSecurity    NetworkingStatus = 8
	StatusOtherConnectionFailure NetworkingStatus = 9
	StatusIPV6Failed             NetworkingStatus = 10
	StatusIPBindFailed           NetworkingStatus = 11
	StatusUnknownError           NetworkingStatus = 12
)

var networkingStatusNames = [...]string{
	"Success",
	"OutOfRange",
	"BoundsExceeded",
	"NetworkIDNotFound",
	"DuplicateNetworkID",
	"NetworkNotFound",
	"RegulatoryError",
	"AuthFailure",
	"UnsupportedSecurity",
	"OtherConnectionFailure",
	"IPV6Failed",
	"IPBindFailed",
	"UnknownError",
}

// String returns the status name.
func (s NetworkingStatus) String() string {
	if int(s) < len(networkingStatusNames) {
		return networkingStatusNames[s]
	}
	return fmt.Sprintf("NetworkingStatus(%d)", uint8(s))
}

// StatusError is a driver failure carrying a networking status.
type StatusError struct {
	Status    NetworkingStatus
	DebugText string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.DebugText == "" {
		return "networkcommissioning: " + e.Status.String()
	}
	return fmt.Sprintf("networkcommissioning: %s: %s", e.Status, e.DebugText)
}

// NewStatusError creates a StatusError.
func NewStatusError(status NetworkingStatus, debugText string) error {
	return &StatusError{Status: status, DebugText: debugText}
}

// StatusFromError extracts the networking status and debug text from a
// driver error. A nil error is StatusSuccess; errors without a status are
// StatusUnknownError.
func StatusFromError(err error) (NetworkingStatus, string) {
	if err == nil {
		return StatusSuccess, ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, se.DebugText
	}
	return StatusUnknownError, err.Error()
}

// NetworkInfo describes a configured network.
type NetworkInfo struct {
	NetworkID []byte
	Connected bool
}

// StatusChangeCallback is invoked by a driver when its networking status
// changes outside of a command, for example on link loss. connectErr is
// the technology-specific error value, or nil.
type StatusChangeCallback func(status NetworkingStatus, networkID []byte, connectErr *int32)

// ConnectResult is the outcome of an asynchronous connect.
type ConnectResult struct {
	Status     NetworkingStatus
	DebugText  string
	ErrorValue *int32
}

// ConnectCallback receives the outcome of ConnectNetwork.
type ConnectCallback func(ConnectResult)

// Driver is the interface shared by all network commissioning drivers.
type Driver interface {
	// Init prepares the driver. cb may be called from any goroutine.
	Init(cb StatusChangeCallback) error

	// Shutdown releases driver resources and stops callbacks.
	Shutdown()

	// MaxNetworks returns the number of networks the driver can store.
	MaxNetworks() uint8

	// Networks returns the configured networks.
	Networks() []NetworkInfo

	// Enabled reports whether the network interface is enabled.
	Enabled() bool

	// SetEnabled enables or disables the network interface.
	SetEnabled(enabled bool) error
}

// WirelessDriver is a driver managing a list of wireless networks.
type WirelessDriver interface {
	Driver

	// ScanMaxTimeSeconds returns the maximum duration of a scan.
	ScanMaxTimeSeconds() uint8

	// ConnectMaxTimeSeconds returns the maximum duration of a connect.
	ConnectMaxTimeSeconds() uint8

	// RemoveNetwork removes a network and returns its former index.
	RemoveNetwork(networkID []byte) (uint8, error)

	// ReorderNetwork moves a network to index.
	ReorderNetwork(networkID []byte, index uint8) error

	// ConnectNetwork starts connecting; cb is called exactly once unless
	// an error is returned.
	ConnectNetwork(networkID []byte, cb ConnectCallback) error
}

// WiFiSecurity is a Wi-Fi security bitmap.
type WiFiSecurity uint8

const (
	WiFiSecurityUnencrypted WiFiSecurity = 1 << 0
	WiFiSecurityWEP         WiFiSecurity = 1 << 1
	WiFiSecurityWPAPersonal WiFiSecurity = 1 << 2
	WiFiSecurityWPA2        WiFiSecurity = 1 << 3
	WiFiSecurityWPA3        WiFiSecurity = 1 << 4
)

// WiFiBand is a Wi-Fi frequency band.
type WiFiBand uint8

const (
	WiFiBand2G4  WiFiBand = 0
	WiFiBand3G65 WiFiBand = 1
	WiFiBand5G   WiFiBand = 2
	WiFiBand6G   WiFiBand = 3
	WiFiBand60G  WiFiBand = 4
)

// WiFiScanResult is a single Wi-Fi scan result.
type WiFiScanResult struct {
	Security WiFiSecurity
	SSID     []byte
	BSSID    [6]byte
	Channel  uint16
	Band     WiFiBand
	RSSI     int8
}

// WiFiScanCallback receives the outcome of a Wi-Fi scan.
type WiFiScanCallback func(results []WiFiScanResult, err error)

// WiFiDriver is a Wi-Fi station driver.
type WiFiDriver interface {
	WirelessDriver

	// AddOrUpdateWiFiNetwork stores credentials for ssid and returns the
	// network index.
	AddOrUpdateWiFiNetwork(ssid, credentials []byte) (uint8, error)

	// ScanWiFiNetworks scans for ssid, or all networks if ssid is empty.
	ScanWiFiNetworks(ssid []byte, cb WiFiScanCallback) error

	// SupportedWiFiBands returns the bands supported by the radio.
	SupportedWiFiBands() []WiFiBand
}

// ThreadScanResult is a single Thread scan result.
type ThreadScanResult struct {
	PanID           uint16
	ExtendedPanID   uint64
	NetworkName     string
	Channel         uint16
	Version         uint8
	ExtendedAddress [8]byte
	RSSI            int8
	LQI             uint8
}

// ThreadScanCallback receives the outcome of a Thread scan.
type ThreadScanCallback func(results []ThreadScanResult, err error)

// ThreadDriver is a Thread driver.
type ThreadDriver interface {
	WirelessDriver

	// AddOrUpdateThreadNetwork stores an operational dataset and returns
	// the network index.
	AddOrUpdateThreadNetwork(operationalDataset []byte) (uint8, error)

	// ScanThreadNetworks scans for Thread networks.
	ScanThreadNetworks(cb ThreadScanCallback) error

	// SupportedThreadFeatures returns the Thread capabilities bitmap.
	SupportedThreadFeatures() uint16

	// ThreadVersion returns the Thread protocol version.
	ThreadVersion() uint16
}

// EthernetDriver is an Ethernet driver; it has no configurable networks.
type EthernetDriver interface {
	Driver
}
