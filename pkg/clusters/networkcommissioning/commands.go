package networkcommissioning

import (
	"context"
	"encoding/hex"

	"github.com/backkem/espmatter/pkg/clusters"
)

// Field bounds.
const (
	MaxSSIDLength         = 32
	MinPassphraseLength   = 8
	MaxPassphraseLength   = 63
	PSKHexLength          = 64
	MaxNetworkIDLength    = 32
	MaxOperationalDataset = 254
	MinOperationalDataset = 1
)

// ScanNetworksRequest is the ScanNetworks command request.
type ScanNetworksRequest struct {
	// SSID restricts a Wi-Fi scan to one network. Ignored for Thread.
	SSID       []byte
	Breadcrumb *uint64
}

// ScanNetworksResponse is the ScanNetworksResponse command.
type ScanNetworksResponse struct {
	NetworkingStatus NetworkingStatus
	DebugText        string
	WiFiResults      []WiFiScanResult
	ThreadResults    []ThreadScanResult
}

// AddOrUpdateWiFiNetworkRequest is the AddOrUpdateWiFiNetwork command request.
type AddOrUpdateWiFiNetworkRequest struct {
	SSID        []byte
	Credentials []byte
	Breadcrumb  *uint64
}

// AddOrUpdateThreadNetworkRequest is the AddOrUpdateThreadNetwork command request.
type AddOrUpdateThreadNetworkRequest struct {
	OperationalDataset []byte
	Breadcrumb         *uint64
}

// RemoveNetworkRequest is the RemoveNetwork command request.
type RemoveNetworkRequest struct {
	NetworkID  []byte
	Breadcrumb *uint64
}

// ReorderNetworkRequest is the ReorderNetwork command request.
type ReorderNetworkRequest struct {
	NetworkID    []byte
	NetworkIndex uint8
	Breadcrumb   *uint64
}

// NetworkConfigResponse is the NetworkConfigResponse command.
type NetworkConfigResponse struct {
	NetworkingStatus NetworkingStatus
	DebugText        string
	NetworkIndex     *uint8
}

// ConnectNetworkRequest is the ConnectNetwork command request.
type ConnectNetworkRequest struct {
	NetworkID  []byte
	Breadcrumb *uint64
}

// ConnectNetworkResponse is the ConnectNetworkResponse command.
type ConnectNetworkResponse struct {
	NetworkingStatus NetworkingStatus
	DebugText        string
	ErrorValue       *int32
}

func (c *Cluster) wireless() (WirelessDriver, error) {
	w, ok := c.driver.(WirelessDriver)
	if !ok {
		return nil, clusters.ErrUnsupportedCommand
	}
	return w, nil
}

// finish records the command status and forwards the breadcrumb on success.
func (c *Cluster) finish(status NetworkingStatus, networkID []byte, connectErr *int32, breadcrumb *uint64) {
	c.recordStatus(status, networkID, connectErr)
	if status == StatusSuccess && breadcrumb != nil && c.breadcrumb != nil {
		c.breadcrumb.SetBreadcrumb(*breadcrumb)
	}
}

// ScanNetworks scans for networks and waits for the driver's result or
// for ctx to end. Ethernet instances reject the command.
func (c *Cluster) ScanNetworks(ctx context.Context, req ScanNetworksRequest) (ScanNetworksResponse, error) {
	if _, err := c.wireless(); err != nil {
		return ScanNetworksResponse{}, err
	}
	if len(req.SSID) > MaxSSIDLength {
		return ScanNetworksResponse{}, clusters.ErrConstraint
	}

	type outcome struct {
		wifi   []WiFiScanResult
		thread []ThreadScanResult
		err    error
	}
	done := make(chan outcome, 1)

	var err error
	switch d := c.driver.(type) {
	case WiFiDriver:
		err = d.ScanWiFiNetworks(req.SSID, func(results []WiFiScanResult, err error) {
			done <- outcome{wifi: results, err: err}
		})
	case ThreadDriver:
		err = d.ScanThreadNetworks(func(results []ThreadScanResult, err error) {
			done <- outcome{thread: results, err: err}
		})
	}
	if err != nil {
		status, text := StatusFromError(err)
		c.finish(status, nil, nil, nil)
		return ScanNetworksResponse{NetworkingStatus: status, DebugText: text}, nil
	}

	select {
	case <-ctx.Done():
		return ScanNetworksResponse{}, ctx.Err()
	case o := <-done:
		status, text := StatusFromError(o.err)
		c.finish(status, nil, nil, req.Breadcrumb)
		return ScanNetworksResponse{
			NetworkingStatus: status,
			DebugText:        text,
			WiFiResults:      o.wifi,
			ThreadResults:    o.thread,
		}, nil
	}
}

// validWiFiCredentials accepts open networks, WPA passphrases and
// hex-encoded 32-byte PSKs.
func validWiFiCredentials(creds []byte) bool {
	switch n := len(creds); {
	case n == 0:
		return true
	case n >= MinPassphraseLength && n <= MaxPassphraseLength:
		return true
	case n == PSKHexLength:
		_, err := hex.DecodeString(string(creds))
		return err == nil
	default:
		return false
	}
}

// AddOrUpdateWiFiNetwork stores Wi-Fi credentials.
func (c *Cluster) AddOrUpdateWiFiNetwork(req AddOrUpdateWiFiNetworkRequest) (NetworkConfigResponse, error) {
	d, ok := c.driver.(WiFiDriver)
	if !ok {
		return NetworkConfigResponse{}, clusters.ErrUnsupportedCommand
	}
	if len(req.SSID) == 0 || len(req.SSID) > MaxSSIDLength || !validWiFiCredentials(req.Credentials) {
		c.finish(StatusOutOfRange, nil, nil, nil)
		return NetworkConfigResponse{NetworkingStatus: StatusOutOfRange}, nil
	}

	index, err := d.AddOrUpdateWiFiNetwork(req.SSID, req.Credentials)
	return c.configResponse(index, err, req.SSID, req.Breadcrumb), nil
}

// AddOrUpdateThreadNetwork stores a Thread operational dataset.
func (c *Cluster) AddOrUpdateThreadNetwork(req AddOrUpdateThreadNetworkRequest) (NetworkConfigResponse, error) {
	d, ok := c.driver.(ThreadDriver)
	if !ok {
		return NetworkConfigResponse{}, clusters.ErrUnsupportedCommand
	}
	if n := len(req.OperationalDataset); n < MinOperationalDataset || n > MaxOperationalDataset {
		c.finish(StatusOutOfRange, nil, nil, nil)
		return NetworkConfigResponse{NetworkingStatus: StatusOutOfRange}, nil
	}

	index, err := d.AddOrUpdateThreadNetwork(req.OperationalDataset)
	return c.configResponse(index, err, nil, req.Breadcrumb), nil
}

// RemoveNetwork removes a configured network.
func (c *Cluster) RemoveNetwork(req RemoveNetworkRequest) (NetworkConfigResponse, error) {
	d, err := c.wireless()
	if err != nil {
		return NetworkConfigResponse{}, err
	}
	if len(req.NetworkID) == 0 || len(req.NetworkID) > MaxNetworkIDLength {
		return NetworkConfigResponse{}, clusters.ErrConstraint
	}

	index, err := d.RemoveNetwork(req.NetworkID)
	return c.configResponse(index, err, req.NetworkID, req.Breadcrumb), nil
}

// ReorderNetwork moves a configured network to a new priority index.
func (c *Cluster) ReorderNetwork(req ReorderNetworkRequest) (NetworkConfigResponse, error) {
	d, err := c.wireless()
	if err != nil {
		return NetworkConfigResponse{}, err
	}
	if len(req.NetworkID) == 0 || len(req.NetworkID) > MaxNetworkIDLength {
		return NetworkConfigResponse{}, clusters.ErrConstraint
	}

	err = d.ReorderNetwork(req.NetworkID, req.NetworkIndex)
	return c.configResponse(req.NetworkIndex, err, req.NetworkID, req.Breadcrumb), nil
}

func (c *Cluster) configResponse(index uint8, err error, networkID []byte, breadcrumb *uint64) NetworkConfigResponse {
	status, text := StatusFromError(err)
	c.finish(status, networkID, nil, breadcrumb)

	resp := NetworkConfigResponse{NetworkingStatus: status, DebugText: text}
	if status == StatusSuccess {
		resp.NetworkIndex = &index
	}
	return resp
}

// ConnectNetwork connects to a configured network and waits for the
// driver's result or for ctx to end.
func (c *Cluster) ConnectNetwork(ctx context.Context, req ConnectNetworkRequest) (ConnectNetworkResponse, error) {
	d, err := c.wireless()
	if err != nil {
		return ConnectNetworkResponse{}, err
	}
	if len(req.NetworkID) == 0 || len(req.NetworkID) > MaxNetworkIDLength {
		return ConnectNetworkResponse{}, clusters.ErrConstraint
	}

	done := make(chan ConnectResult, 1)
	if err := d.ConnectNetwork(req.NetworkID, func(r ConnectResult) { done <- r }); err != nil {
		status, text := StatusFromError(err)
		c.finish(status, req.NetworkID, nil, nil)
		return ConnectNetworkResponse{NetworkingStatus: status, DebugText: text}, nil
	}

	select {
	case <-ctx.Done():
		return ConnectNetworkResponse{}, ctx.Err()
	case r := <-done:
		c.finish(r.Status, req.NetworkID, r.ErrorValue, req.Breadcrumb)
		return ConnectNetworkResponse{
			NetworkingStatus: r.Status,
			DebugText:        r.DebugText,
			ErrorValue:       r.ErrorValue,
		}, nil
	}
}
