package timesync

import "net"

// Delegate is implemented by the application to validate NTP server
// addresses and to observe time configuration changes.
type Delegate interface {
	// IsNTPAddressValid reports whether addr is an acceptable NTP server.
	IsNTPAddressValid(addr string) bool

	// IsNTPAddressDomain reports whether addr is a domain name rather than
	// an IP literal.
	IsNTPAddressDomain(addr string) bool

	// UTCTimeChanged is called after SetUTCTime is accepted.
	UTCTimeChanged(utcMicros uint64, granularity Granularity)

	// DefaultNTPChanged is called after the default NTP server changes.
	// ntp is nil when the default was cleared.
	DefaultNTPChanged(ntp *string)

	// TimeZoneListChanged is called after the TimeZone list changes.
	TimeZoneListChanged(zones []TimeZone)
}

// DefaultDelegate accepts any non-empty address and ignores change
// notifications.
type DefaultDelegate struct{}

var _ Delegate = DefaultDelegate{}

// IsNTPAddressValid implements Delegate.
func (DefaultDelegate) IsNTPAddressValid(addr string) bool {
	return addr != "" && len(addr) <= MaxDefaultNTPLength
}

// IsNTPAddressDomain implements Delegate.
func (DefaultDelegate) IsNTPAddressDomain(addr string) bool {
	return net.ParseIP(addr) == nil
}

// UTCTimeChanged implements Delegate.
func (DefaultDelegate) UTCTimeChanged(uint64, Granularity) {}

// DefaultNTPChanged implements Delegate.
func (DefaultDelegate) DefaultNTPChanged(*string) {}

// TimeZoneListChanged implements Delegate.
func (DefaultDelegate) TimeZoneListChanged([]TimeZone) {}
