package timesync

// StartupConfiguration carries the persisted attribute values a cluster
// instance starts from. Fields are only meaningful for the features that
// enable them.
type StartupConfiguration struct {
	// SupportsDNSResolve applies with FeatureNTPClient.
	SupportsDNSResolve bool

	// TimeZoneDatabase applies with FeatureTimeZone.
	TimeZoneDatabase TimeZoneDatabase

	// NTPServerAvailable applies with FeatureNTPServer.
	NTPServerAvailable bool

	// TimeSource applies when OptionalTimeSource is set.
	TimeSource TimeSource
}

// OptionalAttribute identifies an optional attribute explicitly supplied
// at startup.
type OptionalAttribute uint32

const (
	// OptionalTimeSource marks StartupConfiguration.TimeSource as supplied.
	OptionalTimeSource OptionalAttribute = 1 << 0
)

// OptionalAttributeSet is a set of OptionalAttribute bits.
type OptionalAttributeSet uint32

// Set returns the set with a added.
func (s OptionalAttributeSet) Set(a OptionalAttribute) OptionalAttributeSet {
	return s | OptionalAttributeSet(a)
}

// IsSet reports whether a is in the set.
func (s OptionalAttributeSet) IsSet(a OptionalAttribute) bool {
	return uint32(s)&uint32(a) != 0
}
