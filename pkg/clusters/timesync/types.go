package timesync

import "fmt"

// Granularity is the accuracy of the node's UTC time.
type Granularity uint8

const (
	GranularityNoTime       Granularity = 0
	GranularityMinutes      Granularity = 1
	GranularitySeconds      Granularity = 2
	GranularityMilliseconds Granularity = 3
	GranularityMicroseconds Granularity = 4
)

var granularityNames = [...]string{"NoTime", "Minutes", "Seconds", "Milliseconds", "Microseconds"}

// String returns the granularity name.
func (g Granularity) String() string {
	if int(g) < len(granularityNames) {
		return granularityNames[g]
	}
	return fmt.Sprintf("Granularity(%d)", uint8(g))
}

// TimeSource is the source of the node's current time.
type TimeSource uint8

const (
	TimeSourceNone             TimeSource = 0
	TimeSourceUnknown          TimeSource = 1
	TimeSourceAdmin            TimeSource = 2
	TimeSourceNodeTimeCluster  TimeSource = 3
	TimeSourceNonMatterSNTP    TimeSource = 4
	TimeSourceNonMatterNTP     TimeSource = 5
	TimeSourceMatterSNTP       TimeSource = 6
	TimeSourceMatterNTP        TimeSource = 7
	TimeSourceMixedNTP         TimeSource = 8
	TimeSourceNonMatterSNTPNTS TimeSource = 9
	TimeSourceNonMatterNTPNTS  TimeSource = 10
	TimeSourceMatterSNTPNTS    TimeSource = 11
	TimeSourceMatterNTPNTS     TimeSource = 12
	TimeSourceMixedNTPNTS      TimeSource = 13
	TimeSourceCloudSource      TimeSource = 14
	TimeSourcePTP              TimeSource = 15
	TimeSourceGNSS             TimeSource = 16
)

const timeSourceCount = 17

// Valid reports whether s is a known time source.
func (s TimeSource) Valid() bool {
	return s < timeSourceCount
}

// TimeZoneDatabase describes the node's time zone database.
type TimeZoneDatabase uint8

const (
	TimeZoneDatabaseFull    TimeZoneDatabase = 0
	TimeZoneDatabasePartial TimeZoneDatabase = 1
	TimeZoneDatabaseNone    TimeZoneDatabase = 2
)

// String returns the database kind.
func (d TimeZoneDatabase) String() string {
	switch d {
	case TimeZoneDatabaseFull:
		return "Full"
	case TimeZoneDatabasePartial:
		return "Partial"
	case TimeZoneDatabaseNone:
		return "None"
	default:
		return "Unknown"
	}
}

// TimeZone is one entry of the TimeZone list.
type TimeZone struct {
	// Offset from UTC in seconds.
	Offset int32

	// ValidAt is the UTC time in microseconds from which the entry applies.
	ValidAt uint64

	// Name is an optional IANA time zone name.
	Name string
}
