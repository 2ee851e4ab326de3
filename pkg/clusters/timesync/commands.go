package timesync

import "github.com/backkem/espmatter/pkg/clusters"

// SetUTCTimeRequest is the SetUTCTime command request.
type SetUTCTimeRequest struct {
	UTCTime     uint64
	Granularity Granularity
	TimeSource  *TimeSource
}

// SetTimeZoneResponse is the SetTimeZoneResponse command.
type SetTimeZoneResponse struct {
	DSTOffsetRequired bool
}

// SetUTCTime sets the node's UTC time. A time coarser than the current one
// is rejected with ErrTimeNotAccepted.
func (c *Cluster) SetUTCTime(req SetUTCTimeRequest) error {
	if req.Granularity > GranularityMicroseconds {
		return clusters.ErrConstraint
	}
	if req.TimeSource != nil && !req.TimeSource.Valid() {
		return clusters.ErrConstraint
	}

	c.mu.Lock()
	if c.utcAtSet != nil && req.Granularity < c.granularity {
		c.mu.Unlock()
		return ErrTimeNotAccepted
	}
	utc := req.UTCTime
	c.utcAtSet = &utc
	c.setAt = c.now()
	c.granularity = req.Granularity
	if c.optional.IsSet(OptionalTimeSource) {
		c.timeSource = TimeSourceAdmin
		if req.TimeSource != nil {
			c.timeSource = *req.TimeSource
		}
	}
	delegate := c.delegate
	c.mu.Unlock()

	c.IncrementDataVersion()
	delegate.UTCTimeChanged(utc, req.Granularity)
	return nil
}

// SetDefaultNTP sets or (with nil) clears the default NTP server. Domain
// names are only accepted when the node supports DNS resolution.
func (c *Cluster) SetDefaultNTP(ntp *string) error {
	if !c.has(FeatureNTPClient) {
		return clusters.ErrUnsupportedCommand
	}

	delegate := c.Delegate()
	if ntp != nil {
		if len(*ntp) > MaxDefaultNTPLength || !delegate.IsNTPAddressValid(*ntp) {
			return clusters.ErrConstraint
		}
		if delegate.IsNTPAddressDomain(*ntp) && !c.startup.SupportsDNSResolve {
			return clusters.ErrInvalidInState
		}
	}

	c.mu.Lock()
	if ntp == nil {
		c.defaultNTP = nil
	} else {
		v := *ntp
		c.defaultNTP = &v
	}
	c.mu.Unlock()

	c.IncrementDataVersion()
	delegate.DefaultNTPChanged(ntp)
	return nil
}

// SetTimeZone replaces the TimeZone list.
func (c *Cluster) SetTimeZone(zones []TimeZone) (SetTimeZoneResponse, error) {
	if !c.has(FeatureTimeZone) {
		return SetTimeZoneResponse{}, clusters.ErrUnsupportedCommand
	}
	if len(zones) == 0 || len(zones) > TimeZoneListMaxSize {
		return SetTimeZoneResponse{}, clusters.ErrConstraint
	}
	for i, tz := range zones {
		if tz.Offset < MinTimeZoneOffset || tz.Offset > MaxTimeZoneOffset {
			return SetTimeZoneResponse{}, clusters.ErrConstraint
		}
		if len(tz.Name) > MaxTimeZoneNameLength {
			return SetTimeZoneResponse{}, clusters.ErrConstraint
		}
		// The first entry applies from the beginning of time.
		if i == 0 && tz.ValidAt != 0 {
			return SetTimeZoneResponse{}, clusters.ErrConstraint
		}
		if i > 0 && tz.ValidAt == 0 {
			return SetTimeZoneResponse{}, clusters.ErrConstraint
		}
	}

	list := append([]TimeZone(nil), zones...)
	c.mu.Lock()
	c.timeZones = list
	delegate := c.delegate
	c.mu.Unlock()

	c.IncrementDataVersion()
	delegate.TimeZoneListChanged(append([]TimeZone(nil), list...))

	return SetTimeZoneResponse{
		DSTOffsetRequired: c.startup.TimeZoneDatabase == TimeZoneDatabaseNone,
	}, nil
}
