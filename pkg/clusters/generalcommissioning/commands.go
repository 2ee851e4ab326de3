package generalcommissioning

// ArmFailSafeRequest is the ArmFailSafe command request.
type ArmFailSafeRequest struct {
	ExpiryLengthSeconds uint16
	Breadcrumb          uint64
}

// SetRegulatoryConfigRequest is the SetRegulatoryConfig command request.
type SetRegulatoryConfigRequest struct {
	NewRegulatoryConfig RegulatoryLocationType
	CountryCode         string
	Breadcrumb          uint64
}

// Response is the response shared by all General Commissioning commands.
type Response struct {
	ErrorCode CommissioningErrorCode
	DebugText string
}

// OK reports whether the command succeeded.
func (r Response) OK() bool {
	return r.ErrorCode == CommissioningOK
}

// ArmFailSafe arms, re-arms or (with a zero expiry) disarms the fail-safe
// on behalf of fabricIndex. The breadcrumb is updated on success.
func (c *Cluster) ArmFailSafe(fabricIndex FabricIndex, req ArmFailSafeRequest) Response {
	resp := c.armFailSafe(fabricIndex, req)
	if resp.OK() {
		c.SetBreadcrumb(req.Breadcrumb)
	}
	return resp
}

func (c *Cluster) armFailSafe(fabricIndex FabricIndex, req ArmFailSafeRequest) Response {
	fsm := c.config.FailSafeManager
	if fsm == nil {
		return Response{}
	}

	if fsm.IsArmed() && fsm.ArmedFabricIndex() != fabricIndex {
		return Response{
			ErrorCode: CommissioningBusyWithOtherAdmin,
			DebugText: "fail-safe armed by different fabric",
		}
	}

	var err error
	switch {
	case req.ExpiryLengthSeconds == 0 && !fsm.IsArmed():
		// Disarming an unarmed fail-safe has no side effects.
		return Response{}
	case req.ExpiryLengthSeconds == 0:
		err = fsm.Disarm(fabricIndex)
	case fsm.IsArmed():
		err = fsm.ExtendArm(fabricIndex, req.ExpiryLengthSeconds)
	default:
		err = fsm.Arm(fabricIndex, req.ExpiryLengthSeconds)
	}
	if err != nil {
		return Response{ErrorCode: CommissioningNoFailSafe, DebugText: err.Error()}
	}
	return Response{}
}

// SetRegulatoryConfig updates the regulatory configuration. Configurations
// beyond the device's location capability are rejected.
func (c *Cluster) SetRegulatoryConfig(req SetRegulatoryConfigRequest) Response {
	if req.NewRegulatoryConfig > RegulatoryIndoorOutdoor {
		return Response{ErrorCode: CommissioningValueOutsideRange, DebugText: "unknown location type"}
	}
	if len(req.CountryCode) != 2 {
		return Response{ErrorCode: CommissioningValueOutsideRange, DebugText: "country code must be 2 characters"}
	}

	capability := c.config.LocationCapability
	if capability != RegulatoryIndoorOutdoor && req.NewRegulatoryConfig != capability {
		text := "device is indoor only"
		if capability == RegulatoryOutdoor {
			text = "device is outdoor only"
		}
		return Response{ErrorCode: CommissioningValueOutsideRange, DebugText: text}
	}

	c.mu.Lock()
	changed := c.regulatoryConfig != req.NewRegulatoryConfig
	c.regulatoryConfig = req.NewRegulatoryConfig
	c.mu.Unlock()
	if changed {
		c.IncrementDataVersion()
	}

	c.SetBreadcrumb(req.Breadcrumb)
	return Response{}
}

// CommissioningComplete finishes commissioning for fabricIndex and resets
// the breadcrumb.
func (c *Cluster) CommissioningComplete(fabricIndex FabricIndex) Response {
	fsm := c.config.FailSafeManager
	var resp Response

	switch {
	case fsm == nil:
	case !fsm.IsArmed():
		resp = Response{ErrorCode: CommissioningNoFailSafe, DebugText: ErrFailSafeNotArmed.Error()}
	case fsm.ArmedFabricIndex() != fabricIndex:
		resp = Response{ErrorCode: CommissioningInvalidAuthentication, DebugText: ErrBusyWithOtherAdmin.Error()}
	default:
		if err := fsm.Complete(fabricIndex); err != nil {
			resp = Response{ErrorCode: CommissioningNoFailSafe, DebugText: err.Error()}
		}
	}

	if resp.OK() {
		c.SetBreadcrumb(0)
	}
	return resp
}
