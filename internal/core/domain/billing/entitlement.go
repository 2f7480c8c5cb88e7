package billing

// State describes how far an Entitlement has resolved.
type State string

const (
	// StateLoading: a source has never produced a value and is still fetching.
	StateLoading State = "loading"
	// StateReady: plan, usage and limits are all known.
	StateReady State = "ready"
	// StateUnknown: the billing collaborator answered but had no record.
	StateUnknown State = "unknown"
	// StateError: a source failed before ever producing a value.
	StateError State = "error"
)

// Entitlement is the merged view of plan, usage and limits used to gate
// features. It is derived and never persisted.
type Entitlement struct {
	Plan    Plan   `json:"plan"`
	IsPro   bool   `json:"isPro"`
	Usage   Usage  `json:"usage"`
	Limits  Limits `json:"limits"`
	Loading bool   `json:"loading"`
	State   State  `json:"state"`
	Err     error  `json:"-"`
}

// Feature names a gated capability.
type Feature struct {
	Key             string `json:"key"`
	FreeTierAllowed bool   `json:"freeTierAllowed"`
}

// Decision is the outcome of a feature gate.
type Decision string

const (
	// DecisionPending means the gate cannot decide yet; render a neutral state.
	DecisionPending Decision = "pending"
	DecisionAllowed Decision = "allowed"
	DecisionDenied  Decision = "denied"
	// DecisionUnavailable means entitlement data is missing or failed.
	DecisionUnavailable Decision = "unavailable"
)

// ShowUpgrade reports whether the caller should render an upgrade prompt.
func (d Decision) ShowUpgrade() bool { return d == DecisionDenied }

// Gate evaluates feature against e. Free-tier features are allowed once
// loading ends, even when the plan is unknown or failed.
func (e Entitlement) Gate(feature Feature) Decision {
	switch {
	case e.Loading || e.State == StateLoading:
		return DecisionPending
	case feature.FreeTierAllowed:
		return DecisionAllowed
	case e.State == StateUnknown, e.State == StateError:
		return DecisionUnavailable
	case e.IsPro:
		return DecisionAllowed
	default:
		return DecisionDenied
	}
}

// Resource identifies a metered counter.
type Resource string

const (
	ResourceLeads    Resource = "leads"
	ResourceServices Resource = "services"
	ResourceBookings Resource = "bookings"
)

// LimitStatus is the result of comparing a counter against its cap.
type LimitStatus string

const (
	LimitAllowed   LimitStatus = "allowed"
	LimitSoftBlock LimitStatus = "soft_block"
	LimitHardBlock LimitStatus = "hard_block"
)

// CheckLimit compares observed against limit. A limit of zero or less is
// unlimited; usage at or above 90% of the cap is a soft block.
func CheckLimit(observed, limit int) LimitStatus {
	if limit <= 0 {
		return LimitAllowed
	}
	if observed >= limit {
		return LimitHardBlock
	}
	if observed*10 >= limit*9 {
		return LimitSoftBlock
	}
	return LimitAllowed
}

// Check evaluates the usage of resource against its limit.
func (e Entitlement) Check(resource Resource) LimitStatus {
	switch resource {
	case ResourceLeads:
		return CheckLimit(e.Usage.LeadsUsed, e.Limits.MaxLeads)
	case ResourceServices:
		return CheckLimit(e.Usage.ServicesActive, e.Limits.MaxServices)
	case ResourceBookings:
		return CheckLimit(e.Usage.BookingsThisMonth, e.Limits.MaxBookings)
	default:
		return LimitAllowed
	}
}
