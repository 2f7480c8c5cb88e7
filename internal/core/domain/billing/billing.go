package billing

import (
	"slices"
	"strings"
)

// DefaultLocale is the locale consulted when a plan carries no text for the
// requested one.
const DefaultLocale = "en"

type PlanType string

const (
	PlanFree PlanType = "FREE"
	PlanPro  PlanType = "PRO"
)

// ParsePlanType normalizes s into a known plan type.
func ParsePlanType(s string) (PlanType, bool) {
	switch PlanType(strings.ToUpper(strings.TrimSpace(s))) {
	case PlanFree:
		return PlanFree, true
	case PlanPro:
		return PlanPro, true
	default:
		return "", false
	}
}

// Plan is an immutable snapshot of the provider's current plan. A refetch
// yields a new Plan; callers never mutate one in place.
type Plan struct {
	Type     PlanType    `json:"type" db:"type"`
	Name     string      `json:"name" db:"name"`
	Features []string    `json:"features"`
	Details  PlanDetails `json:"details"`
}

// PlanDetails carries locale-keyed display text.
type PlanDetails struct {
	Name     map[string]string   `json:"name,omitempty"`
	Features map[string][]string `json:"features,omitempty"`
}

// IsPro reports whether the plan unlocks paid features.
func (p Plan) IsPro() bool { return p.Type == PlanPro }

// DisplayName resolves the plan name for locale: details.name[locale], then
// details.name[en], then the raw plan type.
func (p Plan) DisplayName(locale string) string {
	if v := p.Details.Name[locale]; v != "" {
		return v
	}
	if v := p.Details.Name[DefaultLocale]; v != "" {
		return v
	}
	return string(p.Type)
}

// DisplayFeatures resolves the feature list for locale with the same chain as
// DisplayName, ending at the raw feature list.
func (p Plan) DisplayFeatures(locale string) []string {
	if v, ok := p.Details.Features[locale]; ok && len(v) > 0 {
		return slices.Clone(v)
	}
	if v, ok := p.Details.Features[DefaultLocale]; ok && len(v) > 0 {
		return slices.Clone(v)
	}
	return slices.Clone(p.Features)
}

// Localized returns a copy of p whose Name and Features hold the display text
// for locale.
func (p Plan) Localized(locale string) Plan {
	return Plan{
		Type:     p.Type,
		Name:     p.DisplayName(locale),
		Features: p.DisplayFeatures(locale),
		Details:  p.Details,
	}
}

// Usage holds server-maintained counters. The client never decrements them.
type Usage struct {
	LeadsUsed         int     `json:"leadsUsed" db:"leads_used"`
	ServicesActive    int     `json:"servicesActive" db:"services_active"`
	BookingsThisMonth int     `json:"bookingsThisMonth" db:"bookings_this_month"`
	Rating            float64 `json:"rating" db:"rating"`
}

// Limits caps the usage counters. Zero means unlimited.
type Limits struct {
	MaxLeads    int `json:"maxLeads" db:"max_leads"`
	MaxServices int `json:"maxServices" db:"max_services"`
	MaxBookings int `json:"maxBookings" db:"max_bookings"`
}

// ChangePlanRequest is the body of a plan change.
type ChangePlanRequest struct {
	Type PlanType `json:"type"`
}
