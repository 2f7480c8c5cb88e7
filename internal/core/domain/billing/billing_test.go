package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlanType(t *testing.T) {
	for in, want := range map[string]PlanType{"PRO": PlanPro, " free ": PlanFree, "pro": PlanPro} {
		got, ok := ParsePlanType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParsePlanType("ENTERPRISE")
	assert.False(t, ok)
}

func TestPlanDisplayFallbackChain(t *testing.T) {
	p := Plan{
		Type:     PlanPro,
		Features: []string{"raw-a", "raw-b"},
		Details: PlanDetails{
			Name:     map[string]string{"en": "Professional", "pt": "Profissional"},
			Features: map[string][]string{"pt": {"Leads ilimitados"}},
		},
	}

	assert.Equal(t, "Profissional", p.DisplayName("pt"))
	assert.Equal(t, "Professional", p.DisplayName("es"))
	assert.Equal(t, "PRO", Plan{Type: PlanPro}.DisplayName("pt"))

	assert.Equal(t, []string{"Leads ilimitados"}, p.DisplayFeatures("pt"))
	assert.Equal(t, []string{"raw-a", "raw-b"}, p.DisplayFeatures("es"), "no pt or en features falls back to the raw list")

	localized := p.Localized("pt")
	assert.Equal(t, "Profissional", localized.Name)
	localized.Features[0] = "changed"
	assert.Equal(t, "Leads ilimitados", p.Details.Features["pt"][0], "localized copies never alias the snapshot")
}

func TestGate(t *testing.T) {
	pro := Feature{Key: "analytics"}
	free := Feature{Key: "profile", FreeTierAllowed: true}

	tests := []struct {
		name string
		e    Entitlement
		f    Feature
		want Decision
	}{
		{"loading", Entitlement{Loading: true, State: StateLoading}, pro, DecisionPending},
		{"loading free feature", Entitlement{Loading: true, State: StateLoading}, free, DecisionPending},
		{"unknown", Entitlement{State: StateUnknown}, pro, DecisionUnavailable},
		{"error", Entitlement{State: StateError}, pro, DecisionUnavailable},
		{"unknown free feature", Entitlement{State: StateUnknown}, free, DecisionAllowed},
		{"error free feature", Entitlement{State: StateError}, free, DecisionAllowed},
		{"free plan", Entitlement{State: StateReady}, pro, DecisionDenied},
		{"free plan free feature", Entitlement{State: StateReady}, free, DecisionAllowed},
		{"pro plan", Entitlement{State: StateReady, IsPro: true}, pro, DecisionAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.e.Gate(tc.f)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want == DecisionDenied, got.ShowUpgrade())
		})
	}
}

func TestCheckLimit(t *testing.T) {
	tests := []struct {
		observed, limit int
		want            LimitStatus
	}{
		{0, 0, LimitAllowed},
		{1000, 0, LimitAllowed},
		{5, 10, LimitAllowed},
		{8, 10, LimitAllowed},
		{9, 10, LimitSoftBlock},
		{10, 10, LimitHardBlock},
		{11, 10, LimitHardBlock},
		{89, 100, LimitAllowed},
		{90, 100, LimitSoftBlock},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, CheckLimit(tc.observed, tc.limit), "%d/%d", tc.observed, tc.limit)
	}
}
