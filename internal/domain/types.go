// Package domain contains the core business entities for breast-cancer
// genetic risk analysis: the analysis request, the canonical analysis
// result, and the discrete classification tiers derived from backend
// output.
//
// The result schema mirrors the JSON emitted by the analysis backends
// (see internal/analyzer) so that one canonical shape serves both the
// local and the remote execution path.
package domain

// Mode selects the execution path for an analysis request.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// IsValid reports whether the mode is one of the supported execution paths.
func (m Mode) IsValid() bool {
	switch m {
	case ModeLocal, ModeRemote:
		return true
	default:
		return false
	}
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// Severity is the ordered severity tier derived from a free-form risk
// level label. It drives presentation (colors, sort order) without the
// core ever knowing about colors itself.
type Severity string

const (
	SeverityCritical      Severity = "Critical"
	SeverityElevated      Severity = "Elevated"
	SeverityIndeterminate Severity = "Indeterminate"
	SeverityBaseline      Severity = "Baseline"
)

// String returns the string representation of the severity tier.
func (s Severity) String() string {
	return string(s)
}

// SignificanceClass is the discrete classification derived from a
// free-form ClinVar significance label.
type SignificanceClass string

const (
	SignificancePathogenic       SignificanceClass = "Pathogenic"
	SignificanceLikelyPathogenic SignificanceClass = "LikelyPathogenic"
	SignificanceUncertain        SignificanceClass = "Uncertain"
	SignificanceConflicting      SignificanceClass = "Conflicting"
	SignificanceBenign           SignificanceClass = "Benign"
	SignificanceUnknown          SignificanceClass = "Unknown"
)

// String returns the string representation of the significance class.
func (s SignificanceClass) String() string {
	return string(s)
}

// Urgency is the discrete tier derived from a recommendation priority label.
type Urgency string

const (
	UrgencyHigh        Urgency = "High"
	UrgencyMedium      Urgency = "Medium"
	UrgencyLow         Urgency = "Low"
	UrgencyUnspecified Urgency = "Unspecified"
)

// String returns the string representation of the urgency tier.
func (u Urgency) String() string {
	return string(u)
}

// Well-known risk level labels produced by the analysis backends.
// These are display labels, not enum values: backends are free to emit
// variations and the classifier matches them by substring.
const (
	RiskLabelHigh       = "High Risk"
	RiskLabelModerate   = "Moderate Risk"
	RiskLabelIncreased  = "Increased Risk"
	RiskLabelPopulation = "Population Risk"
	RiskLabelVUS        = "Variant of Uncertain Significance"
	RiskLabelError      = "Analysis Error"
)
