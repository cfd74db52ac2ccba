// Package report derives presentation views from an analysis result:
// merged distribution buckets, sorted count tables, a bounded list of
// the highest-risk variants, and a plain-text clinical report.
package report

import (
	"sort"
	"strings"

	"github.com/vcf-risk-engine/internal/domain"
)

// topOffenderLimit bounds the highest-risk variant list shown in
// rendered reports.
const topOffenderLimit = 5

// CountEntry is one labeled bucket of a sorted distribution.
type CountEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// View is the aggregated presentation model for one analysis result.
type View struct {
	RiskDistribution []CountEntry     `json:"risk_distribution"`
	GeneDistribution []CountEntry     `json:"gene_distribution"`
	VariantTypes     []CountEntry     `json:"variant_types"`
	TopOffenders     []domain.Variant `json:"top_offenders"`
	// OffenderOverflow counts high-risk variants beyond the displayed
	// top entries.
	OffenderOverflow int `json:"offender_overflow"`
}

// riskBucketAliases maps legacy bucket labels emitted by older backends
// onto their canonical bucket. Counts under an alias are summed into
// the canonical bucket; unknown labels pass through unchanged.
var riskBucketAliases = map[string]string{
	"High_Risk":                         domain.RiskLabelHigh,
	"Variant of Uncertain Significance": "VUS",
	"Population Risk":                   "Low Risk",
}

// riskBucketOrder fixes the rendering order of the canonical risk
// buckets; buckets not listed here sort after them by label.
var riskBucketOrder = map[string]int{
	domain.RiskLabelHigh:     0,
	domain.RiskLabelModerate: 1,
	"VUS":                    2,
	"Low Risk":               3,
}

// Aggregate builds the presentation view for one result.
func Aggregate(result *domain.AnalysisResult) *View {
	offenders, overflow := topOffenders(result.Variants)
	return &View{
		RiskDistribution: mergeRiskBuckets(result.Plots.RiskDistribution),
		GeneDistribution: sortedCounts(result.Plots.GeneDistribution),
		VariantTypes:     sortedCounts(result.Plots.VariantTypes),
		TopOffenders:     offenders,
		OffenderOverflow: overflow,
	}
}

// mergeRiskBuckets folds alias labels into their canonical bucket and
// drops buckets whose merged total is zero.
func mergeRiskBuckets(distribution map[string]int) []CountEntry {
	merged := map[string]int{}
	for label, count := range distribution {
		if canonical, ok := riskBucketAliases[label]; ok {
			label = canonical
		}
		merged[label] += count
	}

	entries := make([]CountEntry, 0, len(merged))
	for label, count := range merged {
		if count <= 0 {
			continue
		}
		entries = append(entries, CountEntry{Label: label, Count: count})
	}

	sort.Slice(entries, func(i, j int) bool {
		oi, iKnown := riskBucketOrder[entries[i].Label]
		oj, jKnown := riskBucketOrder[entries[j].Label]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return entries[i].Label < entries[j].Label
		}
	})
	return entries
}

// sortedCounts filters a distribution to positive counts and sorts it
// by descending count, breaking ties by label so the order is stable
// for equal counts.
func sortedCounts(distribution map[string]int) []CountEntry {
	entries := make([]CountEntry, 0, len(distribution))
	for label, count := range distribution {
		if count <= 0 {
			continue
		}
		entries = append(entries, CountEntry{Label: label, Count: count})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	return entries
}

// topOffenders selects the variants whose risk level contains "high",
// keeping result order, truncated to the display limit. The second
// return value is how many matching variants were cut off.
func topOffenders(variants []domain.Variant) ([]domain.Variant, int) {
	matched := []domain.Variant{}
	for _, v := range variants {
		if strings.Contains(strings.ToLower(v.RiskLevel), "high") {
			matched = append(matched, v)
		}
	}
	if len(matched) <= topOffenderLimit {
		return matched, 0
	}
	return matched[:topOffenderLimit], len(matched) - topOffenderLimit
}
