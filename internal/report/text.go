package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/vcf-risk-engine/internal/domain"
)

// RenderText produces the plain-text clinical report for a result.
func RenderText(result *domain.AnalysisResult) string {
	view := Aggregate(result)

	var b strings.Builder
	rule := strings.Repeat("=", 44)

	b.WriteString(rule + "\n")
	b.WriteString("BREAST CANCER GENETIC RISK ASSESSMENT REPORT\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("Patient ID: " + result.PatientID + "\n")
	b.WriteString("Analysis Date: " + formatDate(result.AnalysisDate) + "\n\n")

	b.WriteString("SUMMARY\n-------\n")
	fmt.Fprintf(&b, "Overall Risk Level: %s\n", result.OverallRisk)
	fmt.Fprintf(&b, "Variants Analyzed: %d\n", result.VariantCount)
	fmt.Fprintf(&b, "Pathogenic Variants: %d\n", result.PathogenicCount)
	fmt.Fprintf(&b, "VUS: %d\n\n", result.VUSCount)

	b.WriteString("KEY FINDINGS\n------------\n")
	b.WriteString(result.Summary.RiskInterpretation + "\n")
	writeOffenders(&b, view)
	b.WriteString("\n")

	if len(view.RiskDistribution) > 0 {
		b.WriteString("RISK DISTRIBUTION\n-----------------\n")
		for _, entry := range view.RiskDistribution {
			fmt.Fprintf(&b, "%s: %d\n", entry.Label, entry.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("CLINICAL IMPLICATIONS\n---------------------\n")
	for _, implication := range result.Summary.ClinicalImplications {
		b.WriteString("- " + implication + "\n")
	}
	b.WriteString("\n")

	b.WriteString("RECOMMENDATIONS\n---------------\n")
	for _, rec := range result.Recommendations {
		fmt.Fprintf(&b, "- [%s] %s\n", strings.ToUpper(rec.Priority), rec.Recommendation)
		if rec.Rationale != "" {
			b.WriteString("  Rationale: " + rec.Rationale + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(rule + "\n")
	b.WriteString("End of Report\n")
	b.WriteString(rule + "\n")

	return b.String()
}

func writeOffenders(b *strings.Builder, view *View) {
	if len(view.TopOffenders) == 0 {
		return
	}
	b.WriteString("\nHighest-risk variants:\n")
	for _, v := range view.TopOffenders {
		fmt.Fprintf(b, "- %s %s:%s %s (%s, %s, AF %s)\n",
			v.Gene,
			v.Chromosome,
			v.Position,
			FormatChange(v.Ref, v.Alt),
			strings.TrimSuffix(v.Consequence, "_variant"),
			v.ClinVarSignificance,
			FormatAF(v.GnomadAF),
		)
	}
	if view.OffenderOverflow > 0 {
		fmt.Fprintf(b, "... and %d more\n", view.OffenderOverflow)
	}
}

// FormatChange renders a REF>ALT change, compressing long indels to
// DEL/INS.
func FormatChange(ref, alt string) string {
	if len(ref) > 3 || len(alt) > 3 {
		if len(ref) > len(alt) {
			return "DEL"
		}
		return "INS"
	}
	return ref + ">" + alt
}

// FormatAF renders an allele frequency for display. Zero frequencies
// show as N/A; frequencies below the reporting resolution show as a
// floor value.
func FormatAF(af float64) string {
	if af <= 0 {
		return "N/A"
	}
	if af < 0.0001 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.6f", af)
}

// formatDate renders an RFC 3339 analysis date as "YYYY-MM-DD HH:MM",
// truncating unparseable dates instead of failing.
func formatDate(date string) string {
	if date == "" {
		return "N/A"
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.Format("2006-01-02 15:04")
	}
	if len(date) > 19 {
		return date[:19]
	}
	return date
}
