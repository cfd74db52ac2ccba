package analyzer

import (
	"strings"

	"github.com/vcf-risk-engine/internal/domain"
)

// annotation is the rule-derived interpretation of a single variant.
type annotation struct {
	significance   string
	classification string
	af             float64
}

// knownPathogenic lists founder variants with established pathogenicity
// that the consequence rules alone would miss.
var knownPathogenic = []struct {
	position int
	ref      string
	alt      string
}{
	{43091995, "AG", "A"}, // BRCA1 c.68_69delAG
	{32913838, "T", "-"},  // BRCA2 c.5946delT
}

// annotate derives a variant's clinical interpretation from local
// rules. The consequence drives the call; founder variants in the
// BRCA genes override it.
func annotate(v *Variant) annotation {
	a := annotation{
		significance:   "Uncertain_significance",
		classification: "unknown",
		af:             0.001,
	}
	if v.HasAF {
		a.af = v.GnomadAF
	}

	cons := strings.ToLower(v.Consequence)
	switch {
	case containsAny(cons, "frameshift", "stop_gained", "splice_donor", "splice_acceptor"):
		a.classification = "pathogenic"
		a.significance = "Pathogenic"
	case containsAny(cons, "missense", "inframe"):
		if v.Gene == "BRCA1" || v.Gene == "BRCA2" || v.Gene == "TP53" {
			a.classification = "likely_pathogenic"
			a.significance = "Likely_pathogenic"
		} else {
			a.classification = "uncertain"
			a.significance = "Uncertain_significance"
		}
	case containsAny(cons, "synonymous", "intron"):
		a.classification = "benign"
		a.significance = "Benign"
	}

	if v.Gene == "BRCA1" || v.Gene == "BRCA2" {
		for _, known := range knownPathogenic {
			if v.Position == known.position && v.Ref == known.ref && v.Alt == known.alt {
				a.classification = "pathogenic"
				a.significance = "Pathogenic"
				break
			}
		}
	}

	return a
}

// applyAnnotation writes the interpretation back onto the variant and
// assigns its risk level from the ClinVar significance, falling back
// to the rule classification when no significance is known.
func applyAnnotation(v *Variant, a annotation) {
	v.ClinVarSignificance = a.significance
	v.Classification = a.classification
	v.GnomadAF = a.af
	v.HasAF = true

	sig := strings.ToLower(a.significance)
	switch {
	case containsAny(sig, "pathogenic"):
		v.RiskLevel = domain.RiskLabelHigh
	case strings.Contains(sig, "uncertain"):
		v.RiskLevel = domain.RiskLabelVUS
	case containsAny(sig, "benign"):
		v.RiskLevel = domain.RiskLabelPopulation
	default:
		class := strings.ToLower(a.classification)
		switch {
		case strings.Contains(class, "pathogenic"):
			v.RiskLevel = domain.RiskLabelHigh
		case strings.Contains(class, "benign"):
			v.RiskLevel = domain.RiskLabelPopulation
		default:
			v.RiskLevel = domain.RiskLabelVUS
		}
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
