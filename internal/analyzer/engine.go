package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/domain"
)

// variantDisplayLimit caps the variant table embedded in a result;
// counts and distributions still cover every variant found.
const variantDisplayLimit = 100

// Engine is the bundled rule-based analysis engine. It parses a VCF,
// annotates the panel variants, and assembles the canonical result.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates an analysis engine.
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{logger: logger}
}

// Analyze runs the full pipeline for one VCF file. It never returns an
// error: failures produce an error-shaped result in the same schema,
// so callers have exactly one result-handling path.
func (e *Engine) Analyze(vcfPath, patientID string) *domain.AnalysisResult {
	if patientID == "" {
		patientID = domain.DefaultPatientID
	}

	e.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"vcf":        vcfPath,
	}).Info("Starting breast cancer genetic risk analysis")

	variants, err := ParseVCF(vcfPath, e.logger)
	if err != nil {
		e.logger.WithError(err).Error("VCF analysis failed")
		return ErrorResult(patientID, err)
	}

	for i := range variants {
		applyAnnotation(&variants[i], annotate(&variants[i]))
	}

	result := e.assembleResult(patientID, variants)

	e.logger.WithFields(logrus.Fields{
		"patient_id":       patientID,
		"variant_count":    result.VariantCount,
		"pathogenic_count": result.PathogenicCount,
		"vus_count":        result.VUSCount,
		"overall_risk":     result.OverallRisk,
	}).Info("Analysis complete")

	return result
}

func (e *Engine) assembleResult(patientID string, variants []Variant) *domain.AnalysisResult {
	table := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		if len(table) == variantDisplayLimit {
			break
		}
		table = append(table, domain.Variant{
			Gene:                v.Gene,
			Chromosome:          v.Chromosome,
			Position:            strconv.Itoa(v.Position),
			Ref:                 v.Ref,
			Alt:                 v.Alt,
			Consequence:         v.Consequence,
			ClinVarSignificance: v.ClinVarSignificance,
			RiskLevel:           v.RiskLevel,
			GnomadAF:            v.GnomadAF,
		})
	}

	return &domain.AnalysisResult{
		PatientID:       patientID,
		AnalysisDate:    time.Now().Format(time.RFC3339),
		OverallRisk:     overallRisk(variants),
		VariantCount:    len(variants),
		PathogenicCount: countByRisk(variants, domain.RiskLabelHigh),
		VUSCount:        countByRisk(variants, domain.RiskLabelVUS),
		Variants:        table,
		Summary:         buildSummary(variants),
		Recommendations: buildRecommendations(variants),
		Plots:           buildPlots(variants),
	}
}

// ErrorResult is the error-shaped analysis result the engine emits
// when it cannot process the input at all.
func ErrorResult(patientID string, err error) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		PatientID:       patientID,
		AnalysisDate:    time.Now().Format(time.RFC3339),
		OverallRisk:     domain.RiskLabelError,
		VariantCount:    0,
		PathogenicCount: 0,
		VUSCount:        0,
		Variants:        []domain.Variant{},
		Summary: domain.Summary{
			RiskInterpretation:   "Analysis error: " + domain.FirstLine(err),
			ClinicalImplications: []string{"Please check VCF file format"},
			HighRiskGenes:        []string{},
			GenesWithVariants:    []string{},
			TotalGenesAnalyzed:   PanelSize(),
		},
		Recommendations: []domain.Recommendation{
			{
				Priority:       "high",
				Recommendation: "Check VCF file format",
				Rationale:      "Analysis could not process the file",
			},
			{
				Priority:       "medium",
				Recommendation: "Retry with a validated sample file",
				Rationale:      "Confirms whether the failure is input-specific",
			},
		},
		Plots: domain.PlotData{
			RiskDistribution: map[string]int{
				domain.RiskLabelHigh: 0,
				"VUS":                0,
				"Low Risk":           0,
			},
			GeneDistribution: map[string]int{},
			VariantTypes:     map[string]int{},
		},
	}
}

// overallRisk tiers the patient from the variant calls: pathogenic
// variants in a high-risk gene dominate, then other pathogenic calls,
// then VUS, then population baseline.
func overallRisk(variants []Variant) string {
	var hasHigh, hasHighRiskGene, hasModerate, hasVUS bool
	for _, v := range variants {
		switch v.RiskLevel {
		case domain.RiskLabelHigh:
			hasHigh = true
			if IsHighRiskGene(v.Gene) {
				hasHighRiskGene = true
			}
		case domain.RiskLabelModerate:
			hasModerate = true
		case domain.RiskLabelVUS:
			hasVUS = true
		}
	}

	switch {
	case hasHigh && hasHighRiskGene:
		return domain.RiskLabelHigh
	case hasHigh || hasModerate:
		return domain.RiskLabelModerate
	case hasVUS:
		return domain.RiskLabelVUS
	default:
		return domain.RiskLabelPopulation
	}
}

func countByRisk(variants []Variant, riskLevel string) int {
	count := 0
	for _, v := range variants {
		if v.RiskLevel == riskLevel {
			count++
		}
	}
	return count
}

// genesByRisk collects unique gene names, in first-encounter order,
// for variants at the given risk level ("" matches every level).
func genesByRisk(variants []Variant, riskLevel string) []string {
	seen := make(map[string]bool)
	genes := []string{}
	for _, v := range variants {
		if riskLevel != "" && v.RiskLevel != riskLevel {
			continue
		}
		if seen[v.Gene] {
			continue
		}
		seen[v.Gene] = true
		genes = append(genes, v.Gene)
	}
	return genes
}

func buildSummary(variants []Variant) domain.Summary {
	highRisk := genesByRisk(variants, domain.RiskLabelHigh)
	return domain.Summary{
		RiskInterpretation:   riskInterpretation(variants),
		ClinicalImplications: clinicalImplications(variants, highRisk),
		HighRiskGenes:        highRisk,
		GenesWithVariants:    genesByRisk(variants, ""),
		TotalGenesAnalyzed:   PanelSize(),
	}
}

func riskInterpretation(variants []Variant) string {
	highCount := countByRisk(variants, domain.RiskLabelHigh)
	vusCount := countByRisk(variants, domain.RiskLabelVUS)

	switch {
	case highCount > 0:
		genes := genesByRisk(variants, domain.RiskLabelHigh)
		return fmt.Sprintf(
			"Detected %d pathogenic variant(s) in gene(s): %s. This indicates increased hereditary breast cancer risk.",
			highCount, strings.Join(genes, ", "))
	case vusCount > 0:
		return fmt.Sprintf(
			"Detected %d variant(s) of uncertain significance (VUS). Genetic counseling recommended.",
			vusCount)
	default:
		return "No pathogenic variants detected in analyzed breast cancer genes. Risk at population level."
	}
}

func clinicalImplications(variants []Variant, highRiskGenes []string) []string {
	if len(highRiskGenes) == 0 && len(variants) == 0 {
		return []string{
			"No genetic variants detected in breast cancer risk genes",
			"Continue with age-appropriate population screening",
		}
	}

	hasBRCA := false
	for _, gene := range highRiskGenes {
		if gene == "BRCA1" || gene == "BRCA2" {
			hasBRCA = true
			break
		}
	}

	switch {
	case hasBRCA:
		return []string{
			"High lifetime risk of breast cancer (45-85%)",
			"Increased risk of ovarian cancer",
			"Consider enhanced screening with MRI",
			"Referral to genetic counseling recommended",
		}
	case len(highRiskGenes) > 0:
		return []string{
			"Increased breast cancer risk",
			"Consider enhanced surveillance",
			"Genetic counseling recommended",
		}
	default:
		return []string{"Continue age-appropriate screening"}
	}
}

func buildRecommendations(variants []Variant) []domain.Recommendation {
	highCount := countByRisk(variants, domain.RiskLabelHigh)
	vusCount := countByRisk(variants, domain.RiskLabelVUS)

	switch {
	case highCount > 0:
		return []domain.Recommendation{
			{
				Priority:       "high",
				Recommendation: "Referral to genetic counseling",
				Rationale:      "Pathogenic variant(s) detected",
			},
			{
				Priority:       "high",
				Recommendation: "Enhanced breast screening",
				Rationale:      "Increased breast cancer risk",
			},
		}
	case vusCount > 0:
		return []domain.Recommendation{
			{
				Priority:       "medium",
				Recommendation: "Genetic counseling for VUS interpretation",
				Rationale:      "Variant of uncertain significance detected",
			},
		}
	default:
		return []domain.Recommendation{
			{
				Priority:       "low",
				Recommendation: "Continue routine screening",
				Rationale:      "No pathogenic variants detected",
			},
		}
	}
}

func buildPlots(variants []Variant) domain.PlotData {
	lowCount := 0
	for _, v := range variants {
		if v.RiskLevel != domain.RiskLabelHigh && v.RiskLevel != domain.RiskLabelVUS {
			lowCount++
		}
	}

	geneCounts := map[string]int{}
	variantTypes := map[string]int{}
	for _, v := range variants {
		geneCounts[v.Gene]++
		variantTypes[variantTypeLabel(v.Consequence)]++
	}

	return domain.PlotData{
		RiskDistribution: map[string]int{
			domain.RiskLabelHigh: countByRisk(variants, domain.RiskLabelHigh),
			"VUS":                countByRisk(variants, domain.RiskLabelVUS),
			"Low Risk":           lowCount,
		},
		GeneDistribution: geneCounts,
		VariantTypes:     variantTypes,
	}
}

func variantTypeLabel(consequence string) string {
	if consequence == "" {
		return "Unknown"
	}
	cons := strings.ToLower(consequence)
	switch {
	case strings.Contains(cons, "missense"):
		return "Missense"
	case strings.Contains(cons, "frameshift"):
		return "Frameshift"
	case strings.Contains(cons, "splice"):
		return "Splice Site"
	case strings.Contains(cons, "stop"):
		return "Stop Gain"
	default:
		return "Other"
	}
}

// SaveResults writes a result to a JSON file, in the layout the local
// execution backend discovers: {patientID}_analysis_results.json.
func SaveResults(result *domain.AnalysisResult, outputPath string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
