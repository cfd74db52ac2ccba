package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcf-risk-engine/internal/domain"
)

func TestNormalizeGarbageInputs(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
	}{
		{"nil", nil},
		{"empty object", map[string]interface{}{}},
		{"string", "not a result"},
		{"number", 42.0},
		{"list", []interface{}{1, 2, 3}},
		{"wrong field types", map[string]interface{}{
			"patient_id":      []interface{}{"nested"},
			"variant_count":   "not a number",
			"variants":        "not a list",
			"summary":         17.0,
			"recommendations": map[string]interface{}{"oops": true},
			"plots":           nil,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.raw)
			require.NotNil(t, result)

			assert.NotNil(t, result.Variants)
			assert.NotNil(t, result.Recommendations)
			assert.NotNil(t, result.Summary.ClinicalImplications)
			assert.NotNil(t, result.Summary.HighRiskGenes)
			assert.NotNil(t, result.Summary.GenesWithVariants)
			assert.NotNil(t, result.Plots.RiskDistribution)
			assert.NotNil(t, result.Plots.GeneDistribution)
			assert.NotNil(t, result.Plots.VariantTypes)
			assert.GreaterOrEqual(t, result.VariantCount, 0)
			assert.GreaterOrEqual(t, result.PathogenicCount, 0)
			assert.GreaterOrEqual(t, result.VUSCount, 0)
		})
	}
}

// The backends hand in domain.RawResult, not a bare map; its fields
// must survive normalization, not default away.
func TestNormalizeRawResultType(t *testing.T) {
	result := Normalize(domain.RawResult{
		"patient_id":    "P007",
		"overall_risk":  domain.RiskLabelHigh,
		"variant_count": 5.0,
		"summary": map[string]interface{}{
			"total_genes_analyzed": 10.0,
		},
	})

	assert.Equal(t, "P007", result.PatientID)
	assert.Equal(t, domain.RiskLabelHigh, result.OverallRisk)
	assert.Equal(t, 5, result.VariantCount)
	assert.Equal(t, 10, result.Summary.TotalGenesAnalyzed)
}

func TestNormalizeScalarCoercion(t *testing.T) {
	result := Normalize(map[string]interface{}{
		"patient_id":       12345.0,
		"overall_risk":     true,
		"variant_count":    "7",
		"pathogenic_count": -3.0,
		"vus_count":        2.9,
		"variants": []interface{}{
			map[string]interface{}{
				"gene":      "BRCA1",
				"position":  43091995.0,
				"gnomad_af": "0.0001",
			},
		},
	})

	assert.Equal(t, "12345", result.PatientID)
	assert.Equal(t, "true", result.OverallRisk)
	assert.Equal(t, 7, result.VariantCount)
	assert.Equal(t, 0, result.PathogenicCount, "negative counts clamp to zero")
	assert.Equal(t, 2, result.VUSCount)

	require.Len(t, result.Variants, 1)
	assert.Equal(t, "BRCA1", result.Variants[0].Gene)
	assert.Equal(t, "43091995", result.Variants[0].Position,
		"large positions must not be rendered in exponent form")
	assert.Equal(t, 0.0001, result.Variants[0].GnomadAF)
}

func TestNormalizeListCoercion(t *testing.T) {
	result := Normalize(map[string]interface{}{
		"recommendations": []interface{}{
			map[string]interface{}{"priority": "high", "recommendation": "refer"},
			`{"priority": "medium", "recommendation": "screen"}`,
			"just a string",
			99.0,
		},
	})

	require.Len(t, result.Recommendations, 4)
	assert.Equal(t, "high", result.Recommendations[0].Priority)
	assert.Equal(t, "medium", result.Recommendations[1].Priority, "JSON strings are parsed into objects")
	assert.Equal(t, "", result.Recommendations[2].Priority, "bare strings wrap with empty fields")
	assert.Equal(t, "", result.Recommendations[3].Priority)
}

func TestNormalizeGeneSetsDeduplicate(t *testing.T) {
	result := Normalize(map[string]interface{}{
		"summary": map[string]interface{}{
			"high_risk_genes":     []interface{}{"BRCA1", "BRCA2", "BRCA1", "TP53", "BRCA2"},
			"genes_with_variants": []interface{}{"CHEK2", "CHEK2"},
		},
	})

	assert.Equal(t, []string{"BRCA1", "BRCA2", "TP53"}, result.Summary.HighRiskGenes,
		"duplicates are dropped and first-seen order is kept")
	assert.Equal(t, []string{"CHEK2"}, result.Summary.GenesWithVariants)
}

func TestNormalizePlots(t *testing.T) {
	result := Normalize(map[string]interface{}{
		"plots": map[string]interface{}{
			"risk_distribution": map[string]interface{}{
				"High Risk": 3.0,
				"VUS":       "2",
				"bogus":     []interface{}{},
			},
		},
	})

	assert.Equal(t, 3, result.Plots.RiskDistribution["High Risk"])
	assert.Equal(t, 2, result.Plots.RiskDistribution["VUS"])
	assert.Equal(t, 0, result.Plots.RiskDistribution["bogus"])
}

// Normalizing the JSON round-trip of an already-canonical result must
// reproduce it exactly.
func TestNormalizeIdempotent(t *testing.T) {
	canonical := &domain.AnalysisResult{
		PatientID:       "P042",
		AnalysisDate:    "2026-08-01T10:00:00Z",
		OverallRisk:     domain.RiskLabelHigh,
		VariantCount:    2,
		PathogenicCount: 1,
		VUSCount:        1,
		Variants: []domain.Variant{
			{
				Gene:                "BRCA1",
				Chromosome:          "17",
				Position:            "43091995",
				Ref:                 "AG",
				Alt:                 "A",
				Consequence:         "frameshift_variant",
				ClinVarSignificance: "Pathogenic",
				RiskLevel:           domain.RiskLabelHigh,
				GnomadAF:            0.00001,
			},
			{
				Gene:                "ATM",
				Chromosome:          "11",
				Position:            "108236235",
				Ref:                 "C",
				Alt:                 "T",
				Consequence:         "missense_variant",
				ClinVarSignificance: "Uncertain significance",
				RiskLevel:           domain.RiskLabelVUS,
				GnomadAF:            0.002,
			},
		},
		Summary: domain.Summary{
			RiskInterpretation:   "High risk variants detected",
			ClinicalImplications: []string{"Enhanced screening recommended"},
			HighRiskGenes:        []string{"BRCA1"},
			GenesWithVariants:    []string{"BRCA1", "ATM"},
			TotalGenesAnalyzed:   10,
		},
		Recommendations: []domain.Recommendation{
			{Priority: "high", Recommendation: "Genetic counseling referral", Rationale: "Pathogenic BRCA1 variant"},
		},
		Plots: domain.PlotData{
			RiskDistribution: map[string]int{domain.RiskLabelHigh: 1, domain.RiskLabelVUS: 1},
			GeneDistribution: map[string]int{"BRCA1": 1, "ATM": 1},
			VariantTypes:     map[string]int{"frameshift_variant": 1, "missense_variant": 1},
		},
	}

	data, err := json.Marshal(canonical)
	require.NoError(t, err)

	var raw interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, canonical, Normalize(raw))
}
