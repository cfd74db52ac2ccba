// Package service contains the analysis orchestration logic: routing a
// request to an execution backend with fallback, normalizing the
// backend's untyped JSON into the canonical result schema, and
// classifying free-form labels into discrete tiers.
package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vcf-risk-engine/internal/domain"
)

// Normalize converts an arbitrary raw result tree into a canonical
// AnalysisResult. It is total: for any input, including nil and
// garbage, it returns a structurally valid result with every field
// defaulted. This is the single seam that absorbs backend schema
// drift; nothing downstream ever sees an unexpected shape.
func Normalize(raw interface{}) *domain.AnalysisResult {
	obj := asObject(raw)

	return &domain.AnalysisResult{
		PatientID:       asString(obj["patient_id"]),
		AnalysisDate:    asString(obj["analysis_date"]),
		OverallRisk:     asString(obj["overall_risk"]),
		VariantCount:    asCount(obj["variant_count"]),
		PathogenicCount: asCount(obj["pathogenic_count"]),
		VUSCount:        asCount(obj["vus_count"]),
		Variants:        normalizeVariants(obj["variants"]),
		Summary:         normalizeSummary(obj["summary"]),
		Recommendations: normalizeRecommendations(obj["recommendations"]),
		Plots:           normalizePlots(obj["plots"]),
	}
}

// normalizeVariants keeps the backend's original variant order; it is
// never re-sorted here.
func normalizeVariants(v interface{}) []domain.Variant {
	items := asObjectList(v)
	variants := make([]domain.Variant, 0, len(items))
	for _, item := range items {
		variants = append(variants, domain.Variant{
			Gene:                asString(item["gene"]),
			Chromosome:          asString(item["chromosome"]),
			Position:            asString(item["position"]),
			Ref:                 asString(item["ref"]),
			Alt:                 asString(item["alt"]),
			Consequence:         asString(item["consequence"]),
			ClinVarSignificance: asString(item["clinvar_significance"]),
			RiskLevel:           asString(item["risk_level"]),
			GnomadAF:            asFloat(item["gnomad_af"]),
		})
	}
	return variants
}

func normalizeSummary(v interface{}) domain.Summary {
	obj := asObject(v)
	return domain.Summary{
		RiskInterpretation:   asString(obj["risk_interpretation"]),
		ClinicalImplications: asStringList(obj["clinical_implications"]),
		HighRiskGenes:        asStringSet(obj["high_risk_genes"]),
		GenesWithVariants:    asStringSet(obj["genes_with_variants"]),
		TotalGenesAnalyzed:   asCount(obj["total_genes_analyzed"]),
	}
}

func normalizeRecommendations(v interface{}) []domain.Recommendation {
	items := asObjectList(v)
	recs := make([]domain.Recommendation, 0, len(items))
	for _, item := range items {
		recs = append(recs, domain.Recommendation{
			Priority:       asString(item["priority"]),
			Recommendation: asString(item["recommendation"]),
			Rationale:      asString(item["rationale"]),
		})
	}
	return recs
}

func normalizePlots(v interface{}) domain.PlotData {
	obj := asObject(v)
	return domain.PlotData{
		RiskDistribution: asCountMap(obj["risk_distribution"]),
		GeneDistribution: asCountMap(obj["gene_distribution"]),
		VariantTypes:     asCountMap(obj["variant_types"]),
	}
}

// asObject keeps object-like values and turns everything else,
// including nil, into an empty record. RawResult is the object type
// the backends hand in at the top level; nested objects arrive as
// plain maps from the JSON decoder.
func asObject(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case domain.RawResult:
		return m
	}
	return map[string]interface{}{}
}

// asObjectList applies the list coercion rules: non-lists become
// empty; object elements pass through; string elements are JSON-parsed
// and kept when they decode to an object, otherwise wrapped as
// {"value": s}; any other element is stringified and wrapped.
func asObjectList(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}

	out := make([]map[string]interface{}, 0, len(list))
	for _, el := range list {
		switch e := el.(type) {
		case map[string]interface{}:
			out = append(out, e)
		case string:
			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(e), &parsed); err == nil {
				out = append(out, parsed)
			} else {
				out = append(out, map[string]interface{}{"value": e})
			}
		default:
			out = append(out, map[string]interface{}{"value": asString(el)})
		}
	}
	return out
}

// asString coerces any scalar into a string. Missing and null values
// become the empty string; non-string scalars are stringified.
func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		// JSON numbers arrive as float64; render integral values
		// without an exponent so positions survive stringification.
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// asCount coerces to a non-negative integer, parsing numeric strings
// and defaulting everything else to zero.
func asCount(v interface{}) int {
	n := asInt(v)
	if n < 0 {
		return 0
	}
	return n
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}

func asFloat(v interface{}) float64 {
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0.0
		}
		return f
	case int:
		return float64(f)
	case int64:
		return float64(f)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err == nil {
			return parsed
		}
		return 0.0
	default:
		return 0.0
	}
}

// asStringList stringifies every element of a list; non-lists become empty.
func asStringList(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		out = append(out, asString(el))
	}
	return out
}

// asStringSet stringifies list elements and deduplicates them, keeping
// first-occurrence order.
func asStringSet(v interface{}) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, s := range asStringList(v) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// asCountMap coerces an object into a label→count mapping.
func asCountMap(v interface{}) map[string]int {
	obj, ok := v.(map[string]interface{})
	out := map[string]int{}
	if !ok {
		return out
	}
	for k, val := range obj {
		out[k] = asInt(val)
	}
	return out
}
