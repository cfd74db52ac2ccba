package domain

// AnalysisRequest describes one analysis run. It is created per user
// action, consumed once by the dispatcher, and never persisted.
type AnalysisRequest struct {
	FilePath  string `json:"file_path"`
	PatientID string `json:"patient_id"`
	Mode      Mode   `json:"mode"`
	Endpoint  string `json:"endpoint,omitempty"` // required when Mode is remote
}

// DefaultPatientID is used when a request carries no patient identifier.
const DefaultPatientID = "P001"

// RawResult is the opaque, untyped JSON tree returned by an execution
// backend. It carries no structural guarantees: keys may be missing,
// values may be wrong-typed or string-encoded JSON. It is produced by
// one backend call and consumed exactly once by the normalizer.
type RawResult map[string]interface{}

// AnalysisResult is the canonical result entity. Every field is total:
// after normalization no field is ever absent, numeric fields default
// to zero and string fields to the empty string. It is built once per
// analysis run and owned by the caller until replaced by the next run.
type AnalysisResult struct {
	PatientID       string           `json:"patient_id"`
	AnalysisDate    string           `json:"analysis_date"` // kept verbatim when unparseable
	OverallRisk     string           `json:"overall_risk"`
	VariantCount    int              `json:"variant_count"`
	PathogenicCount int              `json:"pathogenic_count"`
	VUSCount        int              `json:"vus_count"`
	Variants        []Variant        `json:"variants"`
	Summary         Summary          `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Plots           PlotData         `json:"plots"`
}

// Variant is one classified genetic variant. Position is carried as a
// string because backends disagree on its JSON type and the core never
// does arithmetic on it.
type Variant struct {
	Gene                 string  `json:"gene"`
	Chromosome           string  `json:"chromosome"`
	Position             string  `json:"position"`
	Ref                  string  `json:"ref"`
	Alt                  string  `json:"alt"`
	Consequence          string  `json:"consequence"`
	ClinVarSignificance  string  `json:"clinvar_significance"`
	RiskLevel            string  `json:"risk_level"`
	GnomadAF             float64 `json:"gnomad_af"` // only rendered when > 0
}

// Summary holds the narrative and gene-level aggregates of one result.
// Gene lists keep the backend's insertion order after deduplication.
type Summary struct {
	RiskInterpretation   string   `json:"risk_interpretation"`
	ClinicalImplications []string `json:"clinical_implications"`
	HighRiskGenes        []string `json:"high_risk_genes"`
	GenesWithVariants    []string `json:"genes_with_variants"`
	TotalGenesAnalyzed   int      `json:"total_genes_analyzed"`
}

// Recommendation is one clinical follow-up recommendation.
type Recommendation struct {
	Priority       string `json:"priority"`
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
}

// PlotData carries chart-ready aggregates keyed by display label.
type PlotData struct {
	RiskDistribution map[string]int `json:"risk_distribution"`
	GeneDistribution map[string]int `json:"gene_distribution"`
	VariantTypes     map[string]int `json:"variant_types"`
}
