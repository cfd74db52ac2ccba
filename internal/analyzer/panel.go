// Package analyzer implements the bundled breast-cancer risk analysis
// engine: a VCF parser restricted to a fixed gene panel, rule-based
// variant annotation, and result assembly in the canonical schema.
package analyzer

// GeneRegion is a gene's genomic interval on the GRCh37 assembly.
type GeneRegion struct {
	Gene       string
	Chromosome string
	Start      int
	End        int
}

// breastCancerPanel lists the genes screened for hereditary breast
// cancer risk, with GRCh37 coordinates. Order matters: the first
// region containing a variant position wins.
var breastCancerPanel = []GeneRegion{
	{"BRCA1", "17", 43044295, 43125483},
	{"BRCA2", "13", 32889611, 32973805},
	{"PALB2", "16", 23614479, 23652679},
	{"TP53", "17", 7661779, 7687550},
	{"PTEN", "10", 89622870, 89731687},
	{"CHEK2", "22", 28687741, 28741829},
	{"ATM", "11", 108093099, 108239829},
	{"CDH1", "16", 68737224, 68835537},
	{"STK11", "19", 1222203, 1249790},
	{"NF1", "17", 29421945, 29704695},
}

// highRiskGenes are the panel genes whose pathogenic variants drive
// the overall risk to the highest tier.
var highRiskGenes = map[string]bool{
	"BRCA1": true,
	"BRCA2": true,
	"PALB2": true,
	"TP53":  true,
}

// Panel returns the screened gene regions in panel order.
func Panel() []GeneRegion {
	regions := make([]GeneRegion, len(breastCancerPanel))
	copy(regions, breastCancerPanel)
	return regions
}

// PanelSize returns the number of genes in the panel.
func PanelSize() int {
	return len(breastCancerPanel)
}

// GeneAt resolves the panel gene covering a chromosome position, or ""
// when the position falls outside every screened region.
func GeneAt(chromosome string, position int) string {
	for _, region := range breastCancerPanel {
		if chromosome == region.Chromosome && region.Start <= position && position <= region.End {
			return region.Gene
		}
	}
	return ""
}

// IsHighRiskGene reports whether pathogenic variants in the gene place
// the patient in the highest risk tier.
func IsHighRiskGene(gene string) bool {
	return highRiskGenes[gene]
}
