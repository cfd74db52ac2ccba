package analyzer

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Variant is a single variant call located inside a panel gene.
// Annotation fields are filled in by the classification pass.
type Variant struct {
	Chromosome          string
	Position            int
	Ref                 string
	Alt                 string
	Gene                string
	RSID                string
	Consequence         string
	ClinVarSignificance string
	GnomadAF            float64
	HasAF               bool
	Classification      string
	RiskLevel           string
}

// ParseVCF reads a VCF file (plain or gzip) and returns the variants
// that fall inside the breast-cancer gene panel, in file order.
// Multi-allelic records are split into one variant per ALT allele.
// Malformed data lines are skipped, not fatal.
func ParseVCF(path string, logger *logrus.Logger) ([]Variant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open VCF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read gzip VCF: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	var variants []Variant
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 5 {
			logger.WithFields(logrus.Fields{
				"line":    lineNumber,
				"columns": len(parts),
			}).Warn("Skipping short VCF data line")
			continue
		}

		chrom := normalizeChromosome(parts[0])
		pos, err := strconv.Atoi(parts[1])
		if err != nil {
			logger.WithFields(logrus.Fields{
				"line":     lineNumber,
				"position": parts[1],
			}).Warn("Skipping VCF line with invalid position")
			continue
		}

		gene := GeneAt(chrom, pos)
		if gene == "" {
			continue
		}

		variantID := parts[2]
		ref := parts[3]

		var info string
		if len(parts) > 7 {
			info = parts[7]
		}
		consequence, clnsig, af, hasAF := parseInfo(info)

		for _, alt := range strings.Split(parts[4], ",") {
			v := Variant{
				Chromosome:          chrom,
				Position:            pos,
				Ref:                 ref,
				Alt:                 alt,
				Gene:                gene,
				Consequence:         consequence,
				ClinVarSignificance: clnsig,
				GnomadAF:            af,
				HasAF:               hasAF,
			}
			if strings.HasPrefix(variantID, "rs") {
				v.RSID = variantID
			}
			variants = append(variants, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan VCF file: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"path":     path,
		"variants": len(variants),
	}).Info("Parsed VCF file")

	return variants, nil
}

// normalizeChromosome strips "chr" prefixes in any casing and any
// trailing ":"-delimited markers.
func normalizeChromosome(chrom string) string {
	lower := strings.ToLower(chrom)
	if strings.HasPrefix(lower, "chr") {
		chrom = chrom[3:]
	}
	if idx := strings.IndexByte(chrom, ':'); idx >= 0 {
		chrom = chrom[:idx]
	}
	return chrom
}

// parseInfo extracts the consequence, ClinVar significance, and allele
// frequency from a VCF INFO column.
func parseInfo(info string) (consequence, clnsig string, af float64, hasAF bool) {
	if info == "" {
		return "", "", 0, false
	}
	for _, field := range strings.Split(info, ";") {
		key, value, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		switch {
		case key == "CSQ" || key == "Consequence":
			// VEP-style annotations pack sub-fields with '|'.
			if idx := strings.IndexByte(value, '|'); idx >= 0 {
				consequence = value[:idx]
			} else {
				consequence = value
			}
		case key == "CLNSIG" || strings.Contains(strings.ToLower(key), "clinvar"):
			clnsig = value
		case key == "AF" || key == "gnomad_af":
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				af = parsed
				hasAF = true
			}
		}
	}
	return consequence, clnsig, af, hasAF
}
