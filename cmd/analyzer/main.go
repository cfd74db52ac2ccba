// Command analyzer runs the breast-cancer risk analysis on a VCF file
// from the command line. It writes the result JSON to
// <patientID>_analysis_results.json in the working directory, which is
// the layout the server's process-execution backend discovers.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/analyzer"
	"github.com/vcf-risk-engine/internal/domain"
	"github.com/vcf-risk-engine/internal/report"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: analyzer <vcf_file> [patient_id]")
		fmt.Fprintln(os.Stderr, "\nExample: analyzer sample.vcf P001")
		os.Exit(2)
	}

	vcfPath := os.Args[1]
	patientID := domain.DefaultPatientID
	if len(os.Args) > 2 {
		patientID = os.Args[2]
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("GENRISK_LOGGING_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if _, err := os.Stat(vcfPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: VCF file not found: %s\n", vcfPath)
		os.Exit(1)
	}

	engine := analyzer.NewEngine(logger)
	result := engine.Analyze(vcfPath, patientID)

	outputPath := fmt.Sprintf("%s_analysis_results.json", patientID)
	if err := analyzer.SaveResults(result, outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save results: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Results saved to: %s\n\n", outputPath)
	fmt.Print(report.RenderText(result))

	if result.OverallRisk == domain.RiskLabelError {
		os.Exit(1)
	}
}
