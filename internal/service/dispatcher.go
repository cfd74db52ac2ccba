package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/backend"
	"github.com/vcf-risk-engine/internal/domain"
	"github.com/vcf-risk-engine/internal/vcf"
)

// Dispatcher routes analysis requests to an execution backend and
// always produces a canonical result. Remote failures fall back to
// local execution; when every backend fails it degrades to an error
// result rather than returning an error, so callers always have
// something renderable.
type Dispatcher struct {
	remote           backend.Backend
	local            backend.Backend
	defaultPatientID string
	panelSize        int
	cache            *lru.Cache
	logger           *logrus.Logger
}

// NewDispatcher builds a dispatcher. cacheSize <= 0 disables the
// result cache. panelSize is the number of genes the bundled analyzer
// covers and is only used to fill the degraded result's summary.
func NewDispatcher(remote, local backend.Backend, defaultPatientID string, panelSize, cacheSize int, logger *logrus.Logger) *Dispatcher {
	d := &Dispatcher{
		remote:           remote,
		local:            local,
		defaultPatientID: defaultPatientID,
		panelSize:        panelSize,
		logger:           logger,
	}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err == nil {
			d.cache = c
		} else {
			logger.WithError(err).Warn("Result cache disabled")
		}
	}
	return d
}

// Dispatch runs an analysis request end to end. It never returns an
// error: all failure modes collapse into a degraded result.
func (d *Dispatcher) Dispatch(ctx context.Context, req *domain.AnalysisRequest) *domain.AnalysisResult {
	// The caller's request is a value; defaults go onto a copy.
	effective := *req
	if effective.PatientID == "" {
		effective.PatientID = d.defaultPatientID
	}
	if !effective.Mode.IsValid() {
		effective.Mode = domain.ModeRemote
	}

	var key string
	if data, err := os.ReadFile(effective.FilePath); err != nil {
		d.logger.WithFields(logrus.Fields{
			"patient_id": effective.PatientID,
			"error":      err,
		}).Warn("VCF file unreadable, proceeding anyway")
	} else {
		if check := vcf.Validate(data); !check.OK {
			// Malformed input is a soft warning; the backend may still
			// produce a usable error result for it.
			d.logger.WithFields(logrus.Fields{
				"patient_id": effective.PatientID,
				"reason":     check.Reason,
			}).Warn("VCF validation failed, proceeding anyway")
		}
		key = cacheKey(data, &effective)
	}
	if d.cache != nil && key != "" {
		if cached, ok := d.cache.Get(key); ok {
			d.logger.WithField("patient_id", effective.PatientID).Debug("Result cache hit")
			return cached.(*domain.AnalysisResult)
		}
	}

	raw, err := d.run(ctx, &effective)
	if err != nil {
		d.logger.WithFields(logrus.Fields{
			"patient_id": effective.PatientID,
			"mode":       effective.Mode,
			"error":      err,
		}).Error("All execution backends failed")
		return d.degradedResult(effective.PatientID, err)
	}

	result := Normalize(raw)
	if result.PatientID == "" {
		result.PatientID = effective.PatientID
	}
	if result.AnalysisDate == "" {
		result.AnalysisDate = time.Now().Format(time.RFC3339)
	}

	if d.cache != nil && key != "" {
		d.cache.Add(key, result)
	}
	return result
}

// run executes the request against the configured backends. Remote
// mode falls back to local on any remote error; local mode has no
// fallback.
func (d *Dispatcher) run(ctx context.Context, req *domain.AnalysisRequest) (domain.RawResult, error) {
	if req.Mode == domain.ModeLocal {
		return d.local.Run(ctx, req)
	}

	raw, err := d.remote.Run(ctx, req)
	if err == nil {
		return raw, nil
	}

	d.logger.WithFields(logrus.Fields{
		"patient_id": req.PatientID,
		"error":      err,
	}).Warn("Remote execution failed, falling back to local")

	return d.local.Run(ctx, req)
}

// cacheKey hashes the file content together with the request identity.
// Unreadable files never reach here, so such requests are never cached.
func cacheKey(data []byte, req *domain.AnalysisRequest) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(req.PatientID))
	h.Write([]byte{0})
	h.Write([]byte(req.Mode))
	return hex.EncodeToString(h.Sum(nil))
}

// degradedResult is the canonical "analysis failed" payload: valid
// shape, zeroed counts, and actionable recommendations.
func (d *Dispatcher) degradedResult(patientID string, err error) *domain.AnalysisResult {
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
			TotalGenesAnalyzed:   d.panelSize,
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
