package backend

import (
	"context"
	"encoding/json"

	"github.com/vcf-risk-engine/internal/analyzer"
	"github.com/vcf-risk-engine/internal/domain"
)

// EngineBackend runs the bundled analysis engine in-process. It serves
// as the local execution path when no external analyzer program is
// configured.
type EngineBackend struct {
	engine *analyzer.Engine
}

// NewEngineBackend wraps an analysis engine as an execution backend.
func NewEngineBackend(engine *analyzer.Engine) *EngineBackend {
	return &EngineBackend{engine: engine}
}

// Run analyzes the request's VCF file. The typed result is round-
// tripped through JSON so this backend feeds the same untyped seam as
// the process and HTTP backends.
func (b *EngineBackend) Run(ctx context.Context, req *domain.AnalysisRequest) (domain.RawResult, error) {
	result := b.engine.Analyze(req.FilePath, req.PatientID)

	data, err := json.Marshal(result)
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault, "failed to encode engine result: %v", err)
	}

	var raw domain.RawResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault, "failed to decode engine result: %v", err)
	}
	return raw, nil
}
