// Package backend provides the execution backends that run a genetic
// risk analysis for one request: a remote HTTP analysis service and a
// local external analyzer process. Both return the same untyped JSON
// result tree; shaping it into the canonical schema is the
// normalizer's job, not the backend's.
package backend

import (
	"context"

	"github.com/vcf-risk-engine/internal/domain"
)

// Backend runs one analysis request and returns the raw, untyped
// result tree. Failures are reported as *domain.ExecutionError so the
// dispatcher can match on the failure kind.
type Backend interface {
	Run(ctx context.Context, req *domain.AnalysisRequest) (domain.RawResult, error)
}
