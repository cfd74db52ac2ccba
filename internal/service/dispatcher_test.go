package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcf-risk-engine/internal/domain"
)

type stubBackend struct {
	result  domain.RawResult
	err     error
	calls   int
	lastReq domain.AnalysisRequest
}

func (s *stubBackend) Run(ctx context.Context, req *domain.AnalysisRequest) (domain.RawResult, error) {
	s.calls++
	s.lastReq = *req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func dispatcherLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func writeSampleVCF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.vcf")
	content := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\n17\t43091995\t.\tAG\tA\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func okResult(patientID string) domain.RawResult {
	return domain.RawResult{
		"patient_id":   patientID,
		"overall_risk": domain.RiskLabelHigh,
	}
}

func TestDispatchRemoteSuccess(t *testing.T) {
	remote := &stubBackend{result: okResult("P007")}
	local := &stubBackend{err: domain.NewExecutionError(domain.ErrKindBackendFault, "should not run")}
	d := NewDispatcher(remote, local, "P001", 10, 0, dispatcherLogger())

	result := d.Dispatch(context.Background(), &domain.AnalysisRequest{
		FilePath:  writeSampleVCF(t),
		PatientID: "P007",
		Mode:      domain.ModeRemote,
	})

	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 0, local.calls)
	assert.Equal(t, "P007", result.PatientID)
	assert.Equal(t, domain.RiskLabelHigh, result.OverallRisk)
}

// A failing remote backend falls back to local exactly once.
func TestDispatchRemoteFallsBackToLocal(t *testing.T) {
	remote := &stubBackend{err: domain.NewExecutionError(domain.ErrKindTimeout, "remote timed out")}
	local := &stubBackend{result: okResult("P007")}
	d := NewDispatcher(remote, local, "P001", 10, 0, dispatcherLogger())

	result := d.Dispatch(context.Background(), &domain.AnalysisRequest{
		FilePath:  writeSampleVCF(t),
		PatientID: "P007",
		Mode:      domain.ModeRemote,
	})

	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, domain.RiskLabelHigh, result.OverallRisk)
}

func TestDispatchLocalModeSkipsRemote(t *testing.T) {
	remote := &stubBackend{result: okResult("remote")}
	local := &stubBackend{result: okResult("local")}
	d := NewDispatcher(remote, local, "P001", 10, 0, dispatcherLogger())

	result := d.Dispatch(context.Background(), &domain.AnalysisRequest{
		FilePath: writeSampleVCF(t),
		Mode:     domain.ModeLocal,
	})

	assert.Equal(t, 0, remote.calls)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, "local", result.PatientID)
}

func TestDispatchTotalFailureDegrades(t *testing.T) {
	remote := &stubBackend{err: domain.NewExecutionError(domain.ErrKindTimeout, "remote timed out")}
	local := &stubBackend{err: domain.NewExecutionError(domain.ErrKindNotFound, "analyzer program missing\nextra detail")}
	d := NewDispatcher(remote, local, "P001", 10, 0, dispatcherLogger())

	result := d.Dispatch(context.Background(), &domain.AnalysisRequest{
		FilePath:  writeSampleVCF(t),
		PatientID: "P007",
		Mode:      domain.ModeRemote,
	})

	require.NotNil(t, result)
	assert.Equal(t, domain.RiskLabelError, result.OverallRisk)
	assert.Equal(t, "P007", result.PatientID)
	assert.Equal(t, 0, result.VariantCount)
	assert.Equal(t, 0, result.PathogenicCount)
	assert.GreaterOrEqual(t, len(result.Recommendations), 2)
	assert.Contains(t, result.Summary.RiskInterpretation, "Analysis error:")
	assert.NotContains(t, result.Summary.RiskInterpretation, "extra detail",
		"only the first line of the failure is surfaced")
	assert.Equal(t, 10, result.Summary.TotalGenesAnalyzed)

	// The degraded result must remain structurally valid.
	assert.NotNil(t, result.Variants)
	assert.NotNil(t, result.Summary.HighRiskGenes)
	assert.NotNil(t, result.Plots.RiskDistribution)
}

func TestDispatchDefaultsPatientIDAndMode(t *testing.T) {
	remote := &stubBackend{result: domain.RawResult{"overall_risk": "Low"}}
	local := &stubBackend{}
	d := NewDispatcher(remote, local, "P001", 10, 0, dispatcherLogger())

	req := &domain.AnalysisRequest{FilePath: writeSampleVCF(t)}
	result := d.Dispatch(context.Background(), req)

	// The backend sees the defaults, the caller's request stays as it
	// was handed in.
	assert.Equal(t, "P001", remote.lastReq.PatientID)
	assert.Equal(t, domain.ModeRemote, remote.lastReq.Mode)
	assert.Empty(t, req.PatientID)
	assert.Empty(t, req.Mode)

	assert.Equal(t, "P001", result.PatientID, "backend omitted patient_id, request value fills in")
	assert.NotEmpty(t, result.AnalysisDate)
}

func TestDispatchCachesByContentAndIdentity(t *testing.T) {
	remote := &stubBackend{result: okResult("P007")}
	local := &stubBackend{}
	d := NewDispatcher(remote, local, "P001", 10, 8, dispatcherLogger())

	path := writeSampleVCF(t)
	req := &domain.AnalysisRequest{FilePath: path, PatientID: "P007", Mode: domain.ModeRemote}

	first := d.Dispatch(context.Background(), req)
	second := d.Dispatch(context.Background(), req)

	assert.Equal(t, 1, remote.calls, "second dispatch must be served from cache")
	assert.Same(t, first, second)

	// A different patient is a different cache entry.
	d.Dispatch(context.Background(), &domain.AnalysisRequest{
		FilePath: path, PatientID: "P008", Mode: domain.ModeRemote,
	})
	assert.Equal(t, 2, remote.calls)
}
