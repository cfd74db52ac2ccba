package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcf-risk-engine/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(analysisID, patientID string) *Run {
	return &Run{
		AnalysisID:   analysisID,
		PatientID:    patientID,
		Filename:     "sample.vcf",
		Mode:         "local",
		OverallRisk:  domain.RiskLabelHigh,
		VariantCount: 5,
		Result: &domain.AnalysisResult{
			PatientID:    patientID,
			OverallRisk:  domain.RiskLabelHigh,
			VariantCount: 5,
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("a1", "P001")
	require.NoError(t, s.Save(ctx, run))
	assert.NotZero(t, run.ID)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "P001", got.PatientID)
	assert.Equal(t, domain.RiskLabelHigh, got.OverallRisk)
	require.NotNil(t, got.Result)
	assert.Equal(t, 5, got.Result.VariantCount)
}

func TestGetMissingRun(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveReplacesExistingAnalysisID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRun("a1", "P001")))

	updated := sampleRun("a1", "P002")
	updated.OverallRisk = domain.RiskLabelPopulation
	require.NoError(t, s.Save(ctx, updated))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "P002", got.PatientID)
	assert.Equal(t, domain.RiskLabelPopulation, got.OverallRisk)
}

func TestListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, s.Save(ctx, sampleRun(id, "P001")))
	}

	runs, err := s.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRun("a1", "P001")))
	require.NoError(t, s.Delete(ctx, "a1"))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExportJSON(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRun("a1", "P001")))
	require.NoError(t, s.Save(ctx, sampleRun("a2", "P002")))

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(ctx, &buf))

	var export RunExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 2, export.Count)
	assert.Len(t, export.Runs, 2)
}
