package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcf-risk-engine/internal/analyzer"
	"github.com/vcf-risk-engine/internal/backend"
	"github.com/vcf-risk-engine/internal/config"
	"github.com/vcf-risk-engine/internal/domain"
	"github.com/vcf-risk-engine/internal/service"
	"github.com/vcf-risk-engine/internal/store"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// newTestServer wires the server against the in-process engine for
// both execution paths, so no network or subprocess is involved.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	// Status polling in the job tests would trip the default limiter.
	t.Setenv("GENRISK_SERVER_RATE_LIMIT", "10000")

	manager, err := config.NewManager()
	require.NoError(t, err)

	logger := testLogger()
	engine := backend.NewEngineBackend(analyzer.NewEngine(logger))
	dispatcher := service.NewDispatcher(engine, engine, domain.DefaultPatientID, analyzer.PanelSize(), 0, logger)

	runs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	return NewServer(manager, dispatcher, runs, nil, logger)
}

func multipartUpload(t *testing.T, field, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthAndRoot(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "operational", decodeJSON(t, rec)["status"])

	rec = doRequest(s, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeJSON(t, rec)["status"])
}

func TestGenesEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/genes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, float64(analyzer.PanelSize()), body["count"])
	assert.Contains(t, body["genes"], "BRCA1")
}

func TestAnalyzeRejectsNonVCF(t *testing.T) {
	s := newTestServer(t)

	buf, ct := multipartUpload(t, "file", "sample.txt", "not a vcf", nil)
	rec := doRequest(s, http.MethodPost, "/api/analyze", buf, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeJobLifecycle(t *testing.T) {
	s := newTestServer(t)

	buf, ct := multipartUpload(t, "file", "sample.vcf", testSampleVCF, map[string]string{
		"patient_id": "P042",
		"mode":       "local",
	})
	rec := doRequest(s, http.MethodPost, "/api/analyze", buf, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	jobID, ok := body["job_id"].(string)
	require.True(t, ok)
	assert.Equal(t, "P042", body["patient_id"])

	// Poll until the background job finishes.
	require.Eventually(t, func() bool {
		rec := doRequest(s, http.MethodGet, "/api/analysis/"+jobID+"/status", nil, "")
		var status map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status["status"] == string(JobCompleted)
	}, 5*time.Second, 50*time.Millisecond)

	rec = doRequest(s, http.MethodGet, "/api/analysis/"+jobID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeJSON(t, rec)
	assert.Equal(t, "P042", result["patient_id"])
	assert.Equal(t, domain.RiskLabelHigh, result["overall_risk"])

	rec = doRequest(s, http.MethodGet, "/api/analysis/"+jobID+"/report", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BREAST CANCER GENETIC RISK ASSESSMENT REPORT")
	assert.Contains(t, rec.Body.String(), "Patient ID: P042")

	rec = doRequest(s, http.MethodDelete, "/api/analysis/"+jobID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetAnalysisUnknownJob(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/analysis/no-such-job", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/analysis/no-such-job", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeDirect(t *testing.T) {
	s := newTestServer(t)

	buf, ct := multipartUpload(t, "file", "sample.vcf", testSampleVCF, map[string]string{
		"patient_id": "P007",
		"mode":       "online",
	})
	rec := doRequest(s, http.MethodPost, "/api/analyze-direct", buf, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "P007", result.PatientID)
	assert.Equal(t, domain.RiskLabelHigh, result.OverallRisk)
	assert.Equal(t, 5, result.VariantCount)
}

func TestAnalyzeDirectRejectsOversizedFile(t *testing.T) {
	s := newTestServer(t)

	content := "##fileformat=VCFv4.2\n" + strings.Repeat("x", directUploadLimit)
	buf, ct := multipartUpload(t, "file", "huge.vcf", content, nil)
	rec := doRequest(s, http.MethodPost, "/api/analyze-direct", buf, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")
}

func TestAnalyzeDirectRejectsNonVCFContent(t *testing.T) {
	s := newTestServer(t)

	buf, ct := multipartUpload(t, "file", "sample.vcf", "this is not a vcf\nat all\n", nil)
	rec := doRequest(s, http.MethodPost, "/api/analyze-direct", buf, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid VCF file")
}

// processJob runs outside gin's recovery middleware; a panic must mark
// the job failed instead of crashing the process. A nil dispatcher
// forces the panic.
func TestProcessJobPanicMarksJobFailed(t *testing.T) {
	manager, err := config.NewManager()
	require.NoError(t, err)
	s := NewServer(manager, nil, nil, nil, testLogger())

	job := s.jobs.Create("P001", "sample.vcf", domain.ModeLocal, "", "")
	s.processJob(job.ID, "/nonexistent/sample.vcf", "P001", domain.ModeLocal, "sample.vcf")

	got, ok := s.jobs.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobFailed, got.Status)
	assert.Contains(t, got.Error, "internal error")
}

func TestAnalyzeTest(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/analyze-test", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, "Test analysis completed successfully", body["message"])

	result, ok := body["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TEST001", result["patient_id"])
}

func TestRunHistoryEndpoints(t *testing.T) {
	s := newTestServer(t)

	buf, ct := multipartUpload(t, "file", "sample.vcf", testSampleVCF, nil)
	rec := doRequest(s, http.MethodPost, "/api/analyze-direct", buf, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/runs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = doRequest(s, http.MethodGet, "/api/runs/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	export := decodeJSON(t, rec)
	assert.Equal(t, "1.0", export["version"])
}
