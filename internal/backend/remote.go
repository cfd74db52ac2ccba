package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vcf-risk-engine/internal/domain"
)

// analyzeDirectPath is the synchronous analysis endpoint of the remote
// analysis service.
const analyzeDirectPath = "/api/analyze-direct"

// RemoteBackend uploads the VCF to a remote analysis service and
// returns its JSON response. Calls go through a circuit breaker so a
// flapping service trips fast instead of burning the full timeout on
// every request.
type RemoteBackend struct {
	endpoint   string // default base URL, overridden per request
	maxBytes   int64
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewRemoteBackend creates a remote execution backend.
func NewRemoteBackend(cfg domain.AnalysisConfig, logger *logrus.Logger) *RemoteBackend {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "AnalysisService",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RemoteBackend{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		maxBytes: cfg.RemoteMaxBytes,
		timeout:  cfg.RemoteTimeout,
		httpClient: &http.Client{
			Timeout: cfg.RemoteTimeout,
		},
		breaker: breaker,
		logger:  logger,
	}
}

// Run uploads the request's VCF file to {endpoint}/api/analyze-direct
// and parses the JSON response. The size ceiling is enforced before
// any network I/O.
func (r *RemoteBackend) Run(ctx context.Context, req *domain.AnalysisRequest) (domain.RawResult, error) {
	endpoint := strings.TrimRight(req.Endpoint, "/")
	if endpoint == "" {
		endpoint = r.endpoint
	}
	if endpoint == "" {
		return nil, domain.NewExecutionError(domain.ErrKindInvalidFormat, "remote analysis requires an endpoint URL")
	}

	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewExecutionError(domain.ErrKindNotFound, "VCF file not found: %s", req.FilePath)
		}
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault, "failed to read VCF file: %v", err)
	}

	// Fail fast before spending the upload.
	if int64(len(data)) > r.maxBytes {
		return nil, domain.NewExecutionError(domain.ErrKindInvalidFormat,
			"input size %d exceeds %d byte ceiling", len(data), r.maxBytes)
	}

	body, contentType, err := buildMultipartBody(data, req.PatientID)
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault, "failed to build upload: %v", err)
	}

	r.logger.WithFields(logrus.Fields{
		"endpoint":   endpoint,
		"patient_id": req.PatientID,
		"size_bytes": len(data),
	}).Info("Submitting analysis to remote service")

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.post(ctx, endpoint+analyzeDirectPath, contentType, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewExecutionError(domain.ErrKindBackendFault,
				"remote analysis service unavailable (circuit breaker open)")
		}
		return nil, err
	}

	return result.(domain.RawResult), nil
}

// post performs the upload and decodes the response body.
func (r *RemoteBackend) post(ctx context.Context, url, contentType string, body []byte) (domain.RawResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, domain.NewExecutionError(domain.ErrKindTimeout,
				"remote analysis timed out after %s", r.timeout)
		}
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault, "remote analysis request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault, "failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault,
			"remote analysis returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var raw domain.RawResult
	if err := json.Unmarshal(respBody, &raw); err != nil {
		// A 2xx body that does not parse is fatal at this layer, not
		// something to paper over.
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault,
			"failed to parse analysis response: %v", err)
	}

	return raw, nil
}

// buildMultipartBody assembles the upload: patient_id and mode fields
// plus the raw VCF bytes as a file part named "file".
func buildMultipartBody(data []byte, patientID string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("patient_id", patientID); err != nil {
		return nil, "", fmt.Errorf("failed to write patient_id field: %w", err)
	}
	if err := writer.WriteField("mode", "online"); err != nil {
		return nil, "", fmt.Errorf("failed to write mode field: %w", err)
	}

	part, err := writer.CreateFormFile("file", "sample.vcf")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// isTimeout reports whether err represents an expired deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
