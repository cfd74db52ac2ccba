package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/analyzer"
	"github.com/vcf-risk-engine/internal/domain"
	"github.com/vcf-risk-engine/internal/report"
	"github.com/vcf-risk-engine/internal/store"
	"github.com/vcf-risk-engine/internal/vcf"
)

// testSampleVCF is the fixed sample served by the test endpoint. It
// covers the founder frameshifts plus missense calls in TP53, PALB2,
// and ATM.
const testSampleVCF = `##fileformat=VCFv4.2
##source=TestGenerator
##INFO=<ID=CSQ,Number=.,Type=String,Description="Consequence">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
17	43091995	rs80357914	AG	A	100	PASS	CSQ=frameshift_variant
13	32913838	rs80359600	T	-	100	PASS	CSQ=frameshift_variant
16	23646201	rs180177143	C	T	100	PASS	CSQ=missense_variant
17	7674223	rs11540652	G	A	100	PASS	CSQ=missense_variant
11	108223456	rs1801516	A	G	100	PASS	CSQ=missense_variant
`

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Breast Cancer Genetic Risk Assessment API v" + apiVersion,
		"status":  "operational",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "vcf-risk-engine",
		"version":   apiVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleGenes(c *gin.Context) {
	regions := analyzer.Panel()
	genes := make([]string, 0, len(regions))
	for _, region := range regions {
		genes = append(genes, region.Gene)
	}
	c.JSON(http.StatusOK, gin.H{
		"genes":       genes,
		"count":       len(genes),
		"description": "Hereditary breast cancer risk genes analyzed",
	})
}

// handleAnalyze accepts a VCF upload and starts an asynchronous
// analysis job.
func (s *Server) handleAnalyze(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	if !hasVCFExtension(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be a VCF file (.vcf or .vcf.gz)"})
		return
	}

	patientID := requestValue(c, "patient_id", s.configManager.GetAnalysisConfig().DefaultPatientID)
	mode := requestMode(c)

	tempDir, err := os.MkdirTemp("", "vcf_analysis_")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis setup failed"})
		return
	}
	vcfPath := filepath.Join(tempDir, filepath.Base(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, vcfPath); err != nil {
		os.RemoveAll(tempDir)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis setup failed"})
		return
	}

	job := s.jobs.Create(patientID, fileHeader.Filename, mode, tempDir, vcfPath)

	go s.processJob(job.ID, vcfPath, patientID, mode, fileHeader.Filename)

	c.JSON(http.StatusOK, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"message":    fmt.Sprintf("Analysis started for %s", fileHeader.Filename),
		"patient_id": patientID,
		"created_at": job.CreatedAt.Format(time.RFC3339),
	})
}

// processJob runs a queued analysis to completion and records it. It
// runs on its own goroutine, outside gin's recovery middleware, so a
// panic here has to be caught or it takes the process down with it.
func (s *Server) processJob(jobID, vcfPath, patientID string, mode domain.Mode, filename string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"job_id": jobID,
				"panic":  r,
			}).Error("Analysis job panicked")
			s.jobs.Fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx := context.Background()

	cacheKey := fileCacheKey(vcfPath, patientID, mode)
	if cacheKey != "" {
		if cached := s.results.Get(ctx, cacheKey); cached != nil {
			s.logger.WithField("job_id", jobID).Debug("Served analysis from distributed cache")
			s.jobs.Complete(jobID, cached)
			return
		}
	}

	result := s.dispatcher.Dispatch(ctx, &domain.AnalysisRequest{
		FilePath:  vcfPath,
		PatientID: patientID,
		Mode:      mode,
	})

	s.jobs.Complete(jobID, result)
	if cacheKey != "" {
		s.results.Set(ctx, cacheKey, result)
	}
	s.recordRun(ctx, jobID, filename, mode, result)
}

func (s *Server) recordRun(ctx context.Context, analysisID, filename string, mode domain.Mode, result *domain.AnalysisResult) {
	if s.runs == nil {
		return
	}
	err := s.runs.Save(ctx, &store.Run{
		AnalysisID:   analysisID,
		PatientID:    result.PatientID,
		Filename:     filename,
		Mode:         mode.String(),
		OverallRisk:  result.OverallRisk,
		VariantCount: result.VariantCount,
		Result:       result,
	})
	if err != nil {
		s.logger.WithError(err).WithField("analysis_id", analysisID).Warn("Failed to record analysis run")
	}
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		// Fall back to persisted history for reaped jobs.
		if run := s.lookupRun(c, id); run != nil {
			c.JSON(http.StatusOK, run.Result)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	switch job.Status {
	case JobProcessing:
		c.JSON(http.StatusOK, gin.H{
			"job_id":     job.ID,
			"status":     job.Status,
			"message":    "Analysis in progress",
			"patient_id": job.PatientID,
			"created_at": job.CreatedAt.Format(time.RFC3339),
			"updated_at": job.UpdatedAt.Format(time.RFC3339),
		})
	case JobFailed:
		c.JSON(http.StatusOK, gin.H{
			"job_id":     job.ID,
			"status":     job.Status,
			"error":      job.Error,
			"patient_id": job.PatientID,
			"created_at": job.CreatedAt.Format(time.RFC3339),
			"updated_at": job.UpdatedAt.Format(time.RFC3339),
		})
	default:
		c.JSON(http.StatusOK, job.Result)
	}
}

func (s *Server) handleGetAnalysisStatus(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"patient_id": job.PatientID,
		"filename":   job.Filename,
		"mode":       job.Mode,
		"created_at": job.CreatedAt.Format(time.RFC3339),
		"updated_at": job.UpdatedAt.Format(time.RFC3339),
		"error":      job.Error,
	})
}

// handleGetAnalysisReport renders the plain-text clinical report for a
// completed job.
func (s *Server) handleGetAnalysisReport(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		if run := s.lookupRun(c, id); run != nil {
			c.String(http.StatusOK, report.RenderText(run.Result))
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if job.Status != JobCompleted || job.Result == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Analysis not completed"})
		return
	}
	c.String(http.StatusOK, report.RenderText(job.Result))
}

func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	id := c.Param("id")
	if !s.jobs.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "job_id": id})
}

// directUploadLimit caps synchronous uploads; asynchronous jobs are
// bounded by the configured server upload limit instead.
const directUploadLimit = 10 * 1024 * 1024

// handleAnalyzeDirect analyzes an upload synchronously with the
// bundled engine and returns the result body. This endpoint is also
// the contract the remote execution backend posts to, so malformed
// input is rejected up front rather than analyzed into an error result.
func (s *Server) handleAnalyzeDirect(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	if !hasVCFExtension(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be a VCF file"})
		return
	}
	if fileHeader.Size > directUploadLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large (max 10MB)"})
		return
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis setup failed"})
		return
	}
	if check := vcf.Validate(data); !check.OK {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid VCF file: " + check.Reason})
		return
	}

	patientID := requestValue(c, "patient_id", s.configManager.GetAnalysisConfig().DefaultPatientID)

	result, err := s.analyzeBytes(data, patientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Analysis failed: %v", err)})
		return
	}

	s.recordRun(c.Request.Context(), uuid.New().String(), fileHeader.Filename, domain.ModeLocal, result)
	c.JSON(http.StatusOK, result)
}

// handleAnalyzeTest runs the bundled engine on a fixed sample, for
// connectivity checks from clients.
func (s *Server) handleAnalyzeTest(c *gin.Context) {
	tempFile, err := os.CreateTemp("", "test_sample_*.vcf")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Test analysis failed"})
		return
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(testSampleVCF); err != nil {
		tempFile.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Test analysis failed"})
		return
	}
	tempFile.Close()

	engine := analyzer.NewEngine(s.logger)
	result := engine.Analyze(tempFile.Name(), "TEST001")

	c.JSON(http.StatusOK, gin.H{
		"result":  result,
		"message": "Test analysis completed successfully",
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run history is disabled"})
		return
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	runs, err := s.runs.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list analysis runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}
	count, err := s.runs.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":   runs,
		"count":  count,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleExportRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run history is disabled"})
		return
	}
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="run_history.json"`)
	if err := s.runs.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Failed to export run history")
	}
}

// readUpload reads a multipart upload into memory. Callers enforce the
// size cap before this runs.
func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// analyzeBytes writes VCF content to a temp file and runs the bundled
// engine on it.
func (s *Server) analyzeBytes(data []byte, patientID string) (*domain.AnalysisResult, error) {
	tempFile, err := os.CreateTemp("", "vcf_direct_*.vcf")
	if err != nil {
		return nil, err
	}
	tempPath := tempFile.Name()
	tempFile.Close()
	defer os.Remove(tempPath)

	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return nil, err
	}

	engine := analyzer.NewEngine(s.logger)
	return engine.Analyze(tempPath, patientID), nil
}

func (s *Server) lookupRun(c *gin.Context, analysisID string) *store.Run {
	if s.runs == nil {
		return nil
	}
	run, err := s.runs.Get(c.Request.Context(), analysisID)
	if err != nil {
		s.logger.WithError(err).WithField("analysis_id", analysisID).Warn("Run lookup failed")
		return nil
	}
	if run == nil || run.Result == nil {
		return nil
	}
	return run
}

// requestValue reads a parameter from the query string first, then the
// form body, then falls back to a default.
func requestValue(c *gin.Context, key, fallback string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	if v := c.PostForm(key); v != "" {
		return v
	}
	return fallback
}

// requestMode maps the client's mode parameter onto an execution mode.
// "online" selects the remote path; anything else runs locally.
func requestMode(c *gin.Context) domain.Mode {
	mode := strings.ToLower(requestValue(c, "mode", ""))
	switch mode {
	case "online", string(domain.ModeRemote):
		return domain.ModeRemote
	default:
		return domain.ModeLocal
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func hasVCFExtension(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".vcf") || strings.HasSuffix(lower, ".vcf.gz")
}

// fileCacheKey hashes the upload content and request identity for the
// distributed cache. Unreadable files yield no key.
func fileCacheKey(path, patientID string, mode domain.Mode) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(patientID))
	h.Write([]byte{0})
	h.Write([]byte(mode))
	return hex.EncodeToString(h.Sum(nil))
}
