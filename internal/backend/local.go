package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/domain"
)

// stderrTruncateLen bounds how much of the analyzer's error stream is
// carried into the failure message.
const stderrTruncateLen = 100

// LocalBackend runs the external analyzer program and collects its
// JSON result from a result file or from standard output.
type LocalBackend struct {
	projectRoot string
	interpreter string // optional; program is executed directly when empty
	scriptPath  string // relative to projectRoot
	timeout     time.Duration
	logger      *logrus.Logger
}

// NewLocalBackend creates a local execution backend.
func NewLocalBackend(cfg domain.AnalysisConfig, logger *logrus.Logger) *LocalBackend {
	return &LocalBackend{
		projectRoot: cfg.ProjectRoot,
		interpreter: cfg.Interpreter,
		scriptPath:  cfg.ScriptPath,
		timeout:     cfg.LocalTimeout,
		logger:      logger,
	}
}

// Run invokes the analyzer as `<program> <filePath> <patientId>` with
// the project root as working directory, then discovers its JSON
// result. A configurable deadline bounds the process; zero disables it.
func (l *LocalBackend) Run(ctx context.Context, req *domain.AnalysisRequest) (domain.RawResult, error) {
	script := filepath.Join(l.projectRoot, l.scriptPath)
	if _, err := os.Stat(script); err != nil {
		return nil, domain.NewExecutionError(domain.ErrKindNotFound, "analyzer program not found: %s", script)
	}

	runCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if l.interpreter != "" {
		cmd = exec.CommandContext(runCtx, l.interpreter, script, req.FilePath, req.PatientID)
	} else {
		cmd = exec.CommandContext(runCtx, script, req.FilePath, req.PatientID)
	}
	cmd.Dir = l.projectRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.logger.WithFields(logrus.Fields{
		"program":    script,
		"vcf":        req.FilePath,
		"patient_id": req.PatientID,
	}).Info("Running local analyzer")

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewExecutionError(domain.ErrKindTimeout,
				"local analyzer timed out after %s", l.timeout)
		}

		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = strings.TrimSpace(stdout.String())
		}
		return nil, domain.NewExecutionError(domain.ErrKindBackendFault,
			"analyzer exited with error: %s", truncate(diag, stderrTruncateLen))
	}

	raw, err := l.collectResult(req.PatientID, stdout.String())
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// collectResult tries the known result locations in order: the result
// file under the project root, the same file in the current directory,
// and finally a JSON object embedded in the analyzer's stdout.
func (l *LocalBackend) collectResult(patientID, stdout string) (domain.RawResult, error) {
	resultName := fmt.Sprintf("%s_analysis_results.json", patientID)

	for _, path := range []string{filepath.Join(l.projectRoot, resultName), resultName} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var raw domain.RawResult
		if err := json.Unmarshal(data, &raw); err != nil {
			l.logger.WithField("path", path).WithError(err).Warn("Result file exists but does not parse")
			continue
		}
		return raw, nil
	}

	if obj := firstJSONObject(stdout); obj != "" {
		var raw domain.RawResult
		if err := json.Unmarshal([]byte(obj), &raw); err == nil {
			return raw, nil
		}
	}

	return nil, domain.NewExecutionError(domain.ErrKindBackendFault,
		"analyzer produced no discoverable result (looked for %s and stdout JSON)", resultName)
}

// firstJSONObject extracts the first balanced top-level {...} object
// found in s, honoring string literals and escapes. Returns "" when
// none exists.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// truncate shortens s to at most n characters.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
