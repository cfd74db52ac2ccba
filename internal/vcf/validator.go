// Package vcf provides a cheap, local sanity check that a byte blob
// looks like a Variant Call Format file before any network or process
// round trip is spent on it.
package vcf

import (
	"strings"
	"unicode/utf8"
)

// Markers that identify a VCF header.
const (
	chromHeaderMarker = "#CHROM"
	fileformatMarker  = "#fileformat=VCF"
)

// headerScanLines bounds how far into the file the header is looked for.
const headerScanLines = 10

// Result is the outcome of a format check. A missing header is a soft
// signal: the caller decides whether to proceed.
type Result struct {
	OK     bool
	Reason string // set when OK is false
}

// Ok reports a clean pass.
func Ok() Result {
	return Result{OK: true}
}

// Warn reports a soft failure with a human-readable reason.
func Warn(reason string) Result {
	return Result{OK: false, Reason: reason}
}

// Validate checks whether data looks like a VCF file. It never fails
// hard: undecodable bytes are decoded permissively and structural
// problems are reported as warnings.
func Validate(data []byte) Result {
	text := decode(data)
	lines := strings.Split(text, "\n")

	limit := headerScanLines
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if strings.Contains(line, chromHeaderMarker) || strings.Contains(line, fileformatMarker) {
			return Ok()
		}
	}

	// No header up front; a tab-delimited data line still makes the
	// file submittable.
	if hasDataLine(lines) {
		return Warn("missing VCF header")
	}
	return Warn("missing VCF header and no variant data lines")
}

// hasDataLine reports whether any non-comment line looks like a
// variant record (tab-delimited with at least the 5 mandatory columns).
func hasDataLine(lines []string) bool {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Count(line, "\t") >= 4 {
			return true
		}
	}
	return false
}

// decode attempts strict text decoding and falls back to a permissive
// byte-to-text conversion for files with stray non-UTF-8 bytes.
func decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}
