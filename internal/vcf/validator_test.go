package vcf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_WithFileformatHeader(t *testing.T) {
	data := []byte("##fileformat=VCFv4.2\n##source=Test\n#CHROM\tPOS\tID\tREF\tALT\n")
	result := Validate(data)
	assert.True(t, result.OK)
	assert.Empty(t, result.Reason)
}

func TestValidate_WithChromHeaderOnly(t *testing.T) {
	data := []byte("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n17\t43091995\trs80357914\tAG\tA\t100\tPASS\t.\n")
	result := Validate(data)
	assert.True(t, result.OK)
}

func TestValidate_MissingHeaderWithDataLine(t *testing.T) {
	// Headerless dump that still carries tab-delimited variant records.
	data := []byte("17\t43091995\trs80357914\tAG\tA\t100\tPASS\t.\n13\t32913838\trs80359600\tT\tC\t100\tPASS\t.\n")
	result := Validate(data)
	assert.False(t, result.OK)
	assert.Equal(t, "missing VCF header", result.Reason)
}

func TestValidate_NoHeaderNoData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"plain text", []byte("this is not a vcf file\nat all\n")},
		{"comments only", []byte("# a comment\n# another comment\n")},
		{"too few columns", []byte("17\t43091995\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.data)
			assert.False(t, result.OK)
			assert.Contains(t, result.Reason, "missing VCF header")
		})
	}
}

func TestValidate_HeaderBeyondScanWindow(t *testing.T) {
	// Header buried past the scan window: the data lines before it
	// keep the file submittable, but the header itself is not seen.
	var sb strings.Builder
	for i := 0; i < 15; i++ {
		sb.WriteString("17\t43091995\trs1\tA\tG\t100\tPASS\t.\n")
	}
	sb.WriteString("#CHROM\tPOS\tID\tREF\tALT\n")

	result := Validate([]byte(sb.String()))
	assert.False(t, result.OK)
	assert.Equal(t, "missing VCF header", result.Reason)
}

func TestValidate_InvalidUTF8FallsBack(t *testing.T) {
	data := append([]byte{0xff, 0xfe}, []byte("#CHROM\tPOS\tID\tREF\tALT\n")...)
	result := Validate(data)
	assert.True(t, result.OK, "permissive decoding should still find the header")
}
