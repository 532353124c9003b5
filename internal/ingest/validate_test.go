package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aimylabs/aimy/internal/domain"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "handleiding.pdf", "handleiding.pdf"},
		{"control chars stripped", "hand\x00lei\x1fding.pdf", "handleiding.pdf"},
		{"whitespace trimmed", "  schema.png  ", "schema.png"},
		{"empty", "", "document"},
		{"only control chars", "\x00\x1f", "document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in))
		})
	}
}

func TestSanitizeFileNamePreservesExtensionWhenTruncating(t *testing.T) {
	long := strings.Repeat("a", 200) + ".pdf"
	got := SanitizeFileName(long)

	assert.LessOrEqual(t, len(got), 120)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}

func TestGetExtension(t *testing.T) {
	assert.Equal(t, "pdf", GetExtension("handleiding.PDF"))
	assert.Equal(t, "jpeg", GetExtension("foto.schade.jpeg"))
	assert.Equal(t, "", GetExtension("zonder-extensie"))
	assert.Equal(t, "", GetExtension(".gitignore"))
	assert.Equal(t, "", GetExtension("eindigt-op-punt."))
	assert.Equal(t, "", GetExtension(""))
}

func TestDeriveTypeLabel(t *testing.T) {
	assert.Equal(t, "PDF", DeriveTypeLabel("handleiding.pdf", "DOC"))
	assert.Equal(t, "JPEG", DeriveTypeLabel("foto.jpeg", "DOC"))
	assert.Equal(t, "XYZ", DeriveTypeLabel("raar.xyz", "DOC"))
	assert.Equal(t, "DOC", DeriveTypeLabel("zonder-extensie", "DOC"))
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		size     int64
		wantOK   bool
		wantErr  string
	}{
		{"valid pdf", "handleiding.pdf", 1024, true, ""},
		{"valid jpeg at cap", "foto.jpeg", MaxFileSizeBytes, true, ""},
		{"too large", "handleiding.pdf", MaxFileSizeBytes + 1, false, ErrCodeSize},
		{"wrong type", "virus.exe", 10, false, ErrCodeType},
		{"no extension", "bestand", 10, false, ErrCodeType},
		{"empty name", "", 10, false, ErrCodeInvalid},
		{"negative size", "handleiding.pdf", -1, false, ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateFile(tt.fileName, tt.size)
			assert.Equal(t, tt.wantOK, v.OK)
			assert.Equal(t, tt.wantErr, v.Error)
		})
	}
}

func TestDescribeValidationError(t *testing.T) {
	assert.Equal(t, "Te groot (>15 MB)", DescribeValidationError(ErrCodeSize))
	assert.Equal(t, "Niet toegestaan", DescribeValidationError(ErrCodeType))
	assert.Equal(t, "Ongeldig bestand", DescribeValidationError(ErrCodeInvalid))
	assert.Equal(t, "Ongeldig bestand", DescribeValidationError("wat-dan-ook"))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Queued", StatusLabel(domain.DocStatusQueued))
	assert.Equal(t, "Processing", StatusLabel(domain.DocStatusProcessing))
	assert.Equal(t, "OK", StatusLabel(domain.DocStatusOK))
	assert.Equal(t, "Fail", StatusLabel(domain.DocStatusFail))
	assert.Equal(t, "—", StatusLabel("unknown"))
}

func TestComputeUploadCounters(t *testing.T) {
	counters := ComputeUploadCounters([]domain.Document{
		{Status: domain.DocStatusOK},
		{Status: domain.DocStatusOK},
		{Status: domain.DocStatusFail},
		{Status: domain.DocStatusQueued},
		{Status: domain.DocStatusProcessing},
	})

	assert.Equal(t, 2, counters.Docs)
	assert.Equal(t, 3, counters.Processed)
	assert.Equal(t, 2, counters.Success)

	assert.Equal(t, UploadCounters{}, ComputeUploadCounters(nil))
}
