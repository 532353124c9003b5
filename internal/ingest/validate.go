// Package ingest validates and uploads reference documents to the ingest
// collaborator, and keeps the client-side status bookkeeping around it.
package ingest

import (
	"regexp"
	"strings"

	"github.com/aimylabs/aimy/internal/domain"
)

// MaxFileSizeBytes caps uploads at 15 MB.
const MaxFileSizeBytes = 15 * 1024 * 1024

// DefaultDocName replaces file names that sanitize to nothing.
const DefaultDocName = "document"

const maxNameLength = 120

// allowedType pairs an accepted extension with its display label, in
// presentation order.
type allowedType struct {
	Extension string
	Label     string
}

var allowedTypes = []allowedType{
	{"pdf", "PDF"},
	{"png", "PNG"},
	{"jpg", "JPG"},
	{"jpeg", "JPEG"},
}

func allowedLabel(extension string) (string, bool) {
	for _, t := range allowedTypes {
		if t.Extension == extension {
			return t.Label, true
		}
	}
	return "", false
}

// AllowedExtensions returns the accepted extensions in presentation order.
func AllowedExtensions() []string {
	exts := make([]string, len(allowedTypes))
	for i, t := range allowedTypes {
		exts[i] = t.Extension
	}
	return exts
}

// Validation error codes.
const (
	ErrCodeInvalid = "invalid"
	ErrCodeType    = "type"
	ErrCodeSize    = "size"
)

// DescribeValidationError maps an error code to its user-facing text.
func DescribeValidationError(code string) string {
	switch code {
	case ErrCodeSize:
		return "Te groot (>15 MB)"
	case ErrCodeType:
		return "Niet toegestaan"
	default:
		return "Ongeldig bestand"
	}
}

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// SanitizeFileName strips control characters and bounds the length while
// preserving the extension. Names that sanitize to nothing become
// DefaultDocName.
func SanitizeFileName(name string) string {
	cleaned := strings.TrimSpace(controlChars.ReplaceAllString(name, ""))
	if cleaned == "" {
		return DefaultDocName
	}
	runes := []rune(cleaned)
	if len(runes) <= maxNameLength {
		return cleaned
	}
	extension := ""
	if lastDot := strings.LastIndex(cleaned, "."); lastDot > 0 && lastDot < len(cleaned)-1 {
		extension = cleaned[lastDot:]
	}
	baseLength := maxNameLength - len([]rune(extension))
	if baseLength < 1 {
		baseLength = 1
	}
	base := strings.TrimRight(string(runes[:baseLength]), " ")
	if base == "" && extension == "" {
		return DefaultDocName
	}
	return base + extension
}

// GetExtension returns the lowercased extension without the dot, or "" when
// the name has none. A leading dot (dotfile) does not count as an extension.
func GetExtension(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	lastDot := strings.LastIndex(trimmed, ".")
	if lastDot <= 0 || lastDot >= len(trimmed)-1 {
		return ""
	}
	return strings.ToLower(trimmed[lastDot+1:])
}

// DeriveTypeLabel maps a file name to its display label, upper-casing
// unknown extensions and falling back for extension-less names.
func DeriveTypeLabel(name, fallback string) string {
	ext := GetExtension(name)
	if ext == "" {
		return fallback
	}
	if label, ok := allowedLabel(ext); ok {
		return label
	}
	return strings.ToUpper(ext)
}

// Validation is the outcome of checking a candidate upload.
type Validation struct {
	OK        bool
	Error     string // one of the ErrCode constants when not OK
	Extension string
	TypeLabel string
}

// ValidateFile checks name and size against the accepted types and the
// size cap.
func ValidateFile(name string, size int64) Validation {
	if strings.TrimSpace(name) == "" || size < 0 {
		return Validation{Error: ErrCodeInvalid}
	}
	extension := GetExtension(name)
	label, allowed := allowedLabel(extension)
	if extension == "" || !allowed {
		return Validation{Error: ErrCodeType, Extension: extension}
	}
	if size > MaxFileSizeBytes {
		return Validation{Error: ErrCodeSize, Extension: extension}
	}
	return Validation{OK: true, Extension: extension, TypeLabel: label}
}

// StatusLabel returns the display label for a document status.
func StatusLabel(status string) string {
	switch status {
	case domain.DocStatusQueued:
		return "Queued"
	case domain.DocStatusProcessing:
		return "Processing"
	case domain.DocStatusOK:
		return "OK"
	case domain.DocStatusFail:
		return "Fail"
	default:
		return "—"
	}
}

// UploadCounters aggregates upload outcomes for status displays.
type UploadCounters struct {
	Docs      int
	Processed int
	Success   int
}

// ComputeUploadCounters tallies finished uploads. Only ok documents count
// as docs; failed ones only as processed.
func ComputeUploadCounters(docs []domain.Document) UploadCounters {
	var counters UploadCounters
	for _, doc := range docs {
		switch doc.Status {
		case domain.DocStatusOK:
			counters.Docs++
			counters.Processed++
			counters.Success++
		case domain.DocStatusFail:
			counters.Processed++
		}
	}
	return counters
}
