package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aimylabs/aimy/internal/prechat"
)

// DefaultDocName is used when a stored document has no usable name.
const DefaultDocName = "Onbekend document"

// DefaultDocPrefix seeds fallback document ids.
const DefaultDocPrefix = "doc"

// Persisted history may have been written by an older schema version, so
// every function here must be total over arbitrary decoded JSON: a corrupt
// or legacy record is defaulted or dropped, never allowed to fail the load.

// DocDefaults configures document normalization fallbacks.
type DocDefaults struct {
	Now    int64 // epoch ms used for missing upload timestamps; 0 means "now"
	Prefix string
}

func (d DocDefaults) withFallbacks() DocDefaults {
	if d.Now == 0 {
		d.Now = time.Now().UnixMilli()
	}
	if d.Prefix == "" {
		d.Prefix = DefaultDocPrefix
	}
	return d
}

// MapDocuments coerces arbitrary stored JSON into document records.
// Non-array input yields an empty slice; each element is independently
// defaulted so one malformed entry never poisons the rest.
func MapDocuments(raw any, defaults DocDefaults) []Document {
	items, ok := asSlice(raw)
	if !ok {
		return []Document{}
	}
	defaults = defaults.withFallbacks()

	docs := make([]Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, normalizeDocument(item, defaults))
	}
	return docs
}

func normalizeDocument(raw any, defaults DocDefaults) Document {
	m, _ := asMap(raw)

	id := nonEmptyString(m["id"])
	if id == "" {
		id = NewID(defaults.Prefix)
	}
	name := nonEmptyString(m["name"])
	if name == "" {
		name = DefaultDocName
	}

	size := int64(toFiniteNumber(m["size"], 0))
	if size < 0 {
		size = 0
	}

	extension := strings.ToLower(nonEmptyString(m["extension"]))
	if extension == "" {
		extension = extensionFromName(name)
	}
	typeLabel := nonEmptyString(m["typeLabel"])
	if typeLabel == "" {
		typeLabel = nonEmptyString(m["type"])
	}
	if typeLabel == "" && extension != "" {
		typeLabel = strings.ToUpper(extension)
	}

	return Document{
		ID:         id,
		Name:       name,
		Size:       size,
		UploadedAt: toUploadTimestamp(m["uploadedAt"], defaults.Now),
		TypeLabel:  typeLabel,
		Extension:  extension,
		Status:     normalizeDocStatus(m["status"]),
	}
}

func extensionFromName(name string) string {
	trimmed := strings.TrimSpace(name)
	dot := strings.LastIndex(trimmed, ".")
	if dot <= 0 || dot >= len(trimmed)-1 {
		return ""
	}
	return strings.ToLower(trimmed[dot+1:])
}

func normalizeDocStatus(raw any) string {
	switch nonEmptyString(raw) {
	case DocStatusQueued:
		return DocStatusQueued
	case DocStatusProcessing:
		return DocStatusProcessing
	case DocStatusOK:
		return DocStatusOK
	case DocStatusFail:
		return DocStatusFail
	}
	return ""
}

// MapMessages coerces arbitrary stored JSON into messages. Non-array input
// yields an empty slice. When limit is positive only the most recent limit
// entries are returned (tail truncation).
func MapMessages(raw any, limit int) []Message {
	items, ok := asSlice(raw)
	if !ok {
		return []Message{}
	}

	msgs := make([]Message, 0, len(items))
	for _, item := range items {
		msgs = append(msgs, normalizeMessage(item))
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

func normalizeMessage(raw any) Message {
	m, _ := asMap(raw)

	role := RoleAssistant
	if s, _ := m["role"].(string); s == RoleUser {
		role = RoleUser
	}
	content, _ := m["content"].(string)

	return Message{
		Role:      role,
		Content:   content,
		Citations: NormalizeCitations(m["citations"]),
	}
}

// Citation field aliases accepted from the remote endpoint and old
// persisted records.
var (
	citationIDKeys      = []string{"docId", "doc_id", "id", "documentId"}
	citationSectionKeys = []string{"section", "page", "sectionId", "location"}
)

// NormalizeCitations coerces heterogeneous citation JSON. Entries without a
// resolvable non-empty doc id are dropped.
func NormalizeCitations(raw any) []Citation {
	items, ok := asSlice(raw)
	if !ok {
		return nil
	}

	var out []Citation
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		docID := firstNonEmpty(m, citationIDKeys)
		if docID == "" {
			continue
		}
		out = append(out, Citation{
			DocID:   docID,
			Section: firstNonEmpty(m, citationSectionKeys),
		})
	}
	return out
}

// NormalizeHistoryRecord coerces one stored history entry. It returns nil
// when the entry has no usable id; callers filter nil results instead of
// aborting the whole list.
func NormalizeHistoryRecord(raw any, nowISO string, docPrefix string) *HistoryEntry {
	m, ok := asMap(raw)
	if !ok {
		return nil
	}
	id, _ := m["id"].(string)
	if id == "" {
		return nil
	}
	if nowISO == "" {
		nowISO = NowISO()
	}

	nowMs := time.Now().UnixMilli()
	if t, ok := parseISO(nowISO); ok {
		nowMs = t.UnixMilli()
	}

	faultCodeList := normalizeFaultCodeList(m["faultCodeList"], m["faultCodes"])

	return &HistoryEntry{
		ID:            id,
		Title:         stringOr(m["title"], ""),
		SerialNumber:  stringOr(m["serialNumber"], ""),
		FaultCodes:    stringOr(m["faultCodes"], ""),
		FaultCodeList: faultCodeList,
		Hours:         stringOr(m["hours"], ""),
		Messages:      MapMessages(m["messages"], 0),
		Docs:          MapDocuments(m["docs"], DocDefaults{Now: nowMs, Prefix: docPrefix}),
		CreatedAt:     EnsureISO(m["createdAt"], nowISO),
		UpdatedAt:     EnsureISO(m["updatedAt"], nowISO),
		Archived:      m["archived"] == true,
		LastOpenedAt:  EnsureISOPtr(m["lastOpenedAt"]),
	}
}

func normalizeFaultCodeList(listRaw, textRaw any) []string {
	if items, ok := asSlice(listRaw); ok {
		tokens := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				tokens = append(tokens, s)
			}
		}
		return prechat.EnsureFaultCodeList(tokens)
	}
	if s, ok := textRaw.(string); ok {
		return prechat.SplitFaultCodes(s)
	}
	return []string{}
}

// EnsureISO coerces epoch numbers, date-like strings, or time values into
// an ISO-8601 UTC string, falling back to the given ISO string (or "now"
// when the fallback itself is empty or unparsable).
func EnsureISO(value any, fallback string) string {
	if t, ok := coerceTime(value); ok {
		return FormatISO(t)
	}
	if t, ok := parseISO(fallback); ok {
		return FormatISO(t)
	}
	if fallback != "" {
		return fallback
	}
	return NowISO()
}

// EnsureISOPtr is EnsureISO with explicit-nil fallback, used for
// "never opened" semantics.
func EnsureISOPtr(value any) *string {
	t, ok := coerceTime(value)
	if !ok {
		return nil
	}
	iso := FormatISO(t)
	return &iso
}

func coerceTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		return parseISO(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)), true
	case int64:
		return time.UnixMilli(v), true
	case int:
		return time.UnixMilli(int64(v)), true
	case time.Time:
		return v, true
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseISO(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// --- loose-typed JSON helpers ---

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

// nonEmptyString returns a trimmed string representation of strings and
// numbers, or "" for anything else.
func nonEmptyString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return ""
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func firstNonEmpty(m map[string]any, keys []string) string {
	for _, key := range keys {
		if s := nonEmptyString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func toFiniteNumber(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		if !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n
		}
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil && !math.IsInf(parsed, 0) {
			return parsed
		}
	}
	return fallback
}

func toUploadTimestamp(v any, fallback int64) int64 {
	switch n := v.(type) {
	case float64:
		if !math.IsNaN(n) && !math.IsInf(n, 0) {
			return int64(n)
		}
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		if t, ok := parseISO(n); ok {
			return t.UnixMilli()
		}
	}
	return fallback
}
