// Package conversation builds the bounded, sanitized views of session
// state that leave the process: the outbound request window and the
// persisted history entry. All functions are pure transformations.
package conversation

import (
	"strings"

	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/prechat"
)

// Outbound and persistence bounds.
const (
	DefaultHistoryLimit    = 12
	DefaultMaxPromptLength = 4000
	MaxHistoryMessages     = 100
	MaxDocIDs              = 50
)

// NoFaultCodesLabel is the history-title placeholder for sessions without
// fault codes.
const NoFaultCodesLabel = "geen foutcodes"

// SanitizePrompt trims and hard-truncates text to maxLength characters.
// No truncation indicator is added. A non-positive maxLength applies the
// default bound.
func SanitizePrompt(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxPromptLength
	}
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= maxLength {
		return trimmed
	}
	return string(runes[:maxLength])
}

// WindowMessage is one entry of the outbound history window.
type WindowMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessageWindow returns the last limit messages with re-sanitized
// content. Stored state may have been mutated by UI code, so bounds are
// enforced again here.
func BuildMessageWindow(messages []domain.Message, limit, maxLength int) []WindowMessage {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	window := make([]WindowMessage, 0, len(messages))
	for _, msg := range messages {
		role := domain.RoleAssistant
		if msg.Role == domain.RoleUser {
			role = domain.RoleUser
		}
		window = append(window, WindowMessage{
			Role:    role,
			Content: SanitizePrompt(msg.Content, maxLength),
		})
	}
	return window
}

// SelectDocIDs extracts non-empty document ids, deduplicated in first-seen
// order and capped at limit.
func SelectDocIDs(docs []domain.Document, limit int) []string {
	if limit <= 0 {
		limit = MaxDocIDs
	}
	ids := make([]string, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) >= limit {
			break
		}
	}
	return ids
}

// Prechat is the intake view attached to outbound payloads and snapshots.
type Prechat struct {
	SerialNumber  string   `json:"serialNumber"`
	Hours         string   `json:"hours"`
	FaultCodes    string   `json:"faultCodes"`
	FaultCodeList []string `json:"faultCodeList"`
	Ready         bool     `json:"ready"`
	Completed     bool     `json:"completed"`
	Valid         bool     `json:"valid"`
}

func normalizePrechat(p Prechat) Prechat {
	var list []string
	if p.FaultCodeList != nil {
		list = prechat.EnsureFaultCodeList(p.FaultCodeList)
	} else {
		list = prechat.SplitFaultCodes(p.FaultCodes)
	}
	return Prechat{
		SerialNumber:  strings.TrimSpace(p.SerialNumber),
		Hours:         strings.TrimSpace(p.Hours),
		FaultCodes:    prechat.FormatFaultCodes(list),
		FaultCodeList: list,
		Ready:         p.Ready,
		Completed:     p.Completed,
		Valid:         p.Valid,
	}
}

// PreparePrechatPayload re-normalizes the stored intake record before it is
// echoed to the remote endpoint.
func PreparePrechatPayload(p Prechat) Prechat {
	return normalizePrechat(p)
}

// Metadata is the denormalized intake block mirrored into request bodies.
type Metadata struct {
	SerialNumber  string   `json:"serialNumber"`
	Hours         string   `json:"hours"`
	FaultCodes    string   `json:"faultCodes"`
	FaultCodeList []string `json:"faultCodeList"`
}

// BuildMetadata derives the metadata block from the intake record.
func BuildMetadata(p Prechat) Metadata {
	normalized := normalizePrechat(p)
	return Metadata{
		SerialNumber:  normalized.SerialNumber,
		Hours:         normalized.Hours,
		FaultCodes:    normalized.FaultCodes,
		FaultCodeList: normalized.FaultCodeList,
	}
}

// Snapshot is a read-only copy of session state handed to the builders and
// the persistence layer. The session store is the only mutable owner.
type Snapshot struct {
	ChatID   string
	Messages []domain.Message
	Docs     []domain.Document
	Prechat  Prechat
}

// BuildHistoryEntry turns a session snapshot into a persisted history
// entry, preserving the archive flag and timestamps of an existing entry
// with the same id. It returns nil when the snapshot has no chat id or no
// serial number yet.
func BuildHistoryEntry(snap Snapshot, existing *domain.HistoryEntry, nowISO string) *domain.HistoryEntry {
	if snap.ChatID == "" {
		return nil
	}
	pc := normalizePrechat(snap.Prechat)
	if pc.SerialNumber == "" {
		return nil
	}
	if nowISO == "" {
		nowISO = domain.NowISO()
	}

	messages := snap.Messages
	if len(messages) > MaxHistoryMessages {
		messages = messages[len(messages)-MaxHistoryMessages:]
	}

	entry := &domain.HistoryEntry{
		ID:            snap.ChatID,
		Title:         historyTitle(pc),
		SerialNumber:  pc.SerialNumber,
		FaultCodes:    pc.FaultCodes,
		FaultCodeList: pc.FaultCodeList,
		Hours:         pc.Hours,
		Messages:      append([]domain.Message(nil), messages...),
		Docs:          append([]domain.Document(nil), snap.Docs...),
		CreatedAt:     nowISO,
		UpdatedAt:     nowISO,
	}

	if existing != nil {
		entry.CreatedAt = domain.EnsureISO(existing.CreatedAt, nowISO)
		entry.Archived = existing.Archived
		if existing.LastOpenedAt != nil {
			entry.LastOpenedAt = domain.EnsureISOPtr(*existing.LastOpenedAt)
		}
	}
	return entry
}

func historyTitle(pc Prechat) string {
	label := NoFaultCodesLabel
	if len(pc.FaultCodeList) > 0 {
		label = pc.FaultCodeList[0]
	}
	return pc.SerialNumber + " – " + label
}
