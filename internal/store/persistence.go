package store

import (
	"encoding/json"

	"github.com/aimylabs/aimy/internal/conversation"
	"github.com/aimylabs/aimy/internal/domain"
)

// Slot keys. The layout mirrors the browser origin of the data model: each
// slot holds one JSON document.
const (
	SlotChat          = "aimy-chat"
	SlotChatHistory   = "aimy-chat-history"
	SlotPrechat       = "aimy.prechat"
	SlotSettings      = "aimy-config"
	SlotSchemaVersion = "aimy.schema-version"
)

// SchemaVersion marks the persisted data layout. A mismatch on startup
// wipes the data slots rather than migrating them.
const SchemaVersion = "1"

// ChatStore persists the live session snapshot, the rolling history, the
// intake record, and user settings. Read paths are total over arbitrary
// JSON: corrupted slots normalize to empty values instead of failing.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a chat store on top of an open database.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// CheckSchemaVersion wipes the data slots when the persisted schema marker
// does not match the current one, then updates the marker.
func (s *ChatStore) CheckSchemaVersion() {
	stored, ok := s.db.GetSlot(SlotSchemaVersion)
	if ok && stored == SchemaVersion {
		return
	}
	if ok {
		s.db.log.Warn().
			Str("stored", stored).
			Str("current", SchemaVersion).
			Msg("schema version mismatch, clearing persisted session data")
	}
	for _, key := range []string{SlotChat, SlotChatHistory, SlotPrechat, SlotSettings} {
		s.db.DeleteSlot(key)
	}
	s.db.SetSlot(SlotSchemaVersion, SchemaVersion)
}

// chatDump is the persisted shape of the live session snapshot.
type chatDump struct {
	ChatID   string            `json:"chatId"`
	Messages []domain.Message  `json:"messages"`
	Docs     []domain.Document `json:"docs"`
}

// PersistSnapshot writes the live session snapshot.
func (s *ChatStore) PersistSnapshot(snap conversation.Snapshot) {
	dump := chatDump{ChatID: snap.ChatID, Messages: snap.Messages, Docs: snap.Docs}
	data, err := json.Marshal(dump)
	if err != nil {
		s.db.log.Error().Err(err).Msg("failed to encode session snapshot")
		return
	}
	s.db.SetSlot(SlotChat, string(data))
}

// RestoreResult reports what a restore found.
type RestoreResult struct {
	Restored bool
	Error    bool
	ChatID   string
	Messages []domain.Message
	Docs     []domain.Document
}

// RestoreChatState loads the live session snapshot. The stored JSON may
// come from an older schema, so every field goes through the normalizers.
func (s *ChatStore) RestoreChatState(messageLimit int) RestoreResult {
	raw, ok := s.db.GetSlot(SlotChat)
	if !ok || raw == "" {
		return RestoreResult{}
	}
	var dump any
	if err := json.Unmarshal([]byte(raw), &dump); err != nil {
		s.db.log.Warn().Err(err).Msg("corrupted session snapshot, discarding")
		s.db.DeleteSlot(SlotChat)
		return RestoreResult{Error: true}
	}
	m, isMap := dump.(map[string]any)
	if !isMap {
		return RestoreResult{}
	}

	result := RestoreResult{
		Docs: domain.MapDocuments(m["docs"], domain.DocDefaults{}),
	}
	if id, isString := m["chatId"].(string); isString && id != "" {
		result.ChatID = id
	}
	result.Messages = domain.MapMessages(m["messages"], messageLimit)
	result.Restored = len(result.Messages) > 0
	return result
}

// ClearChatStorage removes the live session snapshot.
func (s *ChatStore) ClearChatStorage() {
	s.db.DeleteSlot(SlotChat)
}

func (s *ChatStore) readHistory() []domain.HistoryEntry {
	raw, ok := s.db.GetSlot(SlotChatHistory)
	if !ok || raw == "" {
		return nil
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		s.db.log.Warn().Err(err).Msg("corrupted chat history, ignoring")
		return nil
	}
	items, isSlice := data.([]any)
	if !isSlice {
		return nil
	}
	nowISO := domain.NowISO()
	entries := make([]domain.HistoryEntry, 0, len(items))
	for _, item := range items {
		if entry := domain.NormalizeHistoryRecord(item, nowISO, domain.DefaultDocPrefix); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries
}

func (s *ChatStore) writeHistory(entries []domain.HistoryEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		s.db.log.Error().Err(err).Msg("failed to encode chat history")
		return
	}
	s.db.SetSlot(SlotChatHistory, string(data))
}

// PersistHistorySnapshot upserts the current session into the rolling
// history. Sessions without an id or a serial number are not recorded.
func (s *ChatStore) PersistHistorySnapshot(snap conversation.Snapshot) {
	if snap.ChatID == "" {
		return
	}
	history := s.readHistory()
	index := -1
	var existing *domain.HistoryEntry
	for i := range history {
		if history[i].ID == snap.ChatID {
			index = i
			existing = &history[i]
			break
		}
	}
	entry := conversation.BuildHistoryEntry(snap, existing, domain.NowISO())
	if entry == nil {
		return
	}
	if index > -1 {
		history[index] = *entry
	} else {
		history = append(history, *entry)
	}
	s.writeHistory(history)
}

// LoadChatHistory returns all normalized history entries.
func (s *ChatStore) LoadChatHistory() []domain.HistoryEntry {
	return s.readHistory()
}

// SetChatArchived flips the archived flag of a history entry. Returns nil
// when the entry does not exist.
func (s *ChatStore) SetChatArchived(chatID string, archived bool) *domain.HistoryEntry {
	history := s.readHistory()
	for i := range history {
		if history[i].ID == chatID {
			history[i].Archived = archived
			history[i].UpdatedAt = domain.NowISO()
			s.writeHistory(history)
			entry := history[i]
			return &entry
		}
	}
	return nil
}

// RemoveChatFromHistory deletes a history entry.
func (s *ChatStore) RemoveChatFromHistory(chatID string) {
	history := s.readHistory()
	filtered := history[:0:0]
	for _, entry := range history {
		if entry.ID != chatID {
			filtered = append(filtered, entry)
		}
	}
	s.writeHistory(filtered)
}

// MarkChatOpened stamps lastOpenedAt (and updatedAt) on a history entry.
// Returns nil when the entry does not exist.
func (s *ChatStore) MarkChatOpened(chatID string) *domain.HistoryEntry {
	history := s.readHistory()
	for i := range history {
		if history[i].ID == chatID {
			now := domain.NowISO()
			history[i].LastOpenedAt = &now
			history[i].UpdatedAt = now
			s.writeHistory(history)
			entry := history[i]
			return &entry
		}
	}
	return nil
}

// PrechatDump is the persisted shape of the intake record.
type PrechatDump struct {
	SerialNumber string `json:"serialNumber"`
	Hours        string `json:"hours"`
	FaultCodes   string `json:"faultCodes"`
}

// LoadPrechat returns the stored intake record, or nil when absent or
// corrupted.
func (s *ChatStore) LoadPrechat() *PrechatDump {
	raw, ok := s.db.GetSlot(SlotPrechat)
	if !ok || raw == "" {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil || data == nil {
		return nil
	}
	dump := &PrechatDump{}
	if v, isString := data["serialNumber"].(string); isString {
		dump.SerialNumber = v
	}
	if v, isString := data["hours"].(string); isString {
		dump.Hours = v
	}
	if v, isString := data["faultCodes"].(string); isString {
		dump.FaultCodes = v
	}
	return dump
}

// SavePrechat stores the intake record.
func (s *ChatStore) SavePrechat(dump PrechatDump) {
	data, err := json.Marshal(dump)
	if err != nil {
		s.db.log.Error().Err(err).Msg("failed to encode prechat record")
		return
	}
	s.db.SetSlot(SlotPrechat, string(data))
}

// ClearPrechat removes the stored intake record.
func (s *ChatStore) ClearPrechat() {
	s.db.DeleteSlot(SlotPrechat)
}

// Settings are the user-tunable runtime settings persisted between runs.
type Settings struct {
	WebhookURL    string   `json:"webhookUrl"`
	AuthHeader    string   `json:"authHeader"`
	AuthValue     string   `json:"authValue"`
	ShowCitations bool     `json:"showCitations"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		AuthHeader:    "X-AIMY-Token",
		ShowCitations: true,
	}
}

type settingsDump struct {
	WebhookURL    *string  `json:"webhookUrl"`
	AuthHeader    *string  `json:"authHeader"`
	AuthValue     *string  `json:"authValue"`
	ShowCitations *bool    `json:"showCitations"`
	Temperature   *float64 `json:"temperature"`
}

// LoadSettings merges stored settings over the defaults. Fields with the
// wrong type or an empty header name fall back to the default.
func (s *ChatStore) LoadSettings() Settings {
	settings := DefaultSettings()
	raw, ok := s.db.GetSlot(SlotSettings)
	if !ok || raw == "" {
		return settings
	}
	var dump settingsDump
	if err := json.Unmarshal([]byte(raw), &dump); err != nil {
		return settings
	}
	if dump.WebhookURL != nil {
		settings.WebhookURL = *dump.WebhookURL
	}
	if dump.AuthHeader != nil && *dump.AuthHeader != "" {
		settings.AuthHeader = *dump.AuthHeader
	}
	if dump.AuthValue != nil {
		settings.AuthValue = *dump.AuthValue
	}
	if dump.ShowCitations != nil {
		settings.ShowCitations = *dump.ShowCitations
	}
	if dump.Temperature != nil {
		settings.Temperature = dump.Temperature
	}
	return settings
}

// SaveSettings stores the settings.
func (s *ChatStore) SaveSettings(settings Settings) {
	data, err := json.Marshal(settings)
	if err != nil {
		s.db.log.Error().Err(err).Msg("failed to encode settings")
		return
	}
	s.db.SetSlot(SlotSettings, string(data))
}
