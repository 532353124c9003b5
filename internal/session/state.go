// Package session holds the single in-memory source of truth for a chat
// session: the message log, the document list, the intake record, and the
// transient send flags. A State is constructed and passed by handle into
// the controller and persistence layer; nothing else mutates it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/aimylabs/aimy/internal/conversation"
	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/hooks"
	"github.com/aimylabs/aimy/internal/prechat"
)

// Greeting is the assistant message seeding every fresh conversation.
const Greeting = "Hoi! Ik ben AIMY. Laad machinedocumenten in of stel je storingsvraag. " +
	"Ik geef je een systematische diagnose met veiligheidsstappen, meetwaardes en relevante passages uit de handleidingen."

// DefaultMaxMessages bounds the live message log; the oldest entries are
// evicted first.
const DefaultMaxMessages = 50

// Prechat is the intake record plus its session flags.
type Prechat struct {
	prechat.Record
	Ready               bool `json:"ready"`
	Completed           bool `json:"completed"`
	Valid               bool `json:"valid"`
	SummaryMessageIndex *int `json:"summaryMessageIndex"`
}

// Options configures a new session state.
type Options struct {
	Hooks       *hooks.Manager // optional
	MaxMessages int            // defaults to DefaultMaxMessages
	Greeting    string         // defaults to Greeting
}

// State is the mutable session context. All methods are safe for
// concurrent use.
type State struct {
	mu          sync.Mutex
	chatID      string
	messages    []domain.Message
	docs        []domain.Document
	prechat     Prechat
	streaming   bool
	sending     bool
	maxMessages int
	greeting    string
	hooks       *hooks.Manager
}

// New creates a session state seeded with a fresh chat id and the greeting.
func New(opts Options) *State {
	s := &State{
		maxMessages: opts.MaxMessages,
		greeting:    opts.Greeting,
		hooks:       opts.Hooks,
	}
	if s.maxMessages <= 0 {
		s.maxMessages = DefaultMaxMessages
	}
	if s.greeting == "" {
		s.greeting = Greeting
	}
	s.chatID = domain.NewChatID("", time.Now())
	s.messages = []domain.Message{{Role: domain.RoleAssistant, Content: s.greeting}}
	return s
}

func (s *State) emit(event string, data map[string]any) {
	if s.hooks != nil {
		s.hooks.Emit(context.Background(), event, data)
	}
}

// ChatID returns the current session id.
func (s *State) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// AdoptChatID replaces the session id, used when restoring a persisted
// session so the id stays stable across reloads.
func (s *State) AdoptChatID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatID = id
}

// Messages returns a copy of the message log.
func (s *State) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

// SetMessages replaces the message log, applying the live bound.
func (s *State) SetMessages(msgs []domain.Message) {
	s.mu.Lock()
	if len(msgs) > s.maxMessages {
		msgs = msgs[len(msgs)-s.maxMessages:]
	}
	s.messages = append([]domain.Message(nil), msgs...)
	s.mu.Unlock()
	s.emit(hooks.EventMessagesChanged, nil)
}

// AddMessage appends a message and returns its index. The log is bounded;
// the oldest message is evicted first.
func (s *State) AddMessage(role, content string) int {
	if role != domain.RoleUser {
		role = domain.RoleAssistant
	}
	s.mu.Lock()
	s.messages = append(s.messages, domain.Message{Role: role, Content: content})
	if len(s.messages) > s.maxMessages {
		s.messages = s.messages[len(s.messages)-s.maxMessages:]
		if idx := s.prechat.SummaryMessageIndex; idx != nil && *idx > 0 {
			shifted := *idx - 1
			s.prechat.SummaryMessageIndex = &shifted
		}
	}
	index := len(s.messages) - 1
	s.mu.Unlock()
	s.emit(hooks.EventMessagesChanged, nil)
	return index
}

// AppendStreamChunk appends text to the last assistant message. Chunks
// arriving when the log does not end in an assistant message are dropped.
func (s *State) AppendStreamChunk(chunk string) {
	s.mu.Lock()
	if n := len(s.messages); n > 0 && s.messages[n-1].Role == domain.RoleAssistant {
		s.messages[n-1].Content += chunk
	}
	s.mu.Unlock()
	s.emit(hooks.EventMessagesChanged, nil)
}

// ReplaceLastAssistant overwrites the content and citations of the last
// assistant message. Used to swap the loading placeholder for an answer or
// an error.
func (s *State) ReplaceLastAssistant(content string, citations []domain.Citation) {
	s.mu.Lock()
	if n := len(s.messages); n > 0 && s.messages[n-1].Role == domain.RoleAssistant {
		s.messages[n-1].Content = content
		s.messages[n-1].Citations = citations
	}
	s.mu.Unlock()
	s.emit(hooks.EventMessagesChanged, nil)
}

// UpdateMessageContent rewrites the content of the message at index, if it
// exists. Used for the in-place prechat summary update.
func (s *State) UpdateMessageContent(index int, content string) bool {
	s.mu.Lock()
	ok := index >= 0 && index < len(s.messages)
	if ok {
		s.messages[index].Content = content
	}
	s.mu.Unlock()
	if ok {
		s.emit(hooks.EventMessagesChanged, nil)
	}
	return ok
}

// Docs returns a copy of the document list.
func (s *State) Docs() []domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Document(nil), s.docs...)
}

// SetDocs replaces the document list.
func (s *State) SetDocs(docs []domain.Document) {
	s.mu.Lock()
	s.docs = append([]domain.Document(nil), docs...)
	s.mu.Unlock()
	s.emit(hooks.EventDocsChanged, nil)
}

// AddDoc appends a document.
func (s *State) AddDoc(doc domain.Document) {
	s.mu.Lock()
	s.docs = append(s.docs, doc)
	s.mu.Unlock()
	s.emit(hooks.EventDocsChanged, nil)
}

// RemoveDoc deletes a document by id and reports whether it was present.
func (s *State) RemoveDoc(id string) bool {
	s.mu.Lock()
	kept := s.docs[:0:0]
	removed := false
	for _, doc := range s.docs {
		if doc.ID == id {
			removed = true
			continue
		}
		kept = append(kept, doc)
	}
	s.docs = kept
	s.mu.Unlock()
	if removed {
		s.emit(hooks.EventDocsChanged, nil)
	}
	return removed
}

// SetDocStatus updates the ingest status of a document.
func (s *State) SetDocStatus(id, status string) bool {
	s.mu.Lock()
	found := false
	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs[i].Status = status
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.emit(hooks.EventDocsChanged, nil)
	}
	return found
}

// Prechat returns the intake record with its flags.
func (s *State) Prechat() Prechat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prechat
}

// SetPrechat replaces the intake record.
func (s *State) SetPrechat(p Prechat) {
	s.mu.Lock()
	s.prechat = p
	s.mu.Unlock()
	s.emit(hooks.EventPrechatChanged, nil)
}

// SetSummaryIndex records which message holds the intake summary.
func (s *State) SetSummaryIndex(index int) {
	s.mu.Lock()
	s.prechat.SummaryMessageIndex = &index
	s.mu.Unlock()
}

// Streaming reports whether a send is revealing an answer.
func (s *State) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// BeginSend atomically claims the send gate. It returns false when another
// send is already in flight; at most one outbound send runs at a time.
func (s *State) BeginSend() bool {
	s.mu.Lock()
	if s.streaming || s.sending {
		s.mu.Unlock()
		return false
	}
	s.streaming = true
	s.sending = true
	s.mu.Unlock()
	s.emit(hooks.EventSendStarted, nil)
	return true
}

// EndSend releases the send gate.
func (s *State) EndSend() {
	s.mu.Lock()
	s.streaming = false
	s.sending = false
	s.mu.Unlock()
	s.emit(hooks.EventSendFinished, nil)
}

// ClearStreaming force-clears the transient flags, used on restore.
func (s *State) ClearStreaming() {
	s.mu.Lock()
	s.streaming = false
	s.sending = false
	s.mu.Unlock()
}

// ResetConversation starts a fresh conversation: a new chat id seeded from
// the current serial number and a greeting-only log. Documents and the
// intake record survive a reset: same equipment session, new conversation.
func (s *State) ResetConversation() {
	s.mu.Lock()
	s.chatID = domain.NewChatID(s.prechat.SerialNumber, time.Now())
	s.messages = []domain.Message{{Role: domain.RoleAssistant, Content: s.greeting}}
	s.streaming = false
	s.sending = false
	s.prechat.SummaryMessageIndex = nil
	s.mu.Unlock()
	s.emit(hooks.EventSessionReset, nil)
}

// Snapshot returns a read-only copy of the state for the payload builders
// and the persistence layer.
func (s *State) Snapshot() conversation.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return conversation.Snapshot{
		ChatID:   s.chatID,
		Messages: append([]domain.Message(nil), s.messages...),
		Docs:     append([]domain.Document(nil), s.docs...),
		Prechat: conversation.Prechat{
			SerialNumber:  s.prechat.SerialNumber,
			Hours:         s.prechat.Hours,
			FaultCodes:    s.prechat.FaultCodes,
			FaultCodeList: s.prechat.FaultCodeList,
			Ready:         s.prechat.Ready,
			Completed:     s.prechat.Completed,
			Valid:         s.prechat.Valid,
		},
	}
}
