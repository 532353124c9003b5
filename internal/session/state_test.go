package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/hooks"
	"github.com/aimylabs/aimy/internal/logging"
	"github.com/aimylabs/aimy/internal/prechat"
)

func TestNewSeedsGreeting(t *testing.T) {
	s := New(Options{})

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.True(t, strings.HasPrefix(s.ChatID(), "NO-SN-"))
}

func TestAddMessageEvictsOldest(t *testing.T) {
	s := New(Options{MaxMessages: 3})

	s.AddMessage(domain.RoleUser, "one")
	s.AddMessage(domain.RoleAssistant, "two")
	s.AddMessage(domain.RoleUser, "three")

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "three", msgs[2].Content)
}

func TestAddMessageCoercesUnknownRole(t *testing.T) {
	s := New(Options{})
	idx := s.AddMessage("system", "hello")

	assert.Equal(t, domain.RoleAssistant, s.Messages()[idx].Role)
}

func TestAppendStreamChunk(t *testing.T) {
	s := New(Options{})
	s.AddMessage(domain.RoleUser, "vraag")
	s.AddMessage(domain.RoleAssistant, "")

	s.AppendStreamChunk("Eerste ")
	s.AppendStreamChunk("deel.")

	msgs := s.Messages()
	assert.Equal(t, "Eerste deel.", msgs[len(msgs)-1].Content)
}

func TestAppendStreamChunkDroppedWhenLastIsUser(t *testing.T) {
	s := New(Options{})
	s.AddMessage(domain.RoleUser, "vraag")

	s.AppendStreamChunk("zwervend")

	msgs := s.Messages()
	assert.Equal(t, "vraag", msgs[len(msgs)-1].Content)
}

func TestReplaceLastAssistant(t *testing.T) {
	s := New(Options{})
	s.AddMessage(domain.RoleAssistant, "Bezig...")

	cites := []domain.Citation{{DocID: "doc-1", Section: "p.4"}}
	s.ReplaceLastAssistant("Antwoord.", cites)

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, "Antwoord.", last.Content)
	assert.Equal(t, cites, last.Citations)
}

func TestDocLifecycle(t *testing.T) {
	s := New(Options{})

	s.AddDoc(domain.Document{ID: "doc-1", Name: "handleiding.pdf", Status: domain.DocStatusQueued})
	s.AddDoc(domain.Document{ID: "doc-2", Name: "schema.png", Status: domain.DocStatusQueued})

	require.True(t, s.SetDocStatus("doc-1", domain.DocStatusOK))
	assert.False(t, s.SetDocStatus("missing", domain.DocStatusOK))

	require.True(t, s.RemoveDoc("doc-2"))
	assert.False(t, s.RemoveDoc("doc-2"))

	docs := s.Docs()
	require.Len(t, docs, 1)
	assert.Equal(t, domain.DocStatusOK, docs[0].Status)
}

func TestBeginSendGate(t *testing.T) {
	s := New(Options{})

	require.True(t, s.BeginSend())
	assert.False(t, s.BeginSend(), "second send must be refused while in flight")
	assert.True(t, s.Streaming())

	s.EndSend()
	assert.True(t, s.BeginSend())
	s.EndSend()
}

func TestResetConversationKeepsDocsAndPrechat(t *testing.T) {
	s := New(Options{})
	s.SetPrechat(Prechat{
		Record: prechat.NewRecord(prechat.Payload{SerialNumber: "ab-12", Hours: "120"}),
		Ready:  true,
	})
	s.AddDoc(domain.Document{ID: "doc-1", Name: "handleiding.pdf"})
	s.AddMessage(domain.RoleUser, "vraag")
	oldID := s.ChatID()

	s.ResetConversation()

	assert.NotEqual(t, oldID, s.ChatID())
	assert.True(t, strings.HasPrefix(s.ChatID(), "AB-12-"))
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, Greeting, s.Messages()[0].Content)
	assert.Len(t, s.Docs(), 1)
	assert.Equal(t, "AB-12", s.Prechat().SerialNumber)
}

func TestSnapshotIsDetached(t *testing.T) {
	s := New(Options{})
	s.AddMessage(domain.RoleUser, "vraag")

	snap := s.Snapshot()
	snap.Messages[0].Content = "mutated"

	assert.Equal(t, Greeting, s.Messages()[0].Content)
}

func TestEventsEmitted(t *testing.T) {
	mgr := hooks.NewManager(logging.New(io.Discard, "silent"))
	var seen []string
	for _, event := range []string{
		hooks.EventMessagesChanged,
		hooks.EventDocsChanged,
		hooks.EventSessionReset,
		hooks.EventSendStarted,
		hooks.EventSendFinished,
		hooks.EventPrechatChanged,
	} {
		event := event
		mgr.On(event, "test", func(ctx context.Context, p hooks.Payload) error {
			seen = append(seen, event)
			return nil
		})
	}

	s := New(Options{Hooks: mgr})
	s.AddMessage(domain.RoleUser, "vraag")
	s.AddDoc(domain.Document{ID: "doc-1"})
	s.SetPrechat(Prechat{})
	require.True(t, s.BeginSend())
	s.EndSend()
	s.ResetConversation()

	assert.Contains(t, seen, hooks.EventMessagesChanged)
	assert.Contains(t, seen, hooks.EventDocsChanged)
	assert.Contains(t, seen, hooks.EventPrechatChanged)
	assert.Contains(t, seen, hooks.EventSendStarted)
	assert.Contains(t, seen, hooks.EventSendFinished)
	assert.Contains(t, seen, hooks.EventSessionReset)
}

func TestSummaryIndexShiftsOnEviction(t *testing.T) {
	s := New(Options{MaxMessages: 3})
	s.AddMessage(domain.RoleAssistant, "samenvatting")
	s.SetSummaryIndex(1)

	for i := 0; i < 2; i++ {
		s.AddMessage(domain.RoleUser, fmt.Sprintf("msg %d", i))
	}

	idx := s.Prechat().SummaryMessageIndex
	require.NotNil(t, idx)
	assert.Equal(t, 0, *idx)
	assert.Equal(t, "samenvatting", s.Messages()[*idx].Content)
}
