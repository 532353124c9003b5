// Package chat drives the send/reset state machine: it gates re-entrancy,
// builds the outbound request, reveals answers incrementally, and persists
// the session around every transition.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aimylabs/aimy/internal/conversation"
	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/logging"
	"github.com/aimylabs/aimy/internal/session"
	"github.com/aimylabs/aimy/internal/store"
	"github.com/aimylabs/aimy/internal/webhook"
)

// DefaultStreamDelay is the pause between revealed chunks.
const DefaultStreamDelay = 4 * time.Millisecond

// FailureNotice replaces the assistant placeholder when a send fails after
// all retries.
const FailureNotice = "[!] Webhook niet bereikbaar. Controleer de Production URL & eventuele auth."

// Send rejection reasons.
var (
	ErrNotReady    = errors.New("prechat is not complete")
	ErrEmptyPrompt = errors.New("empty prompt")
	ErrBusy        = errors.New("a send is already in flight")
)

// Options configures a Controller.
type Options struct {
	Session *session.State
	Store   *store.ChatStore
	Client  webhook.Client
	Log     *logging.Logger

	HistoryLimit    int
	MaxPromptLength int
	Temperature     float64
	Citations       bool
	ShowCitations   bool

	StreamDelay time.Duration      // 0 means DefaultStreamDelay; negative disables the delay
	OnChunk     func(chunk string) // optional, called for every revealed chunk
}

// Controller owns one chat session's send lifecycle.
type Controller struct {
	session *session.State
	store   *store.ChatStore
	client  webhook.Client
	log     *logging.Logger

	historyLimit    int
	maxPromptLength int
	temperature     float64
	citations       bool
	showCitations   bool

	streamDelay time.Duration
	onChunk     func(string)

	lastFailedPrompt string
}

// NewController creates a chat controller.
func NewController(opts Options) *Controller {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = conversation.DefaultHistoryLimit
	}
	if opts.MaxPromptLength <= 0 {
		opts.MaxPromptLength = conversation.DefaultMaxPromptLength
	}
	delay := opts.StreamDelay
	if delay == 0 {
		delay = DefaultStreamDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &Controller{
		session:         opts.Session,
		store:           opts.Store,
		client:          opts.Client,
		log:             opts.Log.Sub("chat"),
		historyLimit:    opts.HistoryLimit,
		maxPromptLength: opts.MaxPromptLength,
		temperature:     opts.Temperature,
		citations:       opts.Citations,
		showCitations:   opts.ShowCitations,
		streamDelay:     delay,
		onChunk:         opts.OnChunk,
	}
}

func (c *Controller) persist() {
	if c.store == nil {
		return
	}
	snap := c.session.Snapshot()
	c.store.PersistSnapshot(snap)
	c.store.PersistHistorySnapshot(snap)
}

func (c *Controller) reveal(ctx context.Context, chunk string) {
	c.session.AppendStreamChunk(chunk)
	if c.onChunk != nil {
		c.onChunk(chunk)
	}
	if c.streamDelay > 0 {
		timer := time.NewTimer(c.streamDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

// Send runs one ask cycle. It is a no-op (with a sentinel error) when the
// intake is not complete, the text sanitizes to empty, or a send is
// already in flight. A failed send leaves exactly one assistant message
// holding the failure notice; Retry replays the same text.
func (c *Controller) Send(ctx context.Context, text string) error {
	if !c.session.Prechat().Ready {
		return ErrNotReady
	}
	prompt := conversation.SanitizePrompt(text, c.maxPromptLength)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	if !c.session.BeginSend() {
		return ErrBusy
	}
	defer func() {
		c.session.EndSend()
		c.persist()
	}()

	c.session.AddMessage(domain.RoleUser, prompt)
	c.persist()

	snap := c.session.Snapshot()
	req := webhook.Request{
		ChatID:      snap.ChatID,
		Prompt:      prompt,
		History:     conversation.BuildMessageWindow(snap.Messages, c.historyLimit, c.maxPromptLength),
		DocIDs:      conversation.SelectDocIDs(snap.Docs, 0),
		Prechat:     snap.Prechat,
		Temperature: c.temperature,
		Citations:   c.citations,
	}

	// placeholder the answer streams into
	c.session.AddMessage(domain.RoleAssistant, "")

	answer, err := c.client.Ask(ctx, req)
	if err != nil {
		c.log.Error().Err(err).Str("chat_id", snap.ChatID).Msg("send failed")
		c.lastFailedPrompt = prompt
		c.session.ReplaceLastAssistant(FailureNotice, nil)
		return err
	}

	c.lastFailedPrompt = ""
	for _, r := range answer.Text {
		if ctx.Err() != nil {
			// reveal the rest at once instead of dropping it
			c.session.ReplaceLastAssistant(answer.Text, nil)
			break
		}
		c.reveal(ctx, string(r))
	}
	if c.showCitations {
		if appendix := webhook.FormatCitations(answer.Citations); appendix != "" {
			c.session.AppendStreamChunk(appendix)
			if c.onChunk != nil {
				c.onChunk(appendix)
			}
		}
	}
	c.session.ReplaceLastAssistant(lastAssistantContent(c.session), answer.Citations)
	return nil
}

func lastAssistantContent(s *session.State) string {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

// CanRetry reports whether the previous send failed and can be replayed.
func (c *Controller) CanRetry() bool {
	return c.lastFailedPrompt != ""
}

// Retry replays the text of the last failed send. The failed placeholder
// stays in the log; a fresh user message and placeholder are appended.
func (c *Controller) Retry(ctx context.Context) error {
	if c.lastFailedPrompt == "" {
		return ErrEmptyPrompt
	}
	return c.Send(ctx, c.lastFailedPrompt)
}

// ResetChat starts a fresh conversation. It is a no-op while a send is in
// flight. Documents and the intake record survive; when the intake is
// ready the summary is re-shared into the fresh log.
func (c *Controller) ResetChat() bool {
	if c.session.Streaming() {
		return false
	}
	if c.store != nil {
		c.store.ClearChatStorage()
	}
	c.session.ResetConversation()
	c.lastFailedPrompt = ""
	if c.session.Prechat().Ready {
		c.SharePrechatIntro()
	}
	c.persist()
	return true
}

// SharePrechatIntro posts (or refreshes) the assistant summary of the
// intake record. When the log still only holds the greeting, the greeting
// is replaced in place; an existing summary message is updated rather than
// duplicated.
func (c *Controller) SharePrechatIntro() {
	pc := c.session.Prechat()
	summary := IntroSummary(pc)

	if idx := pc.SummaryMessageIndex; idx != nil {
		if c.session.UpdateMessageContent(*idx, summary) {
			c.persist()
			return
		}
	}

	msgs := c.session.Messages()
	if len(msgs) == 1 && msgs[0].Role == domain.RoleAssistant {
		c.session.UpdateMessageContent(0, summary)
		c.session.SetSummaryIndex(0)
		c.persist()
		return
	}

	index := c.session.AddMessage(domain.RoleAssistant, summary)
	c.session.SetSummaryIndex(index)
	c.persist()
}

// IntroSummary renders the assistant summary of an intake record.
func IntroSummary(pc session.Prechat) string {
	serial := pc.SerialNumber
	if serial == "" {
		serial = "onbekend"
	}
	hours := pc.Hours
	if hours == "" {
		hours = "onbekend"
	}
	faults := pc.FaultCodes
	if faults == "" {
		faults = "geen foutcodes opgegeven"
	}
	return strings.Join([]string{
		"Top, ik heb de volgende gegevens ontvangen:",
		"• Serienummer: " + serial,
		"• Urenstand: " + hours,
		"• Foutcodes: " + faults,
		"Laat me weten waarbij ik kan helpen.",
	}, "\n")
}
