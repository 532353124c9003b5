// Package webhook implements the client side of the diagnosis webhook: the
// aliased request payload, the retrying HTTP transport, the demo fallback,
// and the reachability probe.
package webhook

import (
	"context"

	"github.com/aimylabs/aimy/internal/conversation"
	"github.com/aimylabs/aimy/internal/domain"
)

// NoAnswerPlaceholder replaces a response without a usable answer field.
const NoAnswerPlaceholder = "[geen antwoord]"

// DemoAnswer is returned when no webhook URL is configured.
const DemoAnswer = "Demo-antwoord (webhook URL niet ingesteld). Controleer hoofdschakelaar, noodstop, " +
	"zekeringen en CAN-bus. Meet accuspanning (>24.0V) en log foutcode 224-01."

// Request carries everything one outbound ask needs.
type Request struct {
	ChatID      string
	Prompt      string
	History     []conversation.WindowMessage
	DocIDs      []string
	Prechat     conversation.Prechat
	Temperature float64
	Citations   bool
}

// Answer is the parsed webhook reply.
type Answer struct {
	Text      string
	Citations []domain.Citation
}

// Client asks the remote endpoint for a diagnosis answer.
type Client interface {
	Ask(ctx context.Context, req Request) (Answer, error)
}

// DemoClient returns a canned answer without network access. This is the
// product's demo mode, not an error fallback.
type DemoClient struct{}

// Ask returns the demo answer.
func (DemoClient) Ask(ctx context.Context, req Request) (Answer, error) {
	return Answer{Text: DemoAnswer}, nil
}
