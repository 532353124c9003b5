package webhook

import (
	"encoding/json"
	"strings"

	"github.com/aimylabs/aimy/internal/conversation"
	"github.com/aimylabs/aimy/internal/domain"
)

// BuildPayload constructs the outbound request body. The remote endpoint's
// accepted schema is unknown and unversioned, so the same values are sent
// under several plausible field names.
func BuildPayload(req Request) map[string]any {
	history := req.History
	if history == nil {
		history = []conversation.WindowMessage{}
	}
	docIDs := req.DocIDs
	if docIDs == nil {
		docIDs = []string{}
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, msg.Role+": "+msg.Content)
	}

	pc := conversation.PreparePrechatPayload(req.Prechat)
	meta := conversation.BuildMetadata(pc)

	return map[string]any{
		"chat_id":  req.ChatID,
		"query":    req.Prompt,
		"question": req.Prompt,
		"prompt":   req.Prompt,
		"input":    req.Prompt,
		"text":     req.Prompt,

		"temperature": req.Temperature,
		"citations":   req.Citations,

		"history":      history,
		"messages":     history,
		"chat_history": history,
		"history_text": strings.Join(lines, "\n"),

		"doc_ids":   docIDs,
		"documents": docIDs,

		"prechat":  pc,
		"metadata": meta,

		"serial_number": pc.SerialNumber,
		"serienummer":   pc.SerialNumber,
		"hours":         pc.Hours,
		"urenstand":     pc.Hours,
		"fault_codes":   pc.FaultCodes,
	}
}

// ParseAnswer decodes a webhook response body. A missing or empty answer
// field degrades to the placeholder text rather than an error; only
// undecodable JSON fails.
func ParseAnswer(body []byte) (Answer, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return Answer{}, err
	}

	answer := Answer{Text: NoAnswerPlaceholder}
	if text, ok := data["answer"].(string); ok && strings.TrimSpace(text) != "" {
		answer.Text = text
	}
	answer.Citations = domain.NormalizeCitations(data["citations"])
	return answer, nil
}

// FormatCitations renders the source appendix appended after an answer.
// Returns "" when there are no citations.
func FormatCitations(citations []domain.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	lines := make([]string, 0, len(citations))
	for _, c := range citations {
		line := "• " + c.DocID
		if c.Section != "" {
			line += " (" + c.Section + ")"
		}
		lines = append(lines, line)
	}
	return "\n\n— Bronnen:\n" + strings.Join(lines, "\n")
}
