// Package domain defines the conversation data model and the normalization
// boundary for untrusted persisted JSON. Everything stored by the engine is
// round-tripped through the normalizers in this package so the rest of the
// code can assume well-typed data.
package domain

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document ingest status values.
const (
	DocStatusQueued     = "queued"
	DocStatusProcessing = "processing"
	DocStatusOK         = "ok"
	DocStatusFail       = "fail"
)

// Citation points at a passage in an ingested document.
type Citation struct {
	DocID   string `json:"docId"`
	Section string `json:"section,omitempty"`
}

// Message is a single turn in a conversation. Citations are only
// meaningful on assistant messages.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}

// Document is a reference document uploaded for the current session.
// UploadedAt is epoch milliseconds.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	UploadedAt int64  `json:"uploadedAt"`
	TypeLabel  string `json:"typeLabel,omitempty"`
	Extension  string `json:"extension,omitempty"`
	Status     string `json:"status,omitempty"`
}

// HistoryEntry is a persisted record of one past chat session.
// LastOpenedAt is nil for sessions never reopened from the history list.
type HistoryEntry struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	SerialNumber  string     `json:"serialNumber"`
	FaultCodes    string     `json:"faultCodes"`
	FaultCodeList []string   `json:"faultCodeList"`
	Hours         string     `json:"hours"`
	Messages      []Message  `json:"messages"`
	Docs          []Document `json:"docs"`
	CreatedAt     string     `json:"createdAt"`
	UpdatedAt     string     `json:"updatedAt"`
	Archived      bool       `json:"archived"`
	LastOpenedAt  *string    `json:"lastOpenedAt"`
}
