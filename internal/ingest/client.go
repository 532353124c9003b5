package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/logging"
)

// Client uploads documents to the ingest collaborator. An empty base URL
// switches it to offline mode: documents keep their locally generated id.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logging.Logger
}

// NewClient creates an ingest client.
func NewClient(baseURL string, log *logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.Sub("ingest"),
	}
}

// Upload validates and uploads a local file. The returned document carries
// the server-issued doc id when the upload succeeded, a locally generated
// id when the collaborator is offline or unconfigured, and status fail
// with ErrorText set when the collaborator rejected the file.
func (c *Client) Upload(ctx context.Context, path, sessionID string) (domain.Document, error) {
	name := SanitizeFileName(filepath.Base(path))

	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("reading file: %w", err)
	}

	validation := ValidateFile(name, info.Size())
	if !validation.OK {
		return domain.Document{}, fmt.Errorf("%s: %s", name, DescribeValidationError(validation.Error))
	}

	doc := domain.Document{
		ID:         domain.NewID("doc"),
		Name:       name,
		Size:       info.Size(),
		UploadedAt: time.Now().UnixMilli(),
		TypeLabel:  validation.TypeLabel,
		Extension:  validation.Extension,
		Status:     domain.DocStatusQueued,
	}

	if c.baseURL == "" {
		return doc, nil
	}

	docID, err := c.post(ctx, path, name, sessionID)
	if err != nil {
		c.log.Warn().Err(err).Str("name", name).Msg("upload failed, keeping local id")
		return doc, nil
	}
	if docID != "" {
		doc.ID = docID
	}
	doc.Status = domain.DocStatusOK
	return doc, nil
}

func (c *Client) post(ctx context.Context, path, name, sessionID string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("building form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	if sessionID != "" {
		if err := form.WriteField("sessionId", sessionID); err != nil {
			return "", fmt.Errorf("building form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("building form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ingest", &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("ingest returned status %d", resp.StatusCode)
	}

	var data struct {
		DocID string `json:"doc_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		// reachable but opaque; the local id stays valid
		return "", nil
	}
	return data.DocID, nil
}

// Remove deletes a document from the collaborator. Network errors are
// logged and swallowed: the local list is authoritative for the session.
func (c *Client) Remove(ctx context.Context, id string) {
	if c.baseURL == "" || id == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/docs/"+url.PathEscape(id), nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("id", id).Msg("remote delete failed")
		return
	}
	resp.Body.Close()
}
