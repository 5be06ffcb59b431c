// Package api uploads exported journal sessions to a collector service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// UploadPath is where session exports are posted.
	UploadPath = "/api/v1/sessions"
	// HealthPath answers 200 while the collector accepts uploads.
	HealthPath = "/healthcheck"
	// KeyHeader carries the collector API key.
	KeyHeader = "X-Api-Key"

	// bytes of a rejected response kept for the error
	maxErrorBody = 512
)

// Errors returned before anything is sent.
var (
	ErrNoSessionID = errors.New("session id is required")
	ErrNoExport    = errors.New("session has no export file")
)

// Session describes one exported journal session.
type Session struct {
	ID       string        `json:"sessionId"`
	Source   string        `json:"source"`
	Markers  int           `json:"markers"`
	Duration time.Duration `json:"-"`
	Export   string        `json:"-"` // path of the exported file
}

// metadata is the JSON part sent ahead of the export.
type metadata struct {
	Session
	DurationMs int64  `json:"durationMs"`
	Filename   string `json:"filename"`
	Encoding   string `json:"encoding"`
}

func (s Session) validate() error {
	if s.ID == "" {
		return ErrNoSessionID
	}
	if s.Export == "" {
		return ErrNoExport
	}
	return nil
}

// encoding names how the export file is stored.
func (s Session) encoding() string {
	if strings.HasSuffix(s.Export, ".gz") {
		return "gzip"
	}
	return "identity"
}

// RejectedError is returned when the collector answers an upload with a
// non-2xx status.
type RejectedError struct {
	SessionID  string
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("collector rejected session %s: status %d", e.SessionID, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client talks to the collector.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a collector client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck reports whether the collector is accepting uploads.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("building healthcheck: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("collector unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// UploadSession posts the session's export file with its metadata.
func (c *Client) UploadSession(ctx context.Context, s Session) error {
	if err := s.validate(); err != nil {
		return err
	}
	file, err := os.Open(s.Export)
	if err != nil {
		return fmt.Errorf("opening export of session %s: %w", s.ID, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, s, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("building upload: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set(KeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading session %s: %w", s.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RejectedError{
			SessionID:  s.ID,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}

// writeForm writes the metadata part followed by the export part.
func writeForm(form *multipart.Writer, s Session, export io.Reader) error {
	meta := metadata{
		Session:    s,
		DurationMs: s.Duration.Milliseconds(),
		Filename:   filepath.Base(s.Export),
		Encoding:   s.encoding(),
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="metadata"`)
	h.Set("Content-Type", "application/json")
	part, err := form.CreatePart(h)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(part).Encode(meta); err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	part, err = form.CreateFormFile("export", meta.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, export); err != nil {
		return fmt.Errorf("copying export: %w", err)
	}
	return form.Close()
}
