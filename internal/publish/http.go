package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var errUploadStatus = errors.New("upload rejected")

// HTTPUploader POSTs the record file as JSON to a URL.
type HTTPUploader struct {
	url    string
	client *http.Client
}

var _ Publisher = (*HTTPUploader)(nil)

// NewHTTPUploader creates an uploader. A nil client gets a 30s timeout.
func NewHTTPUploader(url string, client *http.Client) *HTTPUploader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPUploader{url: url, client: client}
}

// Name implements Publisher.
func (u *HTTPUploader) Name() string { return "http" }

// Publish sends the persisted file as it is on disk.
func (u *HTTPUploader) Publish(ctx context.Context, a Artifact) error {
	body, err := os.ReadFile(a.Path) //nolint:gosec // G304: record written by this run
	if err != nil {
		return fmt.Errorf("reading %s: %w", a.Path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", u.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", errUploadStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}

	return nil
}
