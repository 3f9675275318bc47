package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var errCommentRejected = errors.New("github rejected the comment")

// GitHubComment posts the report as a comment on a pull request.
type GitHubComment struct {
	APIURL     string
	Repository string
	PRNumber   string
	Token      string
	Client     *http.Client
}

var _ Notifier = (*GitHubComment)(nil)

// NewGitHubComment creates a pull request commenter.
func NewGitHubComment(apiURL, repository, prNumber, token string) *GitHubComment {
	return &GitHubComment{
		APIURL:     strings.TrimSuffix(apiURL, "/"),
		Repository: repository,
		PRNumber:   prNumber,
		Token:      token,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Notifier.
func (g *GitHubComment) Name() string { return "github" }

// CommentsURL is the issue comments endpoint of the pull request.
func (g *GitHubComment) CommentsURL() string {
	return fmt.Sprintf("%s/repos/%s/issues/%s/comments", g.APIURL, g.Repository, g.PRNumber)
}

// Notify posts report as the comment body.
func (g *GitHubComment) Notify(ctx context.Context, report string) error {
	body, err := json.Marshal(map[string]string{"body": report})
	if err != nil {
		return fmt.Errorf("failed to marshal comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.CommentsURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create comment request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.Token)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post comment: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", errCommentRejected, resp.StatusCode, bytes.TrimSpace(msg))
	}

	return nil
}
