// Package github is the authenticated gateway to the GitHub REST API.
//
// Every call obtains a fresh-or-cached App assertion from its token
// source before going upstream. Failures are classified, never
// retried here; retry policy belongs to the caller.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scopium-app/scopium/internal/domain"
)

// maxResponseBody bounds how much of an upstream response is read (4MB).
const maxResponseBody = 4 << 20

// TokenSource supplies a currently valid signed assertion.
type TokenSource interface {
	Token() (string, error)
}

// Client calls the GitHub REST API as an installed App.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
}

// NewClient creates a gateway client. The timeout bounds every
// upstream call; on expiry the call fails with a NetworkError.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
	}
}

// UsernameFromProfileURL derives a username from a profile locator by
// taking the final path segment, e.g. "https://github.com/octocat/"
// yields "octocat". A bare username passes through unchanged.
func UsernameFromProfileURL(link string) (string, error) {
	link = strings.TrimRight(strings.TrimSpace(link), "/")
	if link == "" {
		return "", fmt.Errorf("github link: %w", domain.ErrInvalidInput)
	}
	username := link[strings.LastIndex(link, "/")+1:]
	if username == "" {
		return "", fmt.Errorf("github link: %w", domain.ErrInvalidInput)
	}
	return username, nil
}

// ListUserRepositories fetches the public repositories of a user.
func (c *Client) ListUserRepositories(ctx context.Context, username string) ([]domain.Repository, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("username: %w", domain.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/users/%s/repos?per_page=100", c.baseURL, url.PathEscape(username))
	var repos []domain.Repository
	if err := c.get(ctx, endpoint, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// SearchRepositories runs a free-text repository search. Empty and
// whitespace-only queries are rejected before any network call.
func (c *Client) SearchRepositories(ctx context.Context, query string) ([]domain.Repository, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query: %w", domain.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/search/repositories?q=%s", c.baseURL, url.QueryEscape(query))
	var result struct {
		Items []domain.Repository `json:"items"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}
