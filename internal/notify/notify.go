// Package notify implements the fire-and-forget side call made when a
// repository is selected.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scopium-app/scopium/internal/chat"
	"github.com/scopium-app/scopium/internal/domain"
)

// Webhook returns a notifier that POSTs the selected repository's link
// to url. Failures are reported to the caller, which logs and discards
// them; a selection never waits on this call.
func Webhook(url string, timeout time.Duration) chat.Notifier {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, repo domain.Repository) error {
		payload, err := json.Marshal(map[string]string{
			"repository_link": repo.HTMLURL,
		})
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build notification request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("post notification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
		}
		return nil
	}
}
