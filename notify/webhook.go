// Package notify delivers task updates to external conversations.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/logging"
)

// WebhookOptions configures NewWebhook.
type WebhookOptions struct {
	// Headers are added to every request, e.g. an authorization token.
	Headers    map[string]string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Webhook posts every notification as JSON to a fixed URL.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	logger  logging.Logger
}

var _ core.Notifier = (*Webhook)(nil)

// NewWebhook creates a notifier posting to url.
func NewWebhook(url string, optFns ...func(o *WebhookOptions)) *Webhook {
	opts := WebhookOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhook{
		url:     url,
		headers: opts.Headers,
		client:  opts.HTTPClient,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Payload is the JSON body of a webhook request.
type Payload struct {
	ConversationID string `json:"conversation_id"`
	DeviceID       string `json:"device_id"`
	Message        string `json:"message"`
	OriginalPrompt string `json:"original_prompt"`
	IsFinal        bool   `json:"is_final"`
}

// Notify implements core.Notifier. Any non-2xx status is an error.
func (w *Webhook) Notify(ctx context.Context, n core.Notification) error {
	body, err := json.Marshal(Payload{
		ConversationID: n.Target.ConversationID,
		DeviceID:       n.Target.DeviceID,
		Message:        n.Message,
		OriginalPrompt: n.OriginalPrompt,
		IsFinal:        n.IsFinal,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.Debug("Notification delivered", "conversation", n.Target.ConversationID, "final", n.IsFinal)
	return nil
}
