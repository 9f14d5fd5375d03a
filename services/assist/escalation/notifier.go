// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianStorefront/services/llm"
)

// maxErrorBody bounds how much of a failed webhook response is logged.
const maxErrorBody = 512

// =============================================================================
// Log Notifier
// =============================================================================

// LogNotifier writes tickets to the log. Used when no webhook is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the ticket at warn level so it stands out in operations logs.
func (n LogNotifier) Notify(ctx context.Context, t Ticket) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("support ticket created",
		slog.String("ticket_id", t.ID),
		slog.String("tenant", t.Tenant),
		slog.Time("created_at", t.CreatedAt),
		slog.Int("message_len", len(t.OriginalMessage)),
	)
	return nil
}

// =============================================================================
// Webhook Notifier
// =============================================================================

// WebhookNotifier posts tickets as JSON to an HTTP endpoint.
//
// Description:
//
//	Any 2xx status is success. The request carries the ticket fields as the
//	body. Retrying is left to the receiving side; a failed delivery is
//	reported to the caller once.
//
// Thread Safety: Safe for concurrent use.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a notifier for url. A zero timeout uses 10s.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify posts t to the webhook.
//
// Inputs:
//
//	ctx - Cancellation and deadline for the request.
//	t - The ticket.
//
// Outputs:
//
//	error - Non-nil on transport failure or a non-2xx status. The error text
//	        has known secret patterns redacted.
func (n *WebhookNotifier) Notify(ctx context.Context, t Ticket) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("webhook: marshal ticket: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %s", llm.SafeLogString(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, llm.SafeLogString(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
