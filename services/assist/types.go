// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assist

import (
	"time"
)

// MaxMessageLength bounds a chat message in characters.
const MaxMessageLength = 2000

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// Message is the customer's text.
	Message string `json:"message" binding:"required,max=2000"`

	// Tenant selects the storefront. Empty means the default tenant.
	Tenant string `json:"tenant" binding:"max=64"`
}

// ChatResponse is the body returned by POST /v1/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is the error envelope for every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// TicketResponse is the body returned by GET /v1/tickets/:id.
type TicketResponse struct {
	ID              string    `json:"id"`
	Tenant          string    `json:"tenant"`
	CreatedAt       time.Time `json:"created_at"`
	OriginalMessage string    `json:"original_message"`
}

// TenantStatus reports one tenant's loaded knowledge.
type TenantStatus struct {
	Name    string         `json:"name"`
	Records map[string]int `json:"records"`
}

// ReloadResponse is the body returned by POST /v1/admin/reload.
type ReloadResponse struct {
	Tenants    []TenantStatus `json:"tenants"`
	DurationMs int64          `json:"duration_ms"`
}

// HealthResponse is the body returned by the health endpoints.
type HealthResponse struct {
	Status  string         `json:"status"`
	Tenants []TenantStatus `json:"tenants,omitempty"`
}
