// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assist exposes the storefront assistant over HTTP.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianStorefront/services/assist/dialogue"
	"github.com/AleutianAI/AleutianStorefront/services/assist/escalation"
	"github.com/AleutianAI/AleutianStorefront/services/assist/tenant"
)

const requestIDHeader = "X-Request-ID"

// Responder answers one chat message. Satisfied by *dialogue.Engine.
type Responder interface {
	Handle(ctx context.Context, message, tenantSelector string) dialogue.Reply
}

// Knowledge exposes the active tenant table and reloads it. Satisfied by
// *tenant.Registry.
type Knowledge interface {
	Current() *tenant.Router
	Reload(ctx context.Context) (*tenant.Router, error)
}

// Handlers serves the assistant endpoints.
//
// Thread Safety: Safe for concurrent use. Handlers holds no mutable state.
type Handlers struct {
	responder Responder
	knowledge Knowledge
	tickets   escalation.Store
}

// NewHandlers creates Handlers. tickets may be nil, in which case ticket
// lookup answers 503.
func NewHandlers(responder Responder, knowledge Knowledge, tickets escalation.Store) *Handlers {
	return &Handlers{responder: responder, knowledge: knowledge, tickets: tickets}
}

// HandleChat handles POST /v1/chat.
//
// Description:
//
//	Answers one message. The response carries only the reply text.
//
// Request Body:
//
//	ChatRequest
//
// Response:
//
//	200 OK: ChatResponse
//	400 Bad Request: Missing or oversized message
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleChat(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleChat")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Info("Invalid chat request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("message is required and must be at most %d characters", MaxMessageLength),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "message must not be blank",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	reply := h.responder.Handle(c.Request.Context(), req.Message, req.Tenant)
	c.JSON(http.StatusOK, ChatResponse{Reply: reply.Reply})
}

// HandleTicket handles GET /v1/tickets/:id.
//
// Response:
//
//	200 OK: TicketResponse
//	400 Bad Request: Malformed ticket id
//	404 Not Found: Unknown or expired ticket
//	503 Service Unavailable: No ticket store configured
func (h *Handlers) HandleTicket(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleTicket")

	if h.tickets == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "ticket storage is not configured",
			Code:  "STORE_UNAVAILABLE",
		})
		return
	}

	id := strings.ToUpper(strings.TrimSpace(c.Param("id")))
	if !escalation.ValidTicketID(id) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "ticket id must look like TKT-0A1B2C3D",
			Code:  "INVALID_TICKET_ID",
		})
		return
	}

	t, err := h.tickets.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, escalation.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "ticket not found",
				Code:  "TICKET_NOT_FOUND",
			})
			return
		}
		logger.Error("Ticket lookup failed", slog.String("ticket_id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "ticket lookup failed",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, TicketResponse{
		ID:              t.ID,
		Tenant:          t.Tenant,
		CreatedAt:       t.CreatedAt,
		OriginalMessage: t.OriginalMessage,
	})
}

// HandleReload handles POST /v1/admin/reload.
//
// Description:
//
//	Rebuilds every knowledge index from disk and swaps them in. A failed
//	reload leaves the previous knowledge active.
//
// Response:
//
//	200 OK: ReloadResponse
//	500 Internal Server Error: Reload failed; previous knowledge still active
func (h *Handlers) HandleReload(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleReload")

	start := time.Now()
	router, err := h.knowledge.Reload(c.Request.Context())
	if err != nil {
		logger.Error("Knowledge reload failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "reload failed; previous knowledge is still active",
			Code:  "RELOAD_FAILED",
		})
		return
	}

	logger.Info("Knowledge reloaded", slog.Duration("duration", time.Since(start)))
	c.JSON(http.StatusOK, ReloadResponse{
		Tenants:    tenantStatus(router),
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// HandleHealth handles GET /v1/health. Always 200 while the process runs.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// HandleReady handles GET /v1/ready.
//
// Response:
//
//	200 OK: Knowledge loaded, with per-tenant record counts
//	503 Service Unavailable: No tenant table loaded
func (h *Handlers) HandleReady(c *gin.Context) {
	router := h.knowledge.Current()
	if router == nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "not_ready"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Tenants: tenantStatus(router)})
}

func tenantStatus(r *tenant.Router) []TenantStatus {
	if r == nil {
		return nil
	}
	ctxs := r.Tenants()
	out := make([]TenantStatus, 0, len(ctxs))
	for _, tc := range ctxs {
		out = append(out, TenantStatus{Name: tc.Name, Records: tc.Records()})
	}
	return out
}

// getOrCreateRequestID returns the caller's X-Request-ID or a new one, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	return id
}
