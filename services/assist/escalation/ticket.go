// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package escalation creates support tickets and delivers them to human
// support without blocking the reply to the customer.
package escalation

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketPrefix starts every ticket id.
const TicketPrefix = "TKT-"

var ticketIDPattern = regexp.MustCompile(`^TKT-[0-9A-F]{8}$`)

// Ticket is a request for human follow-up.
type Ticket struct {
	ID              string    `json:"id"`
	Tenant          string    `json:"tenant"`
	CreatedAt       time.Time `json:"created_at"`
	OriginalMessage string    `json:"original_message"`
}

// NewTicket creates a ticket with a fresh id.
//
// Description:
//
//	The id is TKT- followed by eight upper-case hex characters taken from a
//	random UUID. Collisions are improbable but not ruled out.
func NewTicket(tenant, message string, now time.Time) Ticket {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return Ticket{
		ID:              TicketPrefix + strings.ToUpper(raw[:8]),
		Tenant:          tenant,
		CreatedAt:       now.UTC(),
		OriginalMessage: message,
	}
}

// ValidTicketID reports whether id has the ticket id format.
func ValidTicketID(id string) bool {
	return ticketIDPattern.MatchString(id)
}

// Notifier delivers a ticket to human support.
//
// Implementations must honour ctx cancellation and be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, t Ticket) error
}

// Sink accepts tickets from the dialogue engine. *Dispatcher satisfies it.
type Sink interface {
	Dispatch(t Ticket)
}
