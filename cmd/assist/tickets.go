// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/escalation"
)

// newTicketsCmd inspects a ticket database. The server must not be running
// against the same directory: BadgerDB allows one writer.
func newTicketsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect stored escalation tickets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := ticketDBPath(dbPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ticket store: %s\n", path)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "The ticket store does not exist yet. No tickets have been raised.")
				return nil
			}

			store, err := escalation.OpenBadgerStoreReadOnly(path, slog.Default())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			tickets, err := store.List(ctx)
			if err != nil {
				return err
			}
			printTickets(out, tickets, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "ticket database directory (overrides config and ASSIST_TICKET_DB)")
	return cmd
}

func ticketDBPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.LoadServiceConfig(configPath)
	if err != nil {
		return "", err
	}
	if cfg.TicketDBPath == "" {
		return "", fmt.Errorf("no ticket database configured; pass --db or set ASSIST_TICKET_DB")
	}
	return cfg.TicketDBPath, nil
}

func printTickets(w io.Writer, tickets []escalation.StoredTicket, now time.Time) {
	if len(tickets) == 0 {
		fmt.Fprintln(w, "\nNo tickets found.")
		return
	}
	fmt.Fprintf(w, "\nFound %d ticket%s:\n", len(tickets), plural(len(tickets)))
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for i, t := range tickets {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, t.ID)
		if t.DecodeErr != nil {
			fmt.Fprintf(w, "    DECODE ERROR: %v\n", t.DecodeErr)
			continue
		}
		fmt.Fprintf(w, "    Tenant:  %s\n", t.Tenant)
		fmt.Fprintf(w, "    Created: %s\n", t.CreatedAt.Format(time.RFC3339))
		if !t.ExpiresAt.IsZero() {
			fmt.Fprintf(w, "    Expires: in %s\n", t.ExpiresAt.Sub(now).Round(time.Hour))
		}
		fmt.Fprintf(w, "    Message: %s\n", t.OriginalMessage)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
