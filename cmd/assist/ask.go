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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
)

func newAskCmd() *cobra.Command {
	var (
		tenantName string
		explain    bool
		dataDir    string
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Answer one message locally, without the HTTP server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServiceConfig(configPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			// Tickets raised from the CLI stay in memory.
			cfg.TicketDBPath = ""

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = a.Close(closeCtx)
			}()

			message := strings.Join(args, " ")
			d := a.engine.Decide(ctx, message, tenantName)

			out := cmd.OutOrStdout()
			if explain {
				fmt.Fprintf(out, "tenant:  %s\n", d.Tenant)
				fmt.Fprintf(out, "outcome: %s\n", d.Outcome)
				if d.Domain != "" {
					fmt.Fprintf(out, "domain:  %s\n", d.Domain)
					fmt.Fprintf(out, "intent:  %s\n", d.Intent)
				}
				if d.TicketID != "" {
					fmt.Fprintf(out, "ticket:  %s\n", d.TicketID)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, d.Reply)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tenantName, "tenant", "t", "default", "tenant name or alias")
	cmd.Flags().BoolVarP(&explain, "explain", "e", false, "print how the reply was reached")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "knowledge directory (overrides config)")
	return cmd
}
