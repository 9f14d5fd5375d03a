// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command assist runs the storefront assistant.
//
// Usage:
//
//	assist serve --config assist.yaml
//	assist ask --tenant paris "price of Cocktail Dress"
//	assist tickets --db /var/lib/assist/tickets
//
// Example requests:
//
//	curl -X POST http://localhost:8080/v1/chat \
//	  -H "Content-Type: application/json" \
//	  -d '{"message": "where is order JB3001", "tenant": "india"}'
//
//	curl http://localhost:8080/v1/tickets/TKT-0A1B2C3D
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugLogs  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "assist",
		Short:         "Storefront assistant: order and catalog answers with human escalation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), debugLogs))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to service config YAML (optional)")
	root.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newAskCmd(), newTicketsCmd())
	return root
}

// newLogger writes text logs to a terminal and JSON logs otherwise.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
