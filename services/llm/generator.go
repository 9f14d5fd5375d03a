// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the optional text-generation collaborator used to
// phrase replies from a bounded knowledge excerpt.
package llm

import (
	"context"
)

// Generator phrases a reply from a context string and the user's message.
//
// Implementations must be safe for concurrent use and honour ctx.
type Generator interface {
	Generate(ctx context.Context, systemContext, userMessage string) (string, error)
}

// GenerationParams tunes a completion. Nil fields use the provider default.
type GenerationParams struct {
	Temperature *float32
	MaxTokens   *int
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, systemContext, userMessage string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, systemContext, userMessage string) (string, error) {
	return f(ctx, systemContext, userMessage)
}
