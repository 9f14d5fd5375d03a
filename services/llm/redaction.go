// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"regexp"
	"unicode/utf8"
)

// maxSafeLogLen caps the length of a redacted string. Upstream error bodies
// can be arbitrarily large HTML pages.
const maxSafeLogLen = 512

type redactionPattern struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// redactionPatterns is applied in order. Project keys (sk-proj-) must come
// before the generic sk- pattern.
var redactionPatterns = []redactionPattern{
	{
		Pattern:     regexp.MustCompile(`sk-proj-[A-Za-z0-9_-]{20,}`),
		Replacement: "[REDACTED:openai_key]",
	},
	{
		Pattern:     regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		Replacement: "[REDACTED:openai_key]",
	},
	{
		Pattern:     regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]{10,}`),
		Replacement: "[REDACTED:bearer_token]",
	},
	// Slack and similar webhook URLs carry the secret in the path.
	{
		Pattern:     regexp.MustCompile(`https://hooks\.[A-Za-z0-9.-]+/[^\s"']+`),
		Replacement: "[REDACTED:webhook_url]",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(token|secret|key)=[A-Za-z0-9._-]{8,}`),
		Replacement: "${1}=[REDACTED]",
	},
	{
		Pattern:     regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		Replacement: "[REDACTED:email]",
	},
	{
		Pattern:     regexp.MustCompile(`\+?\d[\d\s-]{8,}\d`),
		Replacement: "[REDACTED:phone]",
	},
}

// SafeLogString redacts secrets and customer contact details from a string
// before it is logged or wrapped into an error.
//
// Description:
//
//	Applies redactionPatterns in order, replacing each match with a labelled
//	placeholder such as [REDACTED:openai_key], then truncates the result to
//	maxSafeLogLen runes. Customer messages reach logs through escalation
//	tickets, so emails and phone numbers are masked as well as credentials.
//
// Examples:
//
//	SafeLogString("401: sk-abcdefghijklmnopqrstuvwxyz1234 invalid")
//	// Returns: "401: [REDACTED:openai_key] invalid"
//
// Limitations:
//
//	Pattern-based only. A secret in an unknown format passes through.
//
// Thread Safety: This function is safe for concurrent use.
func SafeLogString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range redactionPatterns {
		s = p.Pattern.ReplaceAllString(s, p.Replacement)
	}
	if utf8.RuneCountInString(s) > maxSafeLogLen {
		s = string([]rune(s)[:maxSafeLogLen]) + "..."
	}
	return s
}
