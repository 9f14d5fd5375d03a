// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package intent holds the keyword rule matchers: intent classification,
// escalation detection and greeting detection.
package intent

import (
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
)

// Intent names the aspect of a record the user asks about.
type Intent string

// Full renders every field of a record. It is also the default of both
// vocabularies.
const Full Intent = "full"

// List asks for the names in a catalog.
const List Intent = "list"

// =============================================================================
// Classifier
// =============================================================================

// Classifier maps text to an intent using ordered keyword tables.
//
// Description:
//
//	One table per domain kind. Rules are checked in order and the first rule
//	with a keyword contained in the lower-cased text wins. Text matching no
//	rule gets the table default. An unknown kind yields Full.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Classifier struct {
	tables map[string]config.IntentTable
}

// NewClassifier creates a Classifier from the intent tables of rules.
func NewClassifier(rules *config.Rules) *Classifier {
	return &Classifier{tables: rules.Intents}
}

// Classify returns the intent of text for the given domain kind.
//
// Inputs:
//
//	text - Raw user text.
//	kind - config.KindOrders or config.KindCatalog.
//
// Outputs:
//
//	Intent - Never empty.
func (c *Classifier) Classify(text, kind string) Intent {
	table, ok := c.tables[kind]
	if !ok {
		return Full
	}
	lower := strings.ToLower(text)
	for _, rule := range table.Rules {
		if containsAny(lower, rule.Keywords) {
			return Intent(rule.Intent)
		}
	}
	if table.Default == "" {
		return Full
	}
	return Intent(table.Default)
}

// =============================================================================
// Escalation
// =============================================================================

// EscalationDetector decides whether a message goes to human support.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type EscalationDetector struct {
	phrases []string
}

// NewEscalationDetector creates a detector over the escalation phrases of rules.
func NewEscalationDetector(rules *config.Rules) *EscalationDetector {
	return &EscalationDetector{phrases: rules.Escalation.Phrases}
}

// ShouldEscalate reports whether text contains any escalation phrase,
// ignoring case. Tenant independent.
func (d *EscalationDetector) ShouldEscalate(text string) bool {
	return containsAny(strings.ToLower(text), d.phrases)
}

// =============================================================================
// Greetings
// =============================================================================

// GreetingDetector recognizes a bare greeting.
type GreetingDetector struct {
	phrases map[string]struct{}
}

// NewGreetingDetector creates a detector over the greeting phrases of rules.
func NewGreetingDetector(rules *config.Rules) *GreetingDetector {
	set := make(map[string]struct{}, len(rules.Greetings))
	for _, g := range rules.Greetings {
		set[g] = struct{}{}
	}
	return &GreetingDetector{phrases: set}
}

// IsGreeting reports whether the whole message is a greeting phrase.
// Case, surrounding whitespace and trailing punctuation are ignored, so
// "Hello!" greets and "hello, where is JB3001" does not.
func (d *GreetingDetector) IsGreeting(text string) bool {
	norm := strings.TrimRightFunc(strings.ToLower(strings.TrimSpace(text)), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	if norm == "" {
		return false
	}
	_, ok := d.phrases[norm]
	return ok
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
