// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Dialogue Rules
// =============================================================================

//go:embed rules.yaml
var defaultRulesYAML []byte

// MaxYAMLFileSize bounds every YAML document this package parses.
const MaxYAMLFileSize = 1 << 20

// Intent vocabulary keys used in rules.yaml.
const (
	KindOrders  = "orders"
	KindCatalog = "catalog"
)

// Reply keys that must be present in the replies section.
const (
	ReplyGreeting      = "greeting"
	ReplyEscalated     = "escalated"
	ReplyFallback      = "fallback"
	ReplyNoInformation = "no_information"
	ReplyList          = "list"
)

// Guidance template keys every domain must define next to its intents.
const (
	TemplateNotFound    = "not_found"
	TemplateNoReference = "no_reference"
)

// KindIntents lists the closed intent vocabulary per domain kind.
// Every intent here needs a template for every domain of that kind.
var KindIntents = map[string][]string{
	KindOrders:  {"delivery", "status", "amount", "item", "customer", "location", "full"},
	KindCatalog: {"price", "availability", "description", "list", "style", "full"},
}

// DomainKinds maps each known knowledge domain to its intent vocabulary.
var DomainKinds = map[string]string{
	"orders":           KindOrders,
	"products":         KindCatalog,
	"regional_catalog": KindCatalog,
}

// =============================================================================
// Rule Types
// =============================================================================

// Rules holds every data table the dialogue engine evaluates.
//
// Description:
//
//	Escalation phrases, greeting phrases, ordered intent rules per domain
//	kind, response templates per domain and intent, and the fixed replies.
//	Adding a keyword or a template is a change to rules.yaml, not to code.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Rules struct {
	Escalation EscalationRules              `yaml:"escalation"`
	Greetings  []string                     `yaml:"greetings"`
	Intents    map[string]IntentTable       `yaml:"intents"`
	Templates  map[string]map[string]string `yaml:"templates"`
	Replies    map[string]string            `yaml:"replies"`
}

// EscalationRules lists phrases that route a message to human support.
type EscalationRules struct {
	Phrases []string `yaml:"phrases"`
}

// IntentTable is the ordered rule list for one domain kind.
type IntentTable struct {
	// Default is returned when no rule matches.
	Default string `yaml:"default"`

	// Rules are evaluated in order; first match wins.
	Rules []IntentRule `yaml:"rules"`
}

// IntentRule maps a keyword set to an intent tag.
type IntentRule struct {
	Intent   string   `yaml:"intent"`
	Keywords []string `yaml:"keywords"`
}

// =============================================================================
// Singleton Rules
// =============================================================================

var (
	rulesMu      sync.RWMutex
	rulesOnce    sync.Once
	cachedRules  *Rules
	rulesLoadErr error
)

// GetRules returns the cached embedded rule tables.
//
// Description:
//
//	Loads rules.yaml on first call and caches the result. Intended for
//	process start-up; tests build their own tables with LoadRules.
//
// Outputs:
//
//	*Rules - The loaded rules. Never nil on success.
//	error - Non-nil if parsing or validation failed.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetRules() (*Rules, error) {
	rulesMu.RLock()
	if cachedRules != nil || rulesLoadErr != nil {
		r, err := cachedRules, rulesLoadErr
		rulesMu.RUnlock()
		return r, err
	}
	rulesMu.RUnlock()

	rulesMu.Lock()
	defer rulesMu.Unlock()

	rulesOnce.Do(func() {
		cachedRules, rulesLoadErr = LoadRules(defaultRulesYAML)
	})
	return cachedRules, rulesLoadErr
}

// ResetRules clears the cached rules so tests can reload them.
//
// Thread Safety: Safe for concurrent use.
func ResetRules() {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	cachedRules = nil
	rulesLoadErr = nil
	rulesOnce = sync.Once{}
}

// LoadRules parses and validates a Rules document from YAML bytes.
//
// Description:
//
//	Keywords and phrases are lower-cased and trimmed so matching can use
//	plain substring tests against lower-cased input. Validation checks that
//	every domain defines a template for every intent of its kind plus both
//	guidance messages, and that every fixed reply is present.
//
// Inputs:
//
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*Rules - The validated rules.
//	error - Non-nil if parsing or validation fails.
func LoadRules(data []byte) (*Rules, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("LoadRules: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadRules: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("LoadRules: parsing YAML: %w", err)
	}

	r.Escalation.Phrases = normalizePhrases(r.Escalation.Phrases)
	r.Greetings = normalizePhrases(r.Greetings)
	for kind, table := range r.Intents {
		for i := range table.Rules {
			table.Rules[i].Keywords = normalizePhrases(table.Rules[i].Keywords)
		}
		r.Intents[kind] = table
	}

	if err := validateRules(&r); err != nil {
		return nil, fmt.Errorf("LoadRules: validation: %w", err)
	}

	slog.Info("dialogue rules loaded",
		slog.Int("escalation_phrases", len(r.Escalation.Phrases)),
		slog.Int("greetings", len(r.Greetings)),
		slog.Int("intent_tables", len(r.Intents)),
		slog.Int("template_domains", len(r.Templates)),
	)
	return &r, nil
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateRules checks the tables for completeness.
func validateRules(r *Rules) error {
	if len(r.Escalation.Phrases) == 0 {
		return fmt.Errorf("escalation.phrases must not be empty")
	}

	for kind, intents := range KindIntents {
		table, ok := r.Intents[kind]
		if !ok {
			return fmt.Errorf("intents.%s: missing table", kind)
		}
		if !slices.Contains(intents, table.Default) {
			return fmt.Errorf("intents.%s: default %q is not a %s intent", kind, table.Default, kind)
		}
		for i, rule := range table.Rules {
			if !slices.Contains(intents, rule.Intent) {
				return fmt.Errorf("intents.%s.rules[%d]: unknown intent %q", kind, i, rule.Intent)
			}
			if len(rule.Keywords) == 0 {
				return fmt.Errorf("intents.%s.rules[%d] (%s): keywords must not be empty", kind, i, rule.Intent)
			}
		}
	}

	for domain, kind := range DomainKinds {
		templates, ok := r.Templates[domain]
		if !ok {
			return fmt.Errorf("templates.%s: missing", domain)
		}
		required := append([]string{TemplateNotFound, TemplateNoReference}, KindIntents[kind]...)
		for _, key := range required {
			if strings.TrimSpace(templates[key]) == "" {
				return fmt.Errorf("templates.%s.%s: must not be empty", domain, key)
			}
		}
	}

	for _, key := range []string{ReplyGreeting, ReplyEscalated, ReplyFallback, ReplyNoInformation, ReplyList} {
		if strings.TrimSpace(r.Replies[key]) == "" {
			return fmt.Errorf("replies.%s: must not be empty", key)
		}
	}
	return nil
}
