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
	"strings"
	"testing"
)

func TestLoadRules_Embedded(t *testing.T) {
	r, err := LoadRules(defaultRulesYAML)
	if err != nil {
		t.Fatalf("LoadRules failed on embedded YAML: %v", err)
	}

	if len(r.Escalation.Phrases) == 0 {
		t.Error("expected escalation phrases")
	}
	if len(r.Greetings) == 0 {
		t.Error("expected greetings")
	}

	orders := r.Intents[KindOrders]
	want := []string{"delivery", "status", "amount", "item", "customer", "location"}
	if len(orders.Rules) != len(want) {
		t.Fatalf("orders rules = %d, want %d", len(orders.Rules), len(want))
	}
	for i, intent := range want {
		if orders.Rules[i].Intent != intent {
			t.Errorf("orders rule[%d] = %q, want %q", i, orders.Rules[i].Intent, intent)
		}
	}
	if orders.Default != "full" {
		t.Errorf("orders default = %q, want full", orders.Default)
	}

	catalog := r.Intents[KindCatalog]
	wantCatalog := []string{"price", "availability", "description", "list", "style"}
	for i, intent := range wantCatalog {
		if catalog.Rules[i].Intent != intent {
			t.Errorf("catalog rule[%d] = %q, want %q", i, catalog.Rules[i].Intent, intent)
		}
	}
}

func TestLoadRules_MergedCatalogTemplates(t *testing.T) {
	r, err := LoadRules(defaultRulesYAML)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	products := r.Templates["products"]
	regional := r.Templates["regional_catalog"]
	if regional["price"] != products["price"] {
		t.Errorf("regional_catalog price template should be inherited from products")
	}
	if regional[TemplateNoReference] == products[TemplateNoReference] {
		t.Errorf("regional_catalog no_reference should override the products message")
	}
	if r.Templates["orders"][TemplateNotFound] == r.Templates["orders"][TemplateNoReference] {
		t.Errorf("not_found and no_reference must differ")
	}
}

func TestLoadRules_NormalizesKeywords(t *testing.T) {
	r, err := LoadRules(defaultRulesYAML)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	for kind, table := range r.Intents {
		for _, rule := range table.Rules {
			for _, kw := range rule.Keywords {
				if kw != strings.ToLower(strings.TrimSpace(kw)) {
					t.Errorf("%s/%s keyword %q not normalized", kind, rule.Intent, kw)
				}
			}
		}
	}
}

func TestLoadRules_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "empty",
			yaml: "",
		},
		{
			name: "no escalation phrases",
			yaml: `
escalation:
  phrases: []
`,
		},
		{
			name: "unknown intent",
			yaml: `
escalation:
  phrases: ["complaint"]
intents:
  orders:
    default: full
    rules:
      - intent: weather
        keywords: ["rain"]
  catalog:
    default: full
`,
		},
		{
			name: "missing templates",
			yaml: `
escalation:
  phrases: ["complaint"]
intents:
  orders:
    default: full
  catalog:
    default: full
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRules([]byte(tt.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestGetRules_Cached(t *testing.T) {
	ResetRules()
	defer ResetRules()

	first, err := GetRules()
	if err != nil {
		t.Fatalf("GetRules: %v", err)
	}
	second, err := GetRules()
	if err != nil {
		t.Fatalf("GetRules: %v", err)
	}
	if first != second {
		t.Error("expected the same cached instance")
	}
}
