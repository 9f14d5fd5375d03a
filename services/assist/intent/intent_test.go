// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package intent

import (
	"testing"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
)

func loadRules(t *testing.T) *config.Rules {
	t.Helper()
	r, err := config.GetRules()
	if err != nil {
		t.Fatalf("GetRules: %v", err)
	}
	return r
}

func TestClassify_Orders(t *testing.T) {
	c := NewClassifier(loadRules(t))

	tests := []struct {
		text string
		want Intent
	}{
		{"When will JB3001 be delivered?", "delivery"},
		{"Status of order JB3001", "status"},
		{"track JB3001", "status"},
		{"What is the total for JB3001", "amount"},
		{"what did i buy in JB3001", "item"},
		{"who placed PA2001", "customer"},
		{"which city is PA2001 shipping to", "location"},
		{"JB3001", Full},
		{"", Full},
		// Delivery outranks status when both match.
		{"status of delivery for JB3001", "delivery"},
		// Status outranks amount.
		{"track the total of JB3001", "status"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.Classify(tt.text, config.KindOrders); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_Catalog(t *testing.T) {
	c := NewClassifier(loadRules(t))

	tests := []struct {
		text string
		want Intent
	}{
		{"price of Cocktail Dress", "price"},
		{"How much is the Velvet Gown", "price"},
		{"is the silk saree in stock", "availability"},
		{"tell me about P101", "description"},
		{"show me the collection", List},
		{"how to style the velvet gown", "style"},
		{"velvet gown", Full},
		// Price outranks availability.
		{"price and availability of P101", "price"},
		// List outranks style.
		{"list your style picks", List},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.Classify(tt.text, config.KindCatalog); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := NewClassifier(loadRules(t))
	texts := []string{"price of P101", "where is JB3001", "random words", ""}
	for _, kind := range []string{config.KindOrders, config.KindCatalog} {
		for _, text := range texts {
			first := c.Classify(text, kind)
			for i := 0; i < 3; i++ {
				if got := c.Classify(text, kind); got != first {
					t.Errorf("Classify(%q, %s) changed from %q to %q", text, kind, first, got)
				}
			}
		}
	}
}

func TestClassify_UnknownKind(t *testing.T) {
	c := NewClassifier(loadRules(t))
	if got := c.Classify("price", "weather"); got != Full {
		t.Errorf("unknown kind = %q, want full", got)
	}
}

func TestShouldEscalate(t *testing.T) {
	d := NewEscalationDetector(loadRules(t))

	tests := []struct {
		text string
		want bool
	}{
		{"I have a complaint about order JB3001", true},
		{"I want to TALK TO A HUMAN", true},
		{"please escalate this", true},
		{"I am not happy with my order", true},
		{"Status of order JB3001", false},
		{"hello", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := d.ShouldEscalate(tt.text); got != tt.want {
			t.Errorf("ShouldEscalate(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsGreeting(t *testing.T) {
	d := NewGreetingDetector(loadRules(t))

	tests := []struct {
		text string
		want bool
	}{
		{"hello", true},
		{"  Hello!  ", true},
		{"HI", true},
		{"good morning.", true},
		{"hey?!", true},
		{"hello, where is JB3001", false},
		{"high", false},
		{"", false},
		{"!!!", false},
	}
	for _, tt := range tests {
		if got := d.IsGreeting(tt.text); got != tt.want {
			t.Errorf("IsGreeting(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
