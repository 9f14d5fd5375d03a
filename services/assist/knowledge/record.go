// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge holds the read-only record indexes the assistant answers
// from, and the loader that builds them from CSV sources.
package knowledge

import (
	"strings"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
)

// Domain tags a knowledge category.
type Domain string

const (
	DomainOrders          Domain = "orders"
	DomainProducts        Domain = "products"
	DomainRegionalCatalog Domain = "regional_catalog"
)

// Priority is the fixed order in which a tenant's domains are scanned.
// The first domain that references anything wins.
var Priority = []Domain{DomainOrders, DomainProducts, DomainRegionalCatalog}

// Kind returns the intent vocabulary key of the domain (orders or catalog).
func (d Domain) Kind() string {
	return config.DomainKinds[string(d)]
}

// Rank returns the scan position of d, or len(Priority) for unknown domains.
func (d Domain) Rank() int {
	for i, p := range Priority {
		if p == d {
			return i
		}
	}
	return len(Priority)
}

// Field is one named value of a record.
type Field struct {
	Name  string
	Value string
}

// Record is one row of a knowledge source: an ordered field-name to value
// mapping.
//
// Thread Safety: Immutable after NewRecord; safe for concurrent use.
type Record struct {
	fields []Field
}

// NewRecord copies fields into a new Record. Field values are trimmed.
// When a name repeats, the first occurrence wins for Get.
func NewRecord(fields []Field) Record {
	cp := make([]Field, len(fields))
	for i, f := range fields {
		cp[i] = Field{Name: strings.TrimSpace(f.Name), Value: strings.TrimSpace(f.Value)}
	}
	return Record{fields: cp}
}

// Get returns the value of the named field, or "" when absent.
func (r Record) Get(name string) string {
	v, _ := r.Lookup(name)
	return v
}

// Lookup returns the value of the named field and whether it exists.
func (r Record) Lookup(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Fields returns a copy of the fields in source order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// IsZero reports whether r holds no fields.
func (r Record) IsZero() bool {
	return len(r.fields) == 0
}
