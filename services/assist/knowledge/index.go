// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
)

// Index is the read-only lookup structure for one (tenant, domain) pair.
//
// Description:
//
//	Owns the records in source order, the set of lower-cased identifier
//	tokens built from the key field, and the lower-cased word list of each
//	record's name field. Built once by Build and never mutated, so the read
//	path takes no locks.
//
// Thread Safety: Immutable after Build; safe for concurrent use.
type Index struct {
	spec    config.DomainSpec
	records []Record
	ids     map[string]int
	names   [][]string
}

// Build constructs an Index from records.
//
// Description:
//
//	Pure and total. Records with an empty key value are kept for display but
//	never enter the identifier set; when two records share a key the first
//	in source order owns it. A spec without a key field yields an empty
//	identifier set and a spec without a name field yields no name lists.
//
// Inputs:
//
//	spec - The domain configuration (key field, name field, id pattern).
//	records - Parsed rows in source order. May be nil.
//
// Outputs:
//
//	*Index - Never nil.
func Build(spec config.DomainSpec, records []Record) *Index {
	ix := &Index{
		spec:    spec,
		records: records,
		ids:     make(map[string]int, len(records)),
	}

	if spec.KeyField != "" {
		for i, r := range records {
			key := normalizeToken(r.Get(spec.KeyField))
			if key == "" {
				continue
			}
			if _, dup := ix.ids[key]; !dup {
				ix.ids[key] = i
			}
		}
	}

	if spec.NameField != "" {
		ix.names = make([][]string, len(records))
		for i, r := range records {
			ix.names[i] = Tokenize(r.Get(spec.NameField))
		}
	}
	return ix
}

// Domain returns the domain tag of the index.
func (ix *Index) Domain() Domain {
	return Domain(ix.spec.Domain)
}

// Spec returns the domain configuration the index was built from.
func (ix *Index) Spec() config.DomainSpec {
	return ix.spec
}

// Len returns the number of records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Records returns the records in source order. The slice must not be modified.
func (ix *Index) Records() []Record {
	return ix.records
}

// IdentifierKeyed reports whether the domain resolves by primary key.
func (ix *Index) IdentifierKeyed() bool {
	return ix.spec.KeyField != ""
}

// NameKeyed reports whether the domain resolves by name containment.
func (ix *Index) NameKeyed() bool {
	return ix.spec.NameField != ""
}

// ContainsToken reports whether token is a known identifier.
//
// Thread Safety: Safe for concurrent use.
func (ix *Index) ContainsToken(token string) bool {
	_, ok := ix.ids[normalizeToken(token)]
	return ok
}

// LookupByID returns the record whose key field equals token, ignoring case
// and surrounding whitespace. Partial matches never resolve.
//
// Thread Safety: Safe for concurrent use.
func (ix *Index) LookupByID(token string) (Record, bool) {
	i, ok := ix.ids[normalizeToken(token)]
	if !ok {
		return Record{}, false
	}
	return ix.records[i], true
}

// LooksLikeID reports whether token has the shape of this domain's
// identifiers, whether or not it exists in the data.
func (ix *Index) LooksLikeID(token string) bool {
	if ix.spec.IDRegexp == nil {
		return false
	}
	return ix.spec.IDRegexp.MatchString(normalizeToken(token))
}

// LookupByNameContainment returns the first record, in source order, whose
// name words all appear as words of text.
//
// Description:
//
//	Word order is ignored and extra words in text are allowed, so "price of
//	the cocktail dress" matches "Cocktail Dress". Records with an empty name
//	never match. Ties are not disambiguated further.
//
// Inputs:
//
//	text - Raw user text.
//
// Outputs:
//
//	Record - The matching record.
//	bool - False when nothing matched or the domain has no name field.
//
// Thread Safety: Safe for concurrent use.
func (ix *Index) LookupByNameContainment(text string) (Record, bool) {
	if len(ix.names) == 0 {
		return Record{}, false
	}
	words := make(map[string]struct{})
	for _, w := range Tokenize(text) {
		words[w] = struct{}{}
	}
	if len(words) == 0 {
		return Record{}, false
	}

	for i, name := range ix.names {
		if len(name) == 0 {
			continue
		}
		if containsAll(words, name) {
			return ix.records[i], true
		}
	}
	return Record{}, false
}

// Names returns the display names of the records in source order, skipping
// empty ones, capped at limit when limit > 0.
func (ix *Index) Names(limit int) []string {
	if ix.spec.NameField == "" {
		return nil
	}
	var out []string
	for _, r := range ix.records {
		if limit > 0 && len(out) >= limit {
			break
		}
		if n := r.Get(ix.spec.NameField); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAll(set map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// Tokenize splits text into maximal runs of letters, digits and hyphens,
// lower-cased. Everything else separates tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
