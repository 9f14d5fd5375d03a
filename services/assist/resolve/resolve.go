// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve maps free text to at most one record of a knowledge index.
package resolve

import (
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
)

// Outcome classifies a resolution attempt.
type Outcome int

const (
	// NoReference means the text names no identifier or record.
	NoReference Outcome = iota

	// NotFound means the text holds an identifier-shaped token that is not
	// in the index.
	NotFound

	// Found means a record was resolved.
	Found
)

// String returns the metric label of the outcome.
func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "no_reference"
	}
}

// Result is the outcome of resolving text against one domain.
type Result struct {
	Outcome Outcome
	Domain  knowledge.Domain

	// Record is set when Outcome is Found.
	Record knowledge.Record

	// Token is the identifier token that resolved or failed to resolve.
	// Empty for name matches and NoReference.
	Token string
}

// Referenced reports whether the text referred to anything in the domain.
func (r Result) Referenced() bool {
	return r.Outcome != NoReference
}

// Tokenize splits text into lower-cased runs of letters, digits and hyphens.
func Tokenize(text string) []string {
	return knowledge.Tokenize(text)
}

// Resolve finds the record text refers to in ix.
//
// Description:
//
//	Identifier-keyed domains scan tokens left to right; the first token in
//	the identifier set resolves. When none does, the leftmost token shaped
//	like an identifier of the domain yields NotFound. Name-keyed domains
//	use whole-word name containment. A domain keyed both ways tries the
//	identifier strategy first and falls back to names only when the text
//	carries no identifier-shaped token.
//
// Inputs:
//
//	text - Raw user text. May be empty.
//	ix - The index to resolve against. Nil yields NoReference.
//
// Outputs:
//
//	Result - Never an error; worst case NoReference.
//
// Thread Safety: Safe for concurrent use.
func Resolve(text string, ix *knowledge.Index) Result {
	if ix == nil {
		return Result{Outcome: NoReference}
	}
	domain := ix.Domain()
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return Result{Outcome: NoReference, Domain: domain}
	}

	if ix.IdentifierKeyed() {
		if res := resolveByID(tokens, ix); res.Referenced() {
			return res
		}
	}

	if ix.NameKeyed() {
		if rec, ok := ix.LookupByNameContainment(text); ok {
			return Result{Outcome: Found, Domain: domain, Record: rec}
		}
	}
	return Result{Outcome: NoReference, Domain: domain}
}

func resolveByID(tokens []string, ix *knowledge.Index) Result {
	domain := ix.Domain()
	for _, tok := range tokens {
		if !ix.ContainsToken(tok) {
			continue
		}
		if rec, ok := ix.LookupByID(tok); ok {
			return Result{Outcome: Found, Domain: domain, Record: rec, Token: tok}
		}
	}
	for _, tok := range tokens {
		if ix.LooksLikeID(tok) {
			return Result{Outcome: NotFound, Domain: domain, Token: tok}
		}
	}
	return Result{Outcome: NoReference, Domain: domain}
}
