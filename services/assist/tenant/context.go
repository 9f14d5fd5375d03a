// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tenant maps tenant selectors to isolated knowledge and formatting
// contexts, and keeps that mapping current when knowledge sources change.
package tenant

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
)

// Context is everything the dialogue needs about one tenant.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Context struct {
	Name     string
	Brand    string
	Currency string
	Examples []string

	// Indexes are sorted by domain priority.
	Indexes []*knowledge.Index
}

// Index returns the tenant's index for domain, or nil.
func (c *Context) Index(domain knowledge.Domain) *knowledge.Index {
	for _, ix := range c.Indexes {
		if ix.Domain() == domain {
			return ix
		}
	}
	return nil
}

// Records returns the record count per domain.
func (c *Context) Records() map[string]int {
	out := make(map[string]int, len(c.Indexes))
	for _, ix := range c.Indexes {
		out[string(ix.Domain())] = ix.Len()
	}
	return out
}

// Router resolves selectors to tenant contexts.
//
// Description:
//
//	Selectors are matched case-insensitively against tenant names and
//	aliases. Unknown or empty selectors get the default tenant. Every
//	tenant owns its own indexes; nothing is shared across tenants.
//
// Thread Safety: Immutable after NewRouter; safe for concurrent use.
type Router struct {
	tenants   map[string]*Context
	selectors map[string]*Context
	fallback  *Context
}

// NewRouter builds a Router from a tenant table and the loaded indexes.
//
// Inputs:
//
//	cfg - The validated tenant table.
//	set - Indexes per tenant name, as returned by knowledge.Loader.Load.
//	      Tenants missing from set get empty indexes.
//
// Outputs:
//
//	*Router - The router.
//	error - Non-nil if the default tenant is not in cfg.
func NewRouter(cfg *config.TenantsConfig, set knowledge.Set) (*Router, error) {
	r := &Router{
		tenants:   make(map[string]*Context, len(cfg.Tenants)),
		selectors: make(map[string]*Context),
	}

	for _, spec := range cfg.Tenants {
		indexes := set[spec.Name]
		if len(indexes) != len(spec.Domains) {
			indexes = make([]*knowledge.Index, len(spec.Domains))
			for i, d := range spec.Domains {
				indexes[i] = knowledge.Build(d, nil)
			}
		}
		sorted := slices.Clone(indexes)
		slices.SortStableFunc(sorted, func(a, b *knowledge.Index) int {
			return a.Domain().Rank() - b.Domain().Rank()
		})

		ctx := &Context{
			Name:     spec.Name,
			Brand:    spec.Brand,
			Currency: spec.Currency,
			Examples: slices.Clone(spec.Examples),
			Indexes:  sorted,
		}
		r.tenants[normalize(spec.Name)] = ctx
		r.selectors[normalize(spec.Name)] = ctx
		for _, a := range spec.Aliases {
			r.selectors[normalize(a)] = ctx
		}
	}

	def, ok := r.tenants[normalize(cfg.DefaultTenant)]
	if !ok {
		return nil, fmt.Errorf("tenant router: default tenant %q not found", cfg.DefaultTenant)
	}
	r.fallback = def
	return r, nil
}

// Resolve returns the context for selector, or the default tenant's.
func (r *Router) Resolve(selector string) *Context {
	if c, ok := r.selectors[normalize(selector)]; ok {
		return c
	}
	return r.fallback
}

// Default returns the default tenant's context.
func (r *Router) Default() *Context {
	return r.fallback
}

// Tenants returns every tenant context sorted by name.
func (r *Router) Tenants() []*Context {
	out := make([]*Context, 0, len(r.tenants))
	for _, c := range r.tenants {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Context) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
