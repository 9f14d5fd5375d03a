// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compose

import (
	"strings"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
)

// recordView is the data handed to record templates.
type recordView struct {
	rec      knowledge.Record
	spec     config.DomainSpec
	currency string
	token    string
}

// ID returns the id role, or the key field when no id role is mapped.
func (v recordView) ID() string {
	if id := v.Role("id"); id != "" {
		return id
	}
	if v.spec.KeyField != "" {
		return v.rec.Get(v.spec.KeyField)
	}
	return ""
}

// Name returns the name role, or the name field when no name role is mapped.
func (v recordView) Name() string {
	if n := v.Role("name"); n != "" {
		return n
	}
	if v.spec.NameField != "" {
		return v.rec.Get(v.spec.NameField)
	}
	return v.ID()
}

// Role joins the non-empty values of the fields mapped to role.
func (v recordView) Role(role string) string {
	var parts []string
	for _, f := range v.spec.Roles[role] {
		if val := v.rec.Get(f); val != "" {
			parts = append(parts, val)
		}
	}
	return strings.Join(parts, ", ")
}

// Money is Role prefixed with the tenant currency.
func (v recordView) Money(role string) string {
	return v.money(v.Role(role))
}

// Token is the identifier the user typed, for not-found messages.
func (v recordView) Token() string {
	return v.token
}

// Full lists every configured field with a value, one "Label: value" per
// line, in the tenant's field order.
func (v recordView) Full() string {
	var lines []string
	for _, f := range v.spec.Fields {
		val := v.rec.Get(f.Name)
		if val == "" {
			continue
		}
		if f.Money {
			val = v.money(val)
		}
		lines = append(lines, f.Label+": "+val)
	}
	return strings.Join(lines, "\n")
}

func (v recordView) money(val string) string {
	if val == "" || strings.HasPrefix(val, v.currency) {
		return val
	}
	return v.currency + val
}
