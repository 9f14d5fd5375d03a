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
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed tenants.yaml
var defaultTenantsYAML []byte

// TenantsConfig is the declarative tenant table.
//
// Description:
//
//	Each tenant lists its knowledge domains with the source file, the key
//	and name fields used for resolution, the display field order and the
//	role mapping consumed by response templates. Per-tenant schema
//	differences live here rather than in code.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type TenantsConfig struct {
	// DefaultTenant receives unknown or empty selectors.
	DefaultTenant string `yaml:"default_tenant" validate:"required"`

	Tenants []TenantSpec `yaml:"tenants" validate:"required,min=1,dive"`
}

// TenantSpec describes one tenant.
type TenantSpec struct {
	Name     string       `yaml:"name" validate:"required"`
	Aliases  []string     `yaml:"aliases"`
	Brand    string       `yaml:"brand" validate:"required"`
	Currency string       `yaml:"currency" validate:"required"`
	Examples []string     `yaml:"examples"`
	Domains  []DomainSpec `yaml:"domains" validate:"dive"`
}

// DomainSpec describes one knowledge source of a tenant.
type DomainSpec struct {
	Domain string `yaml:"domain" validate:"required"`

	// Title names the domain in list replies ("Christmas collection").
	Title string `yaml:"title"`

	// Source is the CSV path relative to the data directory.
	Source string `yaml:"source" validate:"required"`

	// KeyField is the primary-key column for identifier-keyed domains.
	KeyField string `yaml:"key_field"`

	// NameField is the column matched by name containment.
	NameField string `yaml:"name_field"`

	// IDPattern recognizes tokens shaped like this domain's identifiers.
	// Tokens matching it but absent from the data resolve as not found.
	IDPattern string `yaml:"id_pattern"`

	Fields []FieldSpec         `yaml:"fields" validate:"required,min=1,dive"`
	Roles  map[string][]string `yaml:"roles"`

	// IDRegexp is IDPattern compiled during loading. Nil when unset.
	IDRegexp *regexp.Regexp `yaml:"-"`
}

// FieldSpec is one displayed column, in display order.
type FieldSpec struct {
	Name  string `yaml:"name" validate:"required"`
	Label string `yaml:"label" validate:"required"`

	// Money fields are prefixed with the tenant currency when rendered.
	Money bool `yaml:"money"`
}

var (
	tenantsMu      sync.RWMutex
	tenantsOnce    sync.Once
	cachedTenants  *TenantsConfig
	tenantsLoadErr error

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// GetTenants returns the cached embedded tenant table.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetTenants() (*TenantsConfig, error) {
	tenantsMu.RLock()
	if cachedTenants != nil || tenantsLoadErr != nil {
		t, err := cachedTenants, tenantsLoadErr
		tenantsMu.RUnlock()
		return t, err
	}
	tenantsMu.RUnlock()

	tenantsMu.Lock()
	defer tenantsMu.Unlock()

	tenantsOnce.Do(func() {
		cachedTenants, tenantsLoadErr = LoadTenants(defaultTenantsYAML)
	})
	return cachedTenants, tenantsLoadErr
}

// ResetTenants clears the cached tenant table for tests.
func ResetTenants() {
	tenantsMu.Lock()
	defer tenantsMu.Unlock()
	cachedTenants = nil
	tenantsLoadErr = nil
	tenantsOnce = sync.Once{}
}

// LoadTenantsFile reads a tenant table from disk.
//
// Description:
//
//	Used when the service config names a tenants file instead of the
//	embedded default. An empty path returns the embedded table.
//
// Inputs:
//
//	path - YAML file path. May be empty.
//
// Outputs:
//
//	*TenantsConfig - The validated table.
//	error - Non-nil if reading, parsing or validation fails.
func LoadTenantsFile(path string) (*TenantsConfig, error) {
	if path == "" {
		return GetTenants()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadTenantsFile: reading %s: %w", path, err)
	}
	return LoadTenants(data)
}

// LoadTenants parses and validates a TenantsConfig from YAML bytes.
//
// Description:
//
//	Selectors are case-insensitive, so names and aliases are lower-cased
//	and must be unique across all tenants. Every domain must be known,
//	appear once per tenant, carry a key field or a name field, and only
//	reference declared fields from its roles. ID patterns are compiled
//	case-insensitively.
//
// Inputs:
//
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*TenantsConfig - The validated table.
//	error - Non-nil if parsing or validation fails.
func LoadTenants(data []byte) (*TenantsConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("LoadTenants: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadTenants: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg TenantsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("LoadTenants: parsing YAML: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("LoadTenants: validation: %w", err)
	}
	if err := normalizeTenants(&cfg); err != nil {
		return nil, fmt.Errorf("LoadTenants: validation: %w", err)
	}

	slog.Info("tenant table loaded",
		slog.Int("tenants", len(cfg.Tenants)),
		slog.String("default_tenant", cfg.DefaultTenant),
	)
	return &cfg, nil
}

func normalizeTenants(cfg *TenantsConfig) error {
	cfg.DefaultTenant = normalizeSelector(cfg.DefaultTenant)
	selectors := make(map[string]string)

	for ti := range cfg.Tenants {
		t := &cfg.Tenants[ti]
		t.Name = normalizeSelector(t.Name)
		for i, a := range t.Aliases {
			t.Aliases[i] = normalizeSelector(a)
		}

		for _, sel := range append([]string{t.Name}, t.Aliases...) {
			if sel == "" {
				return fmt.Errorf("tenant[%d]: empty selector", ti)
			}
			if owner, dup := selectors[sel]; dup {
				return fmt.Errorf("tenant %q: selector %q already used by tenant %q", t.Name, sel, owner)
			}
			selectors[sel] = t.Name
		}

		seen := make(map[string]bool, len(t.Domains))
		for di := range t.Domains {
			if err := normalizeDomain(&t.Domains[di]); err != nil {
				return fmt.Errorf("tenant %q: %w", t.Name, err)
			}
			d := t.Domains[di].Domain
			if seen[d] {
				return fmt.Errorf("tenant %q: domain %q declared twice", t.Name, d)
			}
			seen[d] = true
		}
	}

	if owner, ok := selectors[cfg.DefaultTenant]; !ok || owner != cfg.DefaultTenant {
		return fmt.Errorf("default_tenant %q is not a tenant name", cfg.DefaultTenant)
	}
	return nil
}

func normalizeDomain(d *DomainSpec) error {
	d.Domain = strings.ToLower(strings.TrimSpace(d.Domain))
	if _, ok := DomainKinds[d.Domain]; !ok {
		return fmt.Errorf("unknown domain %q", d.Domain)
	}
	if d.KeyField == "" && d.NameField == "" {
		return fmt.Errorf("domain %q: key_field or name_field is required", d.Domain)
	}
	if d.Title == "" {
		d.Title = strings.ReplaceAll(d.Domain, "_", " ")
	}

	declared := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		declared[f.Name] = true
	}
	for _, f := range []string{d.KeyField, d.NameField} {
		if f != "" && !declared[f] {
			return fmt.Errorf("domain %q: field %q is not declared in fields", d.Domain, f)
		}
	}
	for role, fields := range d.Roles {
		for _, f := range fields {
			if !declared[f] {
				return fmt.Errorf("domain %q: role %q references undeclared field %q", d.Domain, role, f)
			}
		}
	}

	if d.IDPattern != "" {
		re, err := regexp.Compile("(?i)" + d.IDPattern)
		if err != nil {
			return fmt.Errorf("domain %q: invalid id_pattern: %w", d.Domain, err)
		}
		d.IDRegexp = re
	}
	return nil
}

func normalizeSelector(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
