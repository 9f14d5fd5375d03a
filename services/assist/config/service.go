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
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Service defaults.
const (
	DefaultPort             = 8080
	DefaultDataDir          = "data"
	DefaultNotifyTimeout    = 10 * time.Second
	DefaultNotifyRatePerSec = 5.0
	DefaultExcerptLimit     = 2000
	DefaultListLimit        = 10
	DefaultOpenAIModel      = "gpt-4o-mini"
)

// ServiceConfig holds process-level settings for the assist server and CLI.
//
// Description:
//
//	Loaded from an optional YAML file, then overridden by environment
//	variables, then defaulted and validated. Secrets (the OpenAI key) are
//	only read from the environment.
//
// Thread Safety: Immutable after loading.
type ServiceConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// DataDir is the root of the CSV knowledge sources.
	DataDir string `yaml:"data_dir" validate:"required"`

	// TenantsFile overrides the embedded tenant table when set.
	TenantsFile string `yaml:"tenants_file"`

	// WatchData enables hot reload when knowledge files change.
	WatchData bool `yaml:"watch_data"`

	// TicketDBPath is the BadgerDB directory for tickets. Empty disables persistence.
	TicketDBPath string `yaml:"ticket_db_path"`

	// WebhookURL receives escalation tickets. Empty logs tickets only.
	WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`

	NotifyTimeout    time.Duration `yaml:"notify_timeout" validate:"min=0"`
	NotifyRatePerSec float64       `yaml:"notify_rate_per_sec" validate:"gte=0"`

	// Generative enables the text-generation collaborator for found records.
	Generative  bool   `yaml:"generative"`
	OpenAIModel string `yaml:"openai_model"`
	OpenAIURL   string `yaml:"openai_url" validate:"omitempty,url"`
	OpenAIKey   string `yaml:"-"`

	ExcerptLimit int `yaml:"excerpt_limit" validate:"gte=0"`
	ListLimit    int `yaml:"list_limit" validate:"gte=0"`
}

// LoadServiceConfig builds a ServiceConfig.
//
// Description:
//
//	Reads path when non-empty, applies ASSIST_* and OPENAI_* environment
//	overrides, fills defaults and validates the result.
//
// Inputs:
//
//	path - Optional YAML config file. Empty uses defaults and environment only.
//
// Outputs:
//
//	*ServiceConfig - The validated configuration.
//	error - Non-nil if the file cannot be read or parsed, or validation fails.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	cfg := &ServiceConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadServiceConfig: reading %s: %w", path, err)
		}
		if len(data) > MaxYAMLFileSize {
			return nil, fmt.Errorf("LoadServiceConfig: %s exceeds maximum size", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("LoadServiceConfig: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("LoadServiceConfig: %w", err)
	}
	applyServiceDefaults(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("LoadServiceConfig: validation: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *ServiceConfig) error {
	if v := os.Getenv("ASSIST_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ASSIST_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("ASSIST_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ASSIST_TENANTS_FILE"); v != "" {
		cfg.TenantsFile = v
	}
	if v := os.Getenv("ASSIST_TICKET_DB"); v != "" {
		cfg.TicketDBPath = v
	}
	if v := os.Getenv("ASSIST_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("ASSIST_WATCH_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ASSIST_WATCH_DATA: %w", err)
		}
		cfg.WatchData = b
	}
	if v := os.Getenv("ASSIST_GENERATIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ASSIST_GENERATIVE: %w", err)
		}
		cfg.Generative = b
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	return nil
}

func applyServiceDefaults(cfg *ServiceConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.NotifyRatePerSec <= 0 {
		cfg.NotifyRatePerSec = DefaultNotifyRatePerSec
	}
	if cfg.ExcerptLimit <= 0 {
		cfg.ExcerptLimit = DefaultExcerptLimit
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultListLimit
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = DefaultOpenAIModel
	}
}
