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
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
)

// loadConcurrency bounds the number of sources read at once.
const loadConcurrency = 4

// MaxSourceSize bounds a single CSV source. Larger files load as empty.
const MaxSourceSize = 32 << 20

// Set maps tenant name to that tenant's indexes in declared order.
type Set map[string][]*Index

// Loader reads every knowledge source named by a tenant table.
//
// Description:
//
//	Sources are CSV files with a header row, resolved relative to DataDir.
//	A missing, oversized or malformed source yields an empty index and a
//	warning; it never fails the load, so the service stays available with
//	partial data.
//
// Thread Safety: Safe for concurrent use; holds no mutable state.
type Loader struct {
	DataDir string
	Logger  *slog.Logger
}

// NewLoader creates a Loader rooted at dataDir. A nil logger uses slog.Default().
func NewLoader(dataDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{DataDir: dataDir, Logger: logger}
}

// Load builds an index for every (tenant, domain) pair of cfg.
//
// Description:
//
//	Sources are read in parallel. Individual source failures are logged and
//	degrade to empty indexes.
//
// Inputs:
//
//	ctx - Cancellation. The only error Load returns is ctx's.
//	cfg - The tenant table.
//
// Outputs:
//
//	Set - One entry per tenant, indexes in the tenant's declared order.
//	error - Non-nil only when ctx is cancelled.
func (l *Loader) Load(ctx context.Context, cfg *config.TenantsConfig) (Set, error) {
	type job struct {
		tenant int
		domain int
		spec   config.DomainSpec
		tname  string
	}

	out := make([][]*Index, len(cfg.Tenants))
	var jobs []job
	for ti, t := range cfg.Tenants {
		out[ti] = make([]*Index, len(t.Domains))
		for di, d := range t.Domains {
			jobs = append(jobs, job{tenant: ti, domain: di, spec: d, tname: t.Name})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Each job writes its own slot.
			out[j.tenant][j.domain] = l.loadOne(j.tname, j.spec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("knowledge load: %w", err)
	}

	set := make(Set, len(cfg.Tenants))
	for ti, t := range cfg.Tenants {
		set[t.Name] = out[ti]
	}
	return set, nil
}

func (l *Loader) loadOne(tenant string, spec config.DomainSpec) *Index {
	path := l.sourcePath(spec.Source)
	records, err := ReadCSVFile(path)
	if err != nil {
		msg := "knowledge source missing, using empty index"
		if !errors.Is(err, fs.ErrNotExist) {
			msg = "knowledge source unreadable, using empty index"
		}
		l.Logger.Warn(msg,
			slog.String("tenant", tenant),
			slog.String("domain", spec.Domain),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return Build(spec, nil)
	}

	l.Logger.Info("knowledge source loaded",
		slog.String("tenant", tenant),
		slog.String("domain", spec.Domain),
		slog.Int("records", len(records)),
	)
	return Build(spec, records)
}

func (l *Loader) sourcePath(source string) string {
	if filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(l.DataDir, filepath.FromSlash(source))
}

// ReadCSVFile opens path and parses it with ParseCSV.
func ReadCSVFile(path string) ([]Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxSourceSize {
		return nil, fmt.Errorf("%s: %d bytes exceeds limit of %d", path, info.Size(), MaxSourceSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseCSV reads a header row followed by data rows.
//
// Description:
//
//	Header names and values are trimmed and a leading UTF-8 byte order mark
//	is dropped. Short rows are padded with empty values and extra trailing
//	columns are ignored. Blank rows are skipped.
//
// Inputs:
//
//	r - CSV input.
//
// Outputs:
//
//	[]Record - Rows in source order.
//	error - Non-nil when the header is missing or the CSV is malformed.
func ParseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("parse csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv: header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if blankRow(row) {
			continue
		}

		fields := make([]Field, len(header))
		for i, name := range header {
			fields[i].Name = name
			if i < len(row) {
				fields[i].Value = row[i]
			}
		}
		records = append(records, NewRecord(fields))
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
