// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tenant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTable() *config.TenantsConfig {
	return &config.TenantsConfig{
		DefaultTenant: "default",
		Tenants: []config.TenantSpec{
			{
				Name: "default", Aliases: []string{"india", "christmas"},
				Brand: "JB Fashions", Currency: "₹",
				Domains: []config.DomainSpec{
					{Domain: "regional_catalog", Source: "default/xmas.csv", NameField: "Name"},
					{Domain: "orders", Source: "default/orders.csv", KeyField: "OrderID"},
					{Domain: "products", Source: "default/products.csv", KeyField: "ProductID"},
				},
			},
			{
				Name: "paris", Brand: "JB Paris", Currency: "€",
				Domains: []config.DomainSpec{
					{Domain: "orders", Source: "paris/orders.csv", KeyField: "OrderID"},
				},
			},
		},
	}
}

func orderSet() knowledge.Set {
	cfg := testTable()
	def := make([]*knowledge.Index, 0, 3)
	for _, d := range cfg.Tenants[0].Domains {
		var recs []knowledge.Record
		if d.Domain == "orders" {
			recs = []knowledge.Record{knowledge.NewRecord([]knowledge.Field{{Name: "OrderID", Value: "JB3001"}})}
		}
		def = append(def, knowledge.Build(d, recs))
	}
	paris := []*knowledge.Index{knowledge.Build(cfg.Tenants[1].Domains[0], []knowledge.Record{
		knowledge.NewRecord([]knowledge.Field{{Name: "OrderID", Value: "PA2001"}}),
	})}
	return knowledge.Set{"default": def, "paris": paris}
}

func TestRouter_Resolve(t *testing.T) {
	r, err := NewRouter(testTable(), orderSet())
	require.NoError(t, err)

	tests := []struct {
		selector string
		want     string
	}{
		{"default", "default"},
		{"INDIA", "default"},
		{" Christmas ", "default"},
		{"paris", "paris"},
		{"Paris", "paris"},
		{"", "default"},
		{"atlantis", "default"},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.selector).Name; got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.selector, got, tt.want)
		}
	}
	assert.Equal(t, "default", r.Default().Name)
	assert.Equal(t, "€", r.Resolve("paris").Currency)
}

func TestRouter_DomainPriority(t *testing.T) {
	r, err := NewRouter(testTable(), orderSet())
	require.NoError(t, err)

	var got []knowledge.Domain
	for _, ix := range r.Resolve("default").Indexes {
		got = append(got, ix.Domain())
	}
	assert.Equal(t, []knowledge.Domain{knowledge.DomainOrders, knowledge.DomainProducts, knowledge.DomainRegionalCatalog}, got)
}

func TestRouter_TenantIsolation(t *testing.T) {
	r, err := NewRouter(testTable(), orderSet())
	require.NoError(t, err)

	def := r.Resolve("default").Index(knowledge.DomainOrders)
	paris := r.Resolve("paris").Index(knowledge.DomainOrders)
	assert.True(t, def.ContainsToken("JB3001"))
	assert.False(t, def.ContainsToken("PA2001"))
	assert.True(t, paris.ContainsToken("PA2001"))
	assert.False(t, paris.ContainsToken("JB3001"))
	assert.Nil(t, r.Resolve("paris").Index(knowledge.DomainProducts))
}

func TestRouter_MissingSetGetsEmptyIndexes(t *testing.T) {
	r, err := NewRouter(testTable(), nil)
	require.NoError(t, err)
	for _, c := range r.Tenants() {
		for domain, n := range c.Records() {
			assert.Zero(t, n, "%s/%s", c.Name, domain)
		}
	}
}

func TestRouter_BadDefault(t *testing.T) {
	cfg := testTable()
	cfg.DefaultTenant = "nowhere"
	_, err := NewRouter(cfg, nil)
	assert.Error(t, err)
}

// fakeSource returns a scripted sequence of sets.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	sets  []knowledge.Set
	err   error
}

func (f *fakeSource) Load(ctx context.Context, cfg *config.TenantsConfig) (knowledge.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.sets) {
		i = len(f.sets) - 1
	}
	return f.sets[i], nil
}

func TestRegistry_ReloadSwaps(t *testing.T) {
	empty := knowledge.Set{}
	src := &fakeSource{sets: []knowledge.Set{empty, orderSet()}}

	reg, err := NewRegistry(context.Background(), testTable(), src, quietLogger())
	require.NoError(t, err)

	before := reg.Current()
	assert.False(t, reg.Resolve("default").Index(knowledge.DomainOrders).ContainsToken("JB3001"))

	after, err := reg.Reload(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Same(t, after, reg.Current())
	assert.True(t, reg.Resolve("india").Index(knowledge.DomainOrders).ContainsToken("JB3001"))

	// The old snapshot is untouched.
	assert.False(t, before.Resolve("default").Index(knowledge.DomainOrders).ContainsToken("JB3001"))
}

func TestRegistry_FailedReloadKeepsPrevious(t *testing.T) {
	src := &fakeSource{sets: []knowledge.Set{orderSet()}}
	reg, err := NewRegistry(context.Background(), testTable(), src, quietLogger())
	require.NoError(t, err)
	before := reg.Current()

	src.mu.Lock()
	src.err = errors.New("disk on fire")
	src.mu.Unlock()

	got, err := reg.Reload(context.Background())
	assert.Error(t, err)
	assert.Same(t, before, got)
	assert.Same(t, before, reg.Current())
}

func TestRegistry_InitialFailure(t *testing.T) {
	src := &fakeSource{err: context.Canceled}
	_, err := NewRegistry(context.Background(), testTable(), src, quietLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticRegistry(t *testing.T) {
	r, err := NewRouter(testTable(), orderSet())
	require.NoError(t, err)
	reg := NewStaticRegistry(r)

	got, err := reg.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, r, got)
}

// countingReloader signals every reload.
type countingReloader struct {
	n  atomic.Int32
	ch chan struct{}
}

func (c *countingReloader) Reload(ctx context.Context) (*Router, error) {
	c.n.Add(1)
	select {
	case c.ch <- struct{}{}:
	default:
	}
	return nil, nil
}

func TestWatcher_ReloadsOnCSVChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "paris"), 0o755))

	rl := &countingReloader{ch: make(chan struct{}, 1)}
	w := NewWatcher(dir, rl, 20*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Non-CSV files are ignored; write CSVs until the watcher is up.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-rl.ch:
			assert.GreaterOrEqual(t, rl.n.Load(), int32(1))
			return
		case <-tick.C:
			_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)
			_ = os.WriteFile(filepath.Join(dir, "paris", "orders.csv"), []byte("OrderID\nPA1\n"), 0o600)
		case <-deadline:
			t.Fatal("watcher did not reload after CSV change")
		}
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), &countingReloader{ch: make(chan struct{}, 1)}, 0, quietLogger())
	assert.Error(t, w.Run(context.Background()))
}
