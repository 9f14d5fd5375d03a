// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package escalation

// Storage layout:
//
//	tickets/v1/{id}  ->  JSON-encoded Ticket
//	                     TTL: 90 days by default

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTicketTTL is how long tickets stay retrievable.
const DefaultTicketTTL = 90 * 24 * time.Hour

const ticketKeyPrefix = "tickets/v1/"

// ErrTicketNotFound is returned by Get for unknown or expired tickets.
var ErrTicketNotFound = errors.New("ticket not found")

// Store persists tickets for operator lookup.
type Store interface {
	Save(ctx context.Context, t Ticket) error
	Get(ctx context.Context, id string) (Ticket, error)
}

// BadgerStore keeps tickets in an embedded BadgerDB.
//
// # Description
//
// Tickets are JSON values under a versioned key prefix with a native
// BadgerDB TTL, so expiry needs no application code. Expired keys read as
// ErrTicketNotFound.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
	owned  bool
}

// OpenBadgerStore opens (or creates) a ticket database at dir. An empty dir
// opens an in-memory database, used by tests and by deployments without a
// ticket path.
func OpenBadgerStore(dir string, ttl time.Duration, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open %q: %w", dir, err)
	}
	s := NewBadgerStore(db, ttl, logger)
	s.owned = true
	return s, nil
}

// OpenBadgerStoreReadOnly opens an existing ticket database for inspection.
// Save fails on a read-only store.
func OpenBadgerStoreReadOnly(dir string, logger *slog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil).WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("ticket store: open %q read-only: %w", dir, err)
	}
	s := NewBadgerStore(db, 0, logger)
	s.owned = true
	return s, nil
}

// NewBadgerStore wraps an opened DB. The caller owns the DB lifecycle.
func NewBadgerStore(db *badger.DB, ttl time.Duration, logger *slog.Logger) *BadgerStore {
	if db == nil {
		panic("NewBadgerStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, ttl: ttl, logger: logger}
}

// Save writes t under its id.
func (s *BadgerStore) Save(ctx context.Context, t Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("ticket store: encode %s: %w", t.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(ticketKey(t.ID), raw).WithTTL(s.ttl))
	})
	if err != nil {
		return fmt.Errorf("ticket store: save %s: %w", t.ID, err)
	}
	s.logger.Debug("ticket stored", slog.String("ticket_id", t.ID))
	return nil
}

// Get reads a ticket by id.
//
// Outputs:
//
//	Ticket - The stored ticket.
//	error - ErrTicketNotFound when absent or expired; other errors on storage
//	        or decode failure.
func (s *BadgerStore) Get(ctx context.Context, id string) (Ticket, error) {
	if err := ctx.Err(); err != nil {
		return Ticket{}, err
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ticketKey(id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Ticket{}, ErrTicketNotFound
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("ticket store: get %s: %w", id, err)
	}

	var t Ticket
	if err := json.Unmarshal(raw, &t); err != nil {
		return Ticket{}, fmt.Errorf("ticket store: decode %s: %w", id, err)
	}
	return t, nil
}

// StoredTicket is a ticket with its storage metadata.
type StoredTicket struct {
	Ticket
	ExpiresAt time.Time
	RawSize   int

	// DecodeErr is set when the stored value is not a valid ticket.
	DecodeErr error
}

// List returns every unexpired ticket ordered by key. Values that fail to
// decode are returned with DecodeErr set so an operator can see them.
func (s *BadgerStore) List(ctx context.Context) ([]StoredTicket, error) {
	var out []StoredTicket
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(ticketKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			st := StoredTicket{}
			st.ID = strings.TrimPrefix(string(item.Key()), ticketKeyPrefix)
			if exp := item.ExpiresAt(); exp > 0 {
				st.ExpiresAt = time.Unix(int64(exp), 0)
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				st.DecodeErr = fmt.Errorf("copy value: %w", err)
				out = append(out, st)
				continue
			}
			st.RawSize = len(raw)
			var t Ticket
			if err := json.Unmarshal(raw, &t); err != nil {
				st.DecodeErr = fmt.Errorf("decode: %w", err)
			} else {
				st.Ticket = t
			}
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	return out, nil
}

// Close closes the DB when the store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func ticketKey(id string) []byte {
	return []byte(ticketKeyPrefix + id)
}
