// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/rngbench/pkg/validation"
	"github.com/AleutianAI/rngbench/services/rng/bench"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound is returned when no run has the requested ID.
	ErrNotFound = errors.New("run not found")

	// ErrInvalidRun is returned when a run cannot be stored.
	ErrInvalidRun = errors.New("invalid run")
)

// -----------------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------------

// Run is the stored summary of one benchmark invocation.
type Run struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Config     bench.Config    `json:"config"`
	Backends   []string        `json:"backends"`
	Results    []bench.Result  `json:"results"`
	Failures   []bench.Failure `json:"failures,omitempty"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(cfg bench.Config, backends []string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config:    cfg,
		Backends:  append([]string(nil), backends...),
	}
}

// Complete copies the outcome into the run and stamps FinishedAt.
func (r *Run) Complete(outcome bench.Outcome, at time.Time) {
	r.Results = outcome.Results
	r.Failures = outcome.Failures
	r.FinishedAt = at.UTC()
}

func (r *Run) validate() error {
	if err := validation.ValidateRunID(r.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRun, err)
	}
	if r.StartedAt.IsZero() || r.StartedAt.UnixNano() < 0 {
		return fmt.Errorf("%w: started_at must be set", ErrInvalidRun)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Keys
// -----------------------------------------------------------------------------

const (
	idPrefix = "run/id/"
	tsPrefix = "run/ts/"
)

func idKey(id string) []byte {
	return []byte(idPrefix + id)
}

// tsKey orders runs by start time; the fixed-width decimal keeps
// lexicographic and numeric order equal.
func tsKey(startedAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", tsPrefix, startedAt.UnixNano(), id))
}

func idFromTSKey(key []byte) string {
	i := bytes.LastIndexByte(key, '/')
	return string(key[i+1:])
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// Store persists runs.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *badger.DB
	gc     *gcRunner
	logger *slog.Logger
}

// Open opens (or creates) the store described by cfg.
//
// Outputs:
//   - *Store: Caller must Close it.
//   - error: Non-nil if the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	db, err := openBadger(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = startGC(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
	}
	return s, nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// Save writes run, replacing any run with the same ID.
//
// Outputs:
//   - error: Wraps ErrInvalidRun for a malformed ID or missing start time.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", ErrInvalidRun)
	}
	if err := run.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	err = withTxn(ctx, s.db, func(txn *badger.Txn) error {
		prev, err := getRun(txn, run.ID)
		switch {
		case err == nil && !prev.StartedAt.Equal(run.StartedAt):
			if err := txn.Delete(tsKey(prev.StartedAt, prev.ID)); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}

		if err := txn.Set(idKey(run.ID), data); err != nil {
			return err
		}
		return txn.Set(tsKey(run.StartedAt, run.ID), nil)
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	s.logger.Debug("run saved", slog.String("run_id", run.ID), slog.Int("results", len(run.Results)))
	return nil
}

// Get returns the run with the given ID.
//
// Outputs:
//   - error: Wraps ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run *Run
	err := withReadTxn(ctx, s.db, func(txn *badger.Txn) error {
		var err error
		run, err = getRun(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := withReadTxn(ctx, s.db, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(tsPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(tsPrefix + "\xff")); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			run, err := getRun(txn, idFromTSKey(it.Item().Key()))
			if err != nil {
				return err
			}
			runs = append(runs, *run)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Delete removes the run with the given ID.
//
// Outputs:
//   - error: Wraps ErrNotFound when absent.
func (s *Store) Delete(ctx context.Context, id string) error {
	return withTxn(ctx, s.db, func(txn *badger.Txn) error {
		run, err := getRun(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(idKey(id)); err != nil {
			return err
		}
		return txn.Delete(tsKey(run.StartedAt, id))
	})
}

func getRun(txn *badger.Txn, id string) (*Run, error) {
	item, err := txn.Get(idKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var run Run
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &run)
	}); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}
