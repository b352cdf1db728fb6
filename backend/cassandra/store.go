// Copyright 2024 The NoSE Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cassandra

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/pilosa"

	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/milp"
)

const pilosaIndexName = "nose"

// Store is the physical backend for one chosen schema: a single bolt
// database file holding one bucket per Index, and a single pilosa
// holder providing the bitmap acceleration for every Index's Extra
// fields.
type Store struct {
	mu     sync.RWMutex
	closed bool

	db     *bolt.DB
	holder *pilosa.Holder
	pIndex *pilosa.Index

	tables map[string]*Table
}

// Open creates (or reopens) a Store rooted at dir: dir/nose.db for bolt,
// dir/pilosa for the pilosa holder.
func Open(dir string) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dir, "nose.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	holder := pilosa.NewHolder()
	holder.Path = filepath.Join(dir, "pilosa")
	if err := holder.Open(); err != nil {
		db.Close()
		return nil, err
	}
	pIndex, err := holder.CreateIndexIfNotExists(pilosaIndexName, pilosa.IndexOptions{})
	if err != nil {
		db.Close()
		holder.Close()
		return nil, err
	}

	return &Store{db: db, holder: holder, pIndex: pIndex, tables: make(map[string]*Table)}, nil
}

// Close releases the bolt and pilosa handles. Once closed a Store must
// not be used again.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	holderErr := s.holder.Close()
	dbErr := s.db.Close()
	if dbErr != nil {
		return dbErr
	}
	return holderErr
}

// Materialize creates one Table per Index in schema, idempotently: an
// Index already materialized in an earlier call is left untouched.
func (s *Store) Materialize(schema *milp.Schema) error {
	return s.MaterializeIndexes(schema.Indexes)
}

// MaterializeIndexes creates one Table per Index in indexes, idempotently.
// A time-dependent solve's milp.TimeSchema carries the same []*index.Index
// shape as milp.Schema (an index, once materialized, persists across every
// time step), so callers pass TimeSchema.Indexes here directly rather than
// through Materialize.
func (s *Store) MaterializeIndexes(indexes []*index.Index) error {
	for _, idx := range indexes {
		if _, err := s.tableFor(idx); err != nil {
			return err
		}
	}
	return nil
}

// Table returns the already-materialized Table for idx, failing if
// Materialize was never called for it.
func (s *Store) Table(idx *index.Index) (*Table, error) {
	s.mu.RLock()
	t, ok := s.tables[idx.Key()]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownIndex.New(idx.Key())
	}
	return t, nil
}

func (s *Store) tableFor(idx *index.Index) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed.New()
	}
	if t, ok := s.tables[idx.Key()]; ok {
		return t, nil
	}
	t, err := newTable(s.db, s.pIndex, idx)
	if err != nil {
		return nil, err
	}
	s.tables[idx.Key()] = t
	return t, nil
}
