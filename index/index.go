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

package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure"

	"github.com/nosehq/nose/model"
)

// Index is a materialized view over a Path: a set of hash keys, an
// ordered list of cluster keys, and a set of extra (non-key) columns.
// Index values are immutable once built by New.
type Index struct {
	Hash  []model.Field // H, unordered; exposed sorted for determinism
	Order []model.Field // O, ordered and significant
	Extra []model.Field // X, unordered; exposed sorted for determinism
	Path  model.Path

	key       string
	entrySize int
}

// keyPayload is the structural shape hashed to produce Index.Key: two
// indexes with equal (H as set, O as list, X as set, P) always hash the
// same way because every field slice is sorted before hashing, except
// Order, whose sequence is significant.
type keyPayload struct {
	Hash  []string
	Order []string
	Extra []string
	Path  []string
}

func fieldKeys(fs []model.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Key()
	}
	sort.Strings(out)
	return out
}

func orderedFieldKeys(fs []model.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Key()
	}
	return out
}

// New validates and builds an Index. H must be non-empty; every field in
// H, O and X must belong to an entity on path; the parents of H must
// include path's first entity and, when X is non-empty, the parents of
// X must include path's last entity. New does not check that the
// identifier of path's first entity is in H or O; NewValidated does.
func New(hash, order, extra []model.Field, path model.Path) (*Index, error) {
	if len(hash) == 0 {
		return nil, ErrInvalidIndex.New("empty hash fields")
	}
	allFields := make([]model.Field, 0, len(hash)+len(order)+len(extra))
	allFields = append(allFields, hash...)
	allFields = append(allFields, order...)
	allFields = append(allFields, extra...)
	for _, f := range allFields {
		if !path.Contains(f.Entity) {
			return nil, ErrInvalidIndex.New("field off path: " + f.String())
		}
	}
	if !parentIncludes(hash, path.First()) {
		return nil, ErrInvalidIndex.New("hash fields do not include path head: " + path.String())
	}
	if !parentIncludes(extra, path.Last()) && len(extra) > 0 {
		return nil, ErrInvalidIndex.New("extra fields do not include path tail: " + path.String())
	}
	entrySize := 0
	for _, f := range allFields {
		entrySize += f.Size
	}
	idx := &Index{
		Hash:      append([]model.Field(nil), hash...),
		Order:     append([]model.Field(nil), order...),
		Extra:     append([]model.Field(nil), extra...),
		Path:      path,
		entrySize: entrySize,
	}
	sort.Slice(idx.Hash, func(i, j int) bool { return idx.Hash[i].Key() < idx.Hash[j].Key() })
	sort.Slice(idx.Extra, func(i, j int) bool { return idx.Extra[i].Key() < idx.Extra[j].Key() })

	key, err := computeKey(idx)
	if err != nil {
		return nil, err
	}
	idx.key = key
	return idx, nil
}

// NewValidated calls New and additionally requires that the identifier
// field of path's head entity is present in hash or order, per the "rows
// are uniquely keyed" invariant. A candidate that passes New but lacks
// that identifier is rejected with ErrInvalidIndex.
func NewValidated(m *model.Model, hash, order, extra []model.Field, path model.Path) (*Index, error) {
	idx, err := New(hash, order, extra, path)
	if err != nil {
		return nil, err
	}
	head, err := m.Entity(path.First())
	if err != nil {
		return nil, err
	}
	id := head.IDField()
	if !containsField(hash, id) && !containsField(order, id) {
		return nil, ErrInvalidIndex.New("identifier of " + path.First() + " missing from hash/order")
	}
	return idx, nil
}

func parentIncludes(fs []model.Field, entity string) bool {
	if len(fs) == 0 {
		return entity == ""
	}
	for _, f := range fs {
		if f.Entity == entity {
			return true
		}
	}
	return false
}

func containsField(fs []model.Field, target model.Field) bool {
	for _, f := range fs {
		if f.Equal(target) {
			return true
		}
	}
	return false
}

func computeKey(idx *Index) (string, error) {
	payload := keyPayload{
		Hash:  fieldKeys(idx.Hash),
		Order: orderedFieldKeys(idx.Order),
		Extra: fieldKeys(idx.Extra),
		Path:  idx.Path.Entities,
	}
	h, err := hashstructure.Hash(payload, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("idx_%x", h), nil
}

// Key is a stable hash-derived string such that two indexes built from
// equal (H, O, X, P) always share the same key.
func (idx *Index) Key() string { return idx.key }

// AllFields returns H ∪ O ∪ X, deduplicated by field identity.
func (idx *Index) AllFields() []model.Field {
	seen := make(map[string]bool)
	var out []model.Field
	add := func(fs []model.Field) {
		for _, f := range fs {
			if !seen[f.Key()] {
				seen[f.Key()] = true
				out = append(out, f)
			}
		}
	}
	add(idx.Hash)
	add(idx.Order)
	add(idx.Extra)
	return out
}

// HasField reports whether f belongs to any of H, O or X.
func (idx *Index) HasField(f model.Field) bool {
	return containsField(idx.Hash, f) || containsField(idx.Order, f) || containsField(idx.Extra, f)
}

// HashSatisfiedBy reports whether every field in H is present in
// provided.
func (idx *Index) HashSatisfiedBy(provided []model.Field) bool {
	for _, h := range idx.Hash {
		if !containsField(provided, h) {
			return false
		}
	}
	return true
}

// EntrySize is Σ field.size over all_fields.
func (idx *Index) EntrySize() int { return idx.entrySize }

// Size is entry_size times the expected number of entries the index
// holds: the cardinality of traversing Path from its first entity.
func (idx *Index) Size(m *model.Model) (float64, error) {
	entries, err := idx.Path.Cardinality(m)
	if err != nil {
		return 0, err
	}
	return float64(idx.entrySize) * entries, nil
}

func (idx *Index) String() string {
	h := fieldStrings(idx.Hash)
	o := fieldStrings(idx.Order)
	x := fieldStrings(idx.Extra)
	return fmt.Sprintf("Index(H={%s}, O=[%s], X={%s}, P=%s)",
		strings.Join(h, ", "), strings.Join(o, ", "), strings.Join(x, ", "), idx.Path)
}

func fieldStrings(fs []model.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

// Set is a deduplicated collection of indexes keyed by Index.Key, the
// CandidateIndexSet of §3.
type Set struct {
	byKey map[string]*Index
}

// NewSet builds an empty Set.
func NewSet() *Set { return &Set{byKey: make(map[string]*Index)} }

// Add inserts idx, deduplicating by key.
func (s *Set) Add(idx *Index) { s.byKey[idx.Key()] = idx }

// Union merges other into s.
func (s *Set) Union(other *Set) {
	for k, idx := range other.byKey {
		s.byKey[k] = idx
	}
}

// Contains reports whether an index with key's identity is in the set.
func (s *Set) Contains(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Get returns the index with the given key, if present.
func (s *Set) Get(key string) (*Index, bool) {
	idx, ok := s.byKey[key]
	return idx, ok
}

// Slice returns every index in the set, sorted by key for deterministic
// iteration (required by §5's ordering guarantees).
func (s *Set) Slice() []*Index {
	out := make([]*Index, 0, len(s.byKey))
	for _, idx := range s.byKey {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Len reports the number of distinct indexes in the set.
func (s *Set) Len() int { return len(s.byKey) }
