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

// Package enumerator implements IndexEnumerator: candidate index
// generation from a single query (§4.1) and the union across a set of
// queries. Support-query derivation for mutating statements lives in
// package updateplanner and is unioned in by the caller (package nose)
// to avoid a dependency cycle between the enumerator and the update
// planner, which both feed from and feed into this package.
package enumerator

import (
	"github.com/sirupsen/logrus"

	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
)

// IndexesForQuery implements §4.1's per-query candidate generation:
// every contiguous subpath, every (H,O,X) split of the fields referenced
// on it admissible under the index invariants, plus the always-included
// materialized view and per-entity simple indexes.
func IndexesForQuery(m *model.Model, q stmt.Query) (*index.Set, error) {
	set := index.NewSet()

	for _, sub := range q.Path.Subpaths() {
		cands, err := candidatesForSubpath(m, q, sub)
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			set.Add(c)
		}
	}

	mv, err := materializedView(m, q)
	if err != nil {
		return nil, err
	}
	set.Add(mv)

	for _, entity := range q.Path.Entities {
		simple, err := SimpleIndex(m, entity)
		if err != nil {
			return nil, err
		}
		set.Add(simple)
	}

	logrus.WithFields(logrus.Fields{
		"query":      q.String(),
		"candidates": set.Len(),
	}).Debug("enumerated candidate indexes for query")

	return set, nil
}

// IndexesForQueries unions IndexesForQuery over every query, the
// "indexes_for_workload" union restricted to read queries; callers
// additionally union in support-query candidates (see package doc).
func IndexesForQueries(m *model.Model, queries []stmt.Query) (*index.Set, error) {
	set := index.NewSet()
	for _, q := range queries {
		qset, err := IndexesForQuery(m, q)
		if err != nil {
			return nil, err
		}
		set.Union(qset)
	}
	return set, nil
}

// candidatesForSubpath enumerates every admissible (H,O,X) split of the
// fields q references on sub, per step 2-3 of §4.1.
func candidatesForSubpath(m *model.Model, q stmt.Query, sub model.Path) ([]*index.Index, error) {
	referenced := fieldsOnPath(q.ReferencedFields(), sub)
	equality := fieldsOnPath(q.EqualityFields(), sub)

	head, err := m.Entity(sub.First())
	if err != nil {
		return nil, err
	}
	id := head.IDField()

	var out []*index.Index
	for _, hash := range hashCandidates(equality, id, true) {
		rangeCond, hasRange := q.RangeField()
		var order []model.Field
		if hasRange && sub.Contains(rangeCond.Field.Entity) && !fieldsContain(hash, rangeCond.Field) {
			order = append(order, rangeCond.Field)
		}
		for _, f := range q.OrderBy {
			if sub.Contains(f.Entity) && !fieldsContain(hash, f) && !fieldsContain(order, f) {
				order = append(order, f)
			}
		}

		var extra []model.Field
		for _, f := range referenced {
			if !fieldsContain(hash, f) && !fieldsContain(order, f) {
				extra = append(extra, f)
			}
		}

		if len(order) == 0 && len(extra) == 0 {
			// §4.1 step 3: reject "empty" candidates.
			continue
		}

		idx, err := index.NewValidated(m, hash, order, extra, sub)
		if err != nil {
			continue
		}
		out = append(out, idx)
	}
	return out, nil
}

// hashCandidates enumerates every non-empty subset of equality fields,
// each optionally extended with the subpath head's identifier, per the
// composition rule in §4.1 step 2.
func hashCandidates(equality []model.Field, id model.Field, idEligible bool) [][]model.Field {
	n := len(equality)
	var out [][]model.Field
	// Every non-empty subset of the equality fields.
	for mask := 1; mask < (1 << uint(n)); mask++ {
		var subset []model.Field
		for i := 0; i < n; i++ {
			if mask&(1<<uint(i)) != 0 {
				subset = append(subset, equality[i])
			}
		}
		out = append(out, subset)
		if idEligible && !fieldsContain(subset, id) {
			withID := append(append([]model.Field(nil), subset...), id)
			out = append(out, withID)
		}
	}
	if n == 0 && idEligible {
		out = append(out, []model.Field{id})
	}
	return out
}

// materializedView builds the canonical index that answers q with a
// single lookup: H = equality fields, O = [range field?] ++ order_by ++
// [identifier of P[0] unless already in H or O], X = select ∪ predicate
// fields \ (H∪O), P′ = P. Per P3 this is always a member of
// indexes_for_query(q).
func materializedView(m *model.Model, q stmt.Query) (*index.Index, error) {
	head, err := m.Entity(q.Path.First())
	if err != nil {
		return nil, err
	}
	id := head.IDField()

	hash := q.EqualityFields()
	if len(hash) == 0 {
		hash = []model.Field{id}
	}

	var order []model.Field
	if rc, ok := q.RangeField(); ok && !fieldsContain(hash, rc.Field) {
		order = append(order, rc.Field)
	}
	for _, f := range q.OrderBy {
		if !fieldsContain(hash, f) && !fieldsContain(order, f) {
			order = append(order, f)
		}
	}
	// The head identifier keys every row uniquely (see NewValidated).
	if !fieldsContain(hash, id) && !fieldsContain(order, id) {
		order = append(order, id)
	}

	var extra []model.Field
	for _, f := range q.ReferencedFields() {
		if !fieldsContain(hash, f) && !fieldsContain(order, f) {
			extra = append(extra, f)
		}
	}

	return index.NewValidated(m, hash, order, extra, q.Path)
}

// SimpleIndex builds the identity index of an entity: H={id}, O=[],
// X=all other scalar fields, over the single-entity path [entity].
func SimpleIndex(m *model.Model, entity string) (*index.Index, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	p, err := model.NewPath(m, entity)
	if err != nil {
		return nil, err
	}
	return index.NewValidated(m, []model.Field{e.IDField()}, nil, e.ScalarFields(), p)
}

func fieldsOnPath(fields []model.Field, p model.Path) []model.Field {
	var out []model.Field
	for _, f := range fields {
		if p.Contains(f.Entity) {
			out = append(out, f)
		}
	}
	return out
}

func fieldsContain(fields []model.Field, target model.Field) bool {
	for _, f := range fields {
		if f.Equal(target) {
			return true
		}
	}
	return false
}
