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

package stmt

import (
	"fmt"
	"strings"

	"github.com/nosehq/nose/model"
)

// Query is a read statement: select fields on any entity of Path,
// subject to conditions, an optional order and an optional limit.
type Query struct {
	Select     []model.Field
	Path       model.Path
	Conditions []Condition
	OrderBy    []model.Field
	Limit      *int

	// CardinalityEstimate seeds the planner's ExecutionState. It
	// defaults to the cardinality of Path when zero.
	CardinalityEstimate float64
}

var _ Statement = Query{}

func (q Query) Kind() Kind { return KindQuery }

func (q Query) TargetEntity() string { return q.Path.Last() }

// Validate checks the invariants of §3: at least one equality predicate,
// at most one range predicate, no predicate on a ForeignKey, every
// referenced field on the path, and order_by restricted to the path.
func (q Query) Validate(m *model.Model) error {
	if len(q.Select) == 0 {
		return ErrInvalidStatement.New("query has no select fields")
	}
	for _, f := range q.Select {
		if !q.Path.Contains(f.Entity) {
			return ErrInvalidStatement.New("select field not on path: " + f.String())
		}
	}
	if err := validateConditions(q.Conditions, q.Path); err != nil {
		return err
	}
	if len(EqualityFields(q.Conditions)) == 0 {
		return ErrInvalidStatement.New("query has no equality predicate")
	}
	for _, f := range q.OrderBy {
		if !q.Path.Contains(f.Entity) {
			return ErrInvalidStatement.New("order by field not on path: " + f.String())
		}
	}
	return nil
}

// EqualityFields returns the fields this query constrains by equality.
func (q Query) EqualityFields() []model.Field { return EqualityFields(q.Conditions) }

// RangeField returns the query's single range predicate, if any.
func (q Query) RangeField() (Condition, bool) { return RangeCondition(q.Conditions) }

// ReferencedFields returns every field the query touches: select,
// conditions, and order by, deduplicated.
func (q Query) ReferencedFields() []model.Field {
	seen := make(map[string]bool)
	var out []model.Field
	add := func(f model.Field) {
		if !seen[f.Key()] {
			seen[f.Key()] = true
			out = append(out, f)
		}
	}
	for _, f := range q.Select {
		add(f)
	}
	for _, c := range q.Conditions {
		add(c.Field)
	}
	for _, f := range q.OrderBy {
		add(f)
	}
	return out
}

// Cardinality returns the seeded cardinality estimate, falling back to
// the path's cardinality over m.
func (q Query) Cardinality(m *model.Model) (float64, error) {
	if q.CardinalityEstimate > 0 {
		return q.CardinalityEstimate, nil
	}
	return q.Path.Cardinality(m)
}

func (q Query) String() string {
	names := make([]string, len(q.Select))
	for i, f := range q.Select {
		names[i] = f.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(names, ", "), q.Path)
	if len(q.Conditions) > 0 {
		parts := make([]string, len(q.Conditions))
		for i, c := range q.Conditions {
			parts[i] = c.String()
		}
		fmt.Fprintf(&b, " WHERE %s", strings.Join(parts, " AND "))
	}
	if len(q.OrderBy) > 0 {
		parts := make([]string, len(q.OrderBy))
		for i, f := range q.OrderBy {
			parts[i] = f.String()
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(parts, ", "))
	}
	if q.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *q.Limit)
	}
	return b.String()
}
