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

import "github.com/nosehq/nose/model"

// Kind tags the variant of a Statement.
type Kind int

const (
	KindQuery Kind = iota
	KindUpdate
	KindInsert
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "Query"
	case KindUpdate:
		return "Update"
	case KindInsert:
		return "Insert"
	case KindDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Statement is the sum type of every statement NoSE plans for: Query,
// Update, Insert, Delete. It is a read-only view; there is no mutation
// after a Statement is built.
type Statement interface {
	Kind() Kind
	// TargetEntity is the entity the statement ultimately reads or
	// writes: the last entity of a Query's path, or the declared target
	// of a mutation.
	TargetEntity() string
	// Validate checks every invariant named in the data model for this
	// statement kind against m, returning the most specific error kind
	// on the first violation found.
	Validate(m *model.Model) error
	String() string
}

// IsMutation reports whether a Statement kind modifies data.
func (k Kind) IsMutation() bool {
	return k == KindUpdate || k == KindInsert || k == KindDelete
}

// validateConditions enforces the invariants shared by every statement
// kind that carries conditions: fields must lie on path, none may be a
// ForeignKey, and at most one may be a range predicate.
func validateConditions(conds []Condition, path model.Path) error {
	rangeSeen := false
	for _, c := range conds {
		if c.Field.IsForeignKey() {
			return ErrInvalidStatement.New("predicate on a foreign key: " + c.Field.String())
		}
		if !path.Contains(c.Field.Entity) {
			return ErrInvalidStatement.New("field not on path: " + c.Field.String())
		}
		if c.Op.IsRange() {
			if rangeSeen {
				return ErrInvalidStatement.New("multi-range: " + c.Field.String())
			}
			rangeSeen = true
		}
	}
	return nil
}

// EqualityFields returns the set of fields constrained by an equality
// predicate in conds.
func EqualityFields(conds []Condition) []model.Field {
	var out []model.Field
	for _, c := range conds {
		if c.Op.IsEquality() {
			out = append(out, c.Field)
		}
	}
	return out
}

// RangeCondition returns the single range predicate in conds, if any.
func RangeCondition(conds []Condition) (Condition, bool) {
	for _, c := range conds {
		if c.Op.IsRange() {
			return c, true
		}
	}
	return Condition{}, false
}
