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

package updateplanner

import (
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
)

// SupportQuery is a read derived from a mutation to fetch field values
// the mutation's own WHERE clause (or, for Insert, its settings) does
// not already bind but which an affected index's key requires.
type SupportQuery struct {
	Query  stmt.Query
	Fields []model.Field
}

// boundFields returns the fields whose value the statement itself
// supplies without needing a lookup: an Update's settings and equality
// conditions, a Delete's equality conditions, an Insert's settings.
func boundFields(s stmt.Statement) []model.Field {
	switch v := s.(type) {
	case stmt.Insert:
		return v.ModifiedFields()
	case stmt.Update:
		out := append([]model.Field(nil), v.ModifiedFields()...)
		return append(out, stmt.EqualityFields(v.Conditions)...)
	case stmt.Delete:
		return stmt.EqualityFields(v.Conditions)
	default:
		return nil
	}
}

// anchors returns the equality conditions a support query may use to
// bind its path: a mutation's own WHERE clause for Update/Delete, or,
// for Insert, a synthesized equality on the identifier of every
// foreign-key field it sets (the only way to reach an ancestor entity
// before the new row exists).
func anchors(m *model.Model, s stmt.Statement) []stmt.Condition {
	switch v := s.(type) {
	case stmt.Update:
		return v.Conditions
	case stmt.Delete:
		return v.Conditions
	case stmt.Insert:
		var out []stmt.Condition
		for _, set := range v.Settings {
			if !set.Field.IsForeignKey() {
				continue
			}
			target, err := m.Entity(set.Field.Target)
			if err != nil {
				continue
			}
			out = append(out, stmt.Condition{Field: target.IDField(), Op: stmt.OpEq, Value: set.Value})
		}
		return out
	default:
		return nil
	}
}

func containsField(fs []model.Field, target model.Field) bool {
	for _, f := range fs {
		if f.Equal(target) {
			return true
		}
	}
	return false
}

// groupByEntity partitions fields by the entity that declares them,
// returning entity names in a deterministic order.
func groupByEntity(fields []model.Field) ([]string, map[string][]model.Field) {
	groups := make(map[string][]model.Field)
	var order []string
	for _, f := range fields {
		if _, ok := groups[f.Entity]; !ok {
			order = append(order, f.Entity)
		}
		groups[f.Entity] = append(groups[f.Entity], f)
	}
	return order, groups
}

// supportQueriesFor builds one SupportQuery per entity group of
// required that is not already bound by the statement, splicing a path
// from that entity to the statement's target via the shortest
// foreign-key route and anchoring it on whichever of the statement's
// own equality predicates reach that path. required fields already
// bound (present in boundFields(s)) are excluded before grouping, and a
// group on the target entity itself is skipped for Insert since the new
// row does not exist yet to look anything up on.
func supportQueriesFor(m *model.Model, s stmt.Statement, required []model.Field) ([]SupportQuery, error) {
	bound := boundFields(s)
	var missing []model.Field
	for _, f := range required {
		if !containsField(bound, f) {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	target := s.TargetEntity()
	conds := anchors(m, s)

	groupNames, groups := groupByEntity(missing)
	var out []SupportQuery
	for _, entity := range groupNames {
		if entity == target && s.Kind() == stmt.KindInsert {
			continue
		}
		fields := groups[entity]

		path, err := model.ShortestPath(m, entity, target)
		if err != nil {
			return nil, err
		}

		var pathConds []stmt.Condition
		for _, c := range conds {
			if c.Op.IsEquality() && path.Contains(c.Field.Entity) {
				pathConds = append(pathConds, c)
			}
		}
		if len(pathConds) == 0 {
			return nil, ErrNoSupportAnchor.New(fields[0].String(), target)
		}

		out = append(out, SupportQuery{
			Query: stmt.Query{
				Select:     fields,
				Path:       path,
				Conditions: pathConds,
			},
			Fields: fields,
		})
	}
	return out, nil
}
