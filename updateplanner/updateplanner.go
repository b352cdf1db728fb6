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
	"github.com/sirupsen/logrus"

	"github.com/nosehq/nose/cost"
	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
)

// Plan is the maintenance work a mutation requires: the support queries
// it needs to answer first, and the Insert/Delete steps that keep every
// index ModifiesEntity touches consistent.
type Plan struct {
	Statement stmt.Statement
	Support   []SupportQuery
	Steps     []Step
	Cost      float64
}

// Planner derives maintenance plans for mutations against a fixed
// candidate index set.
type Planner struct {
	Cost cost.Model
}

// New builds a Planner with the given cost model, defaulting to
// cost.Default when c is nil.
func New(c cost.Model) *Planner {
	if c == nil {
		c = cost.Default
	}
	return &Planner{Cost: c}
}

// Plan derives the maintenance work s requires against every index in
// candidates that s modifies, per §4.3. Indexes are visited in key
// order for a deterministic step sequence.
func (p *Planner) Plan(m *model.Model, s stmt.Statement, candidates *index.Set) (*Plan, error) {
	plan := &Plan{Statement: s}

	for _, idx := range candidates.Slice() {
		if !stmt.ModifiesEntity(s, idx.AllFields()) {
			continue
		}

		rows, err := idx.Path.Cardinality(m)
		if err != nil {
			return nil, err
		}

		switch s.Kind() {
		case stmt.KindInsert:
			// TODO: one support query per parent entity group, each a
			// single-row lookup by foreign-key identifier. A joined
			// query spanning every ancestor group in one round trip
			// would save latency but isn't implemented yet.
			support, err := supportQueriesFor(m, s, idx.Hash)
			if err != nil {
				return nil, err
			}
			plan.Support = append(plan.Support, support...)
			step := InsertStep{Index: idx, rows: rows}
			plan.Steps = append(plan.Steps, step)
			plan.Cost += p.Cost.Cost(step, 1.0)

		case stmt.KindDelete:
			support, err := supportQueriesFor(m, s, idx.Hash)
			if err != nil {
				return nil, err
			}
			plan.Support = append(plan.Support, support...)
			step := DeleteStep{Index: idx, rows: rows}
			plan.Steps = append(plan.Steps, step)
			plan.Cost += p.Cost.Cost(step, 1.0)

		case stmt.KindUpdate:
			u := s.(stmt.Update)
			required := append([]model.Field(nil), idx.Hash...)
			if keyChanges(u, idx) {
				required = append(required, idx.Order...)
			}
			support, err := supportQueriesFor(m, s, required)
			if err != nil {
				return nil, err
			}
			plan.Support = append(plan.Support, support...)

			if keyChanges(u, idx) {
				del := DeleteStep{Index: idx, rows: rows}
				plan.Steps = append(plan.Steps, del)
				plan.Cost += p.Cost.Cost(del, 1.0)
			}
			ins := InsertStep{Index: idx, rows: rows}
			plan.Steps = append(plan.Steps, ins)
			plan.Cost += p.Cost.Cost(ins, 1.0)
		}
	}

	logrus.WithFields(logrus.Fields{
		"statement": s.String(),
		"support":   len(plan.Support),
		"steps":     len(plan.Steps),
	}).Debug("updateplanner derived maintenance plan")

	return plan, nil
}

// CostByIndex sums this plan's step costs per affected index, keyed by
// index.Key(): the update_cost(m,i) term SearchMILP's u_{m,i} variables
// price. An Update that both deletes and reinserts into the same index
// contributes both steps' costs to that one key.
func (p *Plan) CostByIndex(c cost.Model) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range p.Steps {
		switch st := s.(type) {
		case InsertStep:
			out[st.Index.Key()] += c.Cost(st, 1.0)
		case DeleteStep:
			out[st.Index.Key()] += c.Cost(st, 1.0)
		}
	}
	return out
}

// IndexesByKey returns every index this plan's steps touch, keyed by
// index.Key().
func (p *Plan) IndexesByKey() map[string]*index.Index {
	out := make(map[string]*index.Index)
	for _, s := range p.Steps {
		switch st := s.(type) {
		case InsertStep:
			out[st.Index.Key()] = st.Index
		case DeleteStep:
			out[st.Index.Key()] = st.Index
		}
	}
	return out
}

// keyChanges reports whether u's settings touch any field idx uses as a
// hash or order key, meaning the existing entry must be deleted under
// its old key before the updated row is reinserted under its new one.
// An update that only touches idx's extra fields can overwrite the
// existing entry in place.
func keyChanges(u stmt.Update, idx *index.Index) bool {
	for _, f := range u.ModifiedFields() {
		for _, h := range idx.Hash {
			if f.Equal(h) {
				return true
			}
		}
		for _, o := range idx.Order {
			if f.Equal(o) {
				return true
			}
		}
	}
	return false
}
