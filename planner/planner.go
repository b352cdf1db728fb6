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

package planner

import (
	"container/heap"

	"github.com/sirupsen/logrus"

	"github.com/nosehq/nose/cost"
	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
)

// defaultEqualitySelectivity is the simple statistical model named in
// §3: without explicit per-column distinct-value statistics, an
// equality predicate on a non-identifier field is assumed to match this
// fraction of rows.
const defaultEqualitySelectivity = 0.1

// defaultRangeSelectivity is the equivalent default for the single
// allowed range predicate.
const defaultRangeSelectivity = 0.3

// Planner performs the best-first search of §4.2 over ExecutionState,
// expanding IndexLookup, Filter, Sort and Limit steps until a terminal
// state is reached.
type Planner struct {
	Cost cost.Model
}

// New builds a Planner with the given cost model, defaulting to
// cost.Default when m is nil.
func New(m cost.Model) *Planner {
	if m == nil {
		m = cost.Default
	}
	return &Planner{Cost: m}
}

// entry is one partial or complete plan on the search frontier.
type entry struct {
	state ExecutionState
	steps []Step
	cost  float64
	index int // heap bookkeeping: insertion order, used as a stable tiebreak
}

type frontier []*entry

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].index < f[j].index
}
func (f frontier) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(*entry)) }
func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	e := old[n-1]
	*f = old[:n-1]
	return e
}

// Plan performs the search and returns every plan whose cost equals the
// minimum found. It returns ErrNoPlan if the search exhausts the
// frontier without reaching a terminal state.
func (p *Planner) Plan(m *model.Model, q stmt.Query, candidates *index.Set) ([]Plan, error) {
	initial, err := p.initialState(m, q)
	if err != nil {
		return nil, err
	}

	fr := &frontier{}
	heap.Init(fr)
	seq := 0
	push := func(s ExecutionState, steps []Step, c float64) {
		heap.Push(fr, &entry{state: s, steps: steps, cost: c, index: seq})
		seq++
	}
	push(initial, nil, 0)

	visited := make(map[string]float64)
	var results []Plan
	bestCost := -1.0

	idxSlice := candidates.Slice()

	for fr.Len() > 0 {
		e := heap.Pop(fr).(*entry)

		if bestCost >= 0 && e.cost > bestCost {
			break
		}

		fp := e.state.Fingerprint()
		if prior, seen := visited[fp]; seen && prior <= e.cost {
			continue
		}
		visited[fp] = e.cost

		if ready(e.state, q) {
			steps := e.steps
			finalCost := e.cost
			if q.Limit != nil {
				n := *q.Limit
				steps = append(append([]Step(nil), steps...), Limit{N: n})
			}
			if bestCost < 0 || finalCost < bestCost {
				bestCost = finalCost
				results = []Plan{{Steps: steps, Cost: finalCost}}
			} else if finalCost == bestCost {
				results = append(results, Plan{Steps: steps, Cost: finalCost})
			}
			continue
		}

		for _, t := range p.transitions(m, q, e.state, idxSlice) {
			newCost := e.cost + t.stepCost
			if bestCost >= 0 && newCost > bestCost {
				continue
			}
			push(t.state, append(append([]Step(nil), e.steps...), t.step), newCost)
		}
	}

	if len(results) == 0 {
		return nil, ErrNoPlan.New(q.String())
	}

	logrus.WithFields(logrus.Fields{
		"query": q.String(),
		"plans": len(results),
		"cost":  bestCost,
	}).Debug("planner found minimum-cost plans")

	return results, nil
}

func (p *Planner) initialState(m *model.Model, q stmt.Query) (ExecutionState, error) {
	card, err := q.Cardinality(m)
	if err != nil {
		return ExecutionState{}, err
	}
	_, hasRange := q.RangeField()
	return ExecutionState{
		EqSatisfied:    newSet(),
		RangeSatisfied: !hasRange,
		OrderSatisfied: len(q.OrderBy) == 0,
		Available:      newSet(),
		Cardinality:    card,
		Covered:        0,
	}, nil
}

// ready reports whether every predicate, the select list and the
// ordering are satisfied and the full path has been traversed. A query
// with a Limit still needs one more (zero-cost) Limit step to become
// truly terminal; Plan applies it directly once a state is ready.
func ready(s ExecutionState, q stmt.Query) bool {
	if s.Covered != q.Path.Len() {
		return false
	}
	if !s.RangeSatisfied || !s.OrderSatisfied {
		return false
	}
	if !containsKeys(s.EqSatisfied, q.EqualityFields()) {
		return false
	}
	if !containsKeys(s.Available, q.Select) {
		return false
	}
	return true
}

type transition struct {
	step     Step
	state    ExecutionState
	stepCost float64
}

// transitions enumerates every applicable IndexLookup, Filter and Sort
// step from s.
func (p *Planner) transitions(m *model.Model, q stmt.Query, s ExecutionState, candidates []*index.Index) []transition {
	var out []transition

	if s.Covered < q.Path.Len() {
		next := q.Path.Entities[s.Covered]
		for _, idx := range candidates {
			if idx.Path.First() != next {
				continue
			}
			if idx.Path.Len() > q.Path.Len()-s.Covered {
				continue
			}
			match := true
			for i, e := range idx.Path.Entities {
				if q.Path.Entities[s.Covered+i] != e {
					match = false
					break
				}
			}
			if !match {
				continue
			}
			if t, ok := p.lookupTransition(m, q, s, idx); ok {
				out = append(out, t)
			}
		}
	}

	if t, ok := p.filterTransition(m, q, s); ok {
		out = append(out, t)
	}
	if t, ok := p.sortTransition(q, s); ok {
		out = append(out, t)
	}

	return out
}

func (p *Planner) lookupTransition(m *model.Model, q stmt.Query, s ExecutionState, idx *index.Index) (transition, bool) {
	bindable := cloneSet(s.EqSatisfied)
	unionInto(bindable, intersectEq(q, idx.Hash))
	for _, h := range idx.Hash {
		if !bindable[h.Key()] {
			return transition{}, false
		}
	}

	next := s.Clone()
	next.Covered = s.Covered + idx.Path.Len()
	unionInto(next.EqSatisfied, intersectEq(q, idx.Hash))

	head, err := m.Entity(idx.Path.First())
	if err != nil {
		return transition{}, false
	}
	tail, err := m.Entity(idx.Path.Last())
	if err != nil {
		return transition{}, false
	}
	// The tail entity's identifier becomes available as a join key for
	// any index chained onto this one.
	next.EqSatisfied[tail.IDField().Key()] = true
	unionInto(next.Available, idx.AllFields())

	var rangeField *model.Field
	if rc, hasRange := q.RangeField(); hasRange && !s.RangeSatisfied && fieldInOrder(idx, rc.Field) {
		next.RangeSatisfied = true
		f := rc.Field
		rangeField = &f
	}

	orderPrefixSatisfies := len(q.OrderBy) > 0 && orderIsPrefix(q.OrderBy, idx.Order)
	ordered := false
	if orderPrefixSatisfies {
		next.OrderSatisfied = true
		ordered = true
	}

	joinFactor := 1.0
	if head.Count > 0 {
		joinFactor = tail.Count / head.Count
	}
	predSel := 1.0
	for _, eq := range intersectEq(q, idx.Hash) {
		if !s.EqSatisfied[eq.Key()] {
			predSel *= equalitySelectivity(m, eq)
		}
	}
	if rangeField != nil {
		predSel *= defaultRangeSelectivity
	}
	rowsBefore := s.Cardinality
	next.Cardinality = s.Cardinality * joinFactor * predSel

	step := IndexLookup{
		Index:      idx,
		EqFields:   intersectEq(q, idx.Hash),
		RangeField: rangeField,
		Ordered:    ordered,
		rowsBefore: rowsBefore,
		rowsAfter:  next.Cardinality,
	}
	return transition{step: step, state: next, stepCost: p.Cost.Cost(step, 1.0)}, true
}

func (p *Planner) filterTransition(m *model.Model, q stmt.Query, s ExecutionState) (transition, bool) {
	var remEq []model.Field
	for _, f := range q.EqualityFields() {
		if !s.EqSatisfied[f.Key()] && s.Available[f.Key()] {
			remEq = append(remEq, f)
		}
	}
	var remRange *model.Field
	if rc, hasRange := q.RangeField(); hasRange && !s.RangeSatisfied && s.Available[rc.Field.Key()] {
		f := rc.Field
		remRange = &f
	}
	if len(remEq) == 0 && remRange == nil {
		return transition{}, false
	}

	next := s.Clone()
	unionInto(next.EqSatisfied, remEq)
	sel := 1.0
	for _, f := range remEq {
		sel *= equalitySelectivity(m, f)
	}
	if remRange != nil {
		next.RangeSatisfied = true
		sel *= defaultRangeSelectivity
	}
	next.Cardinality = s.Cardinality * sel

	step := Filter{RemainingEq: remEq, RemainingRange: remRange, rows: s.Cardinality, entrySize: 0}
	return transition{step: step, state: next, stepCost: p.Cost.Cost(step, 1.0)}, true
}

func (p *Planner) sortTransition(q stmt.Query, s ExecutionState) (transition, bool) {
	if s.OrderSatisfied || len(q.OrderBy) == 0 {
		return transition{}, false
	}
	if !containsKeys(s.Available, q.OrderBy) {
		return transition{}, false
	}
	next := s.Clone()
	next.OrderSatisfied = true
	step := Sort{Fields: q.OrderBy, rows: s.Cardinality, entrySize: 0}
	return transition{step: step, state: next, stepCost: p.Cost.Cost(step, 1.0)}, true
}

func intersectEq(q stmt.Query, hash []model.Field) []model.Field {
	var out []model.Field
	for _, f := range q.EqualityFields() {
		for _, h := range hash {
			if f.Equal(h) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func fieldInOrder(idx *index.Index, f model.Field) bool {
	for _, o := range idx.Order {
		if o.Equal(f) {
			return true
		}
	}
	return false
}

func orderIsPrefix(orderBy []model.Field, order []model.Field) bool {
	if len(orderBy) > len(order) {
		return false
	}
	for i, f := range orderBy {
		if !f.Equal(order[i]) {
			return false
		}
	}
	return true
}

func equalitySelectivity(m *model.Model, f model.Field) float64 {
	if f.ID() {
		if e, err := m.Entity(f.Entity); err == nil && e.Count > 0 {
			return 1.0 / e.Count
		}
	}
	return defaultEqualitySelectivity
}
