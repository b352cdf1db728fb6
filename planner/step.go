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
	"fmt"

	"github.com/nosehq/nose/cost"
	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/model"
)

// Step is the sum type of plan steps: IndexLookup, Filter, Sort, Limit.
type Step interface {
	cost.Step
	fmt.Stringer
}

// IndexLookup fetches rows using idx, keyed by EqFields (a subset of
// idx.Hash), optionally filtered by a range predicate on a field in
// idx.Order, and sorted by a prefix of idx.Order when Ordered is set.
type IndexLookup struct {
	Index       *index.Index
	EqFields    []model.Field
	RangeField  *model.Field
	Ordered     bool
	rowsBefore  float64
	rowsAfter   float64
}

func (l IndexLookup) Kind() cost.StepKind { return cost.StepIndexLookup }
func (l IndexLookup) Rows() float64       { return l.rowsBefore }
func (l IndexLookup) EntrySize() int      { return l.Index.EntrySize() }

func (l IndexLookup) String() string {
	return fmt.Sprintf("IndexLookup(%s, rows %.1f -> %.1f)", l.Index.Key(), l.rowsBefore, l.rowsAfter)
}

// Filter applies remaining predicates in memory.
type Filter struct {
	RemainingEq    []model.Field
	RemainingRange *model.Field
	rows           float64
	entrySize      int
}

func (f Filter) Kind() cost.StepKind { return cost.StepFilter }
func (f Filter) Rows() float64       { return f.rows }
func (f Filter) EntrySize() int      { return f.entrySize }

func (f Filter) String() string {
	return fmt.Sprintf("Filter(%d eq, range=%v, rows %.1f)", len(f.RemainingEq), f.RemainingRange != nil, f.rows)
}

// Sort applies an in-memory sort when the index did not yield the
// required order.
type Sort struct {
	Fields    []model.Field
	rows      float64
	entrySize int
}

func (s Sort) Kind() cost.StepKind { return cost.StepSort }
func (s Sort) Rows() float64       { return s.rows }
func (s Sort) EntrySize() int      { return s.entrySize }

func (s Sort) String() string {
	return fmt.Sprintf("Sort(%d fields, rows %.1f)", len(s.Fields), s.rows)
}

// Limit truncates the final result to N rows.
type Limit struct {
	N int
}

func (l Limit) Kind() cost.StepKind { return cost.StepLimit }
func (l Limit) Rows() float64       { return float64(l.N) }
func (l Limit) EntrySize() int      { return 0 }

func (l Limit) String() string { return fmt.Sprintf("Limit(%d)", l.N) }

var (
	_ Step = IndexLookup{}
	_ Step = Filter{}
	_ Step = Sort{}
	_ Step = Limit{}
)
