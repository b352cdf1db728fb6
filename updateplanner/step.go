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
	"fmt"

	"github.com/nosehq/nose/cost"
	"github.com/nosehq/nose/index"
)

// Step is the sum type of update-plan steps: InsertStep, DeleteStep.
type Step interface {
	cost.Step
	fmt.Stringer
}

// InsertStep writes one new entry into idx per affected row, assembled
// from the mutation's own settings plus whatever its support queries
// fetched.
type InsertStep struct {
	Index *index.Index
	rows  float64
}

func (s InsertStep) Kind() cost.StepKind { return cost.StepInsert }
func (s InsertStep) Rows() float64       { return s.rows }
func (s InsertStep) EntrySize() int      { return s.Index.EntrySize() }

func (s InsertStep) String() string {
	return fmt.Sprintf("InsertStep(%s, rows %.1f)", s.Index.Key(), s.rows)
}

// DeleteStep removes the entry in idx keyed by the row's pre-mutation
// hash and order fields, fetched by a support query when they are not
// already bound by the statement itself.
type DeleteStep struct {
	Index *index.Index
	rows  float64
}

func (s DeleteStep) Kind() cost.StepKind { return cost.StepDelete }
func (s DeleteStep) Rows() float64       { return s.rows }
func (s DeleteStep) EntrySize() int      { return s.Index.EntrySize() }

func (s DeleteStep) String() string {
	return fmt.Sprintf("DeleteStep(%s, rows %.1f)", s.Index.Key(), s.rows)
}

var (
	_ Step = InsertStep{}
	_ Step = DeleteStep{}
)
