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

// Package cost defines the pluggable per-step cost function the planner
// and the MILP objective both call through. Costs are additive across
// steps; every Model scales a step's cost by the weight it is passed.
// The planner and update planner price steps with weight 1.0, and the
// MILP objective multiplies the resulting plan costs by statement
// weight when aggregating (§4.5).
package cost

// StepKind tags the kind of plan step a Model is pricing.
type StepKind int

const (
	StepIndexLookup StepKind = iota
	StepFilter
	StepSort
	StepLimit
	StepInsert
	StepDelete
)

// Step is the minimal surface a plan step must expose to be priced: how
// many rows it processes and the byte width of each.
type Step interface {
	Kind() StepKind
	Rows() float64
	EntrySize() int
}

// Model prices a single plan step given the statement weight it is
// executed under. Implementations must return a nonnegative cost.
type Model interface {
	Cost(step Step, weight float64) float64
}

// EntryCount prices a step proportional to the number of rows it
// touches, independent of row width. IndexLookup and Filter/Sort all
// touch Rows() rows; Limit is free (pure truncation of an
// already-computed result).
type EntryCount struct{}

func (EntryCount) Cost(step Step, weight float64) float64 {
	if step.Kind() == StepLimit {
		return 0
	}
	return step.Rows() * weight
}

// FieldSize prices a step proportional to the bytes it reads or writes:
// rows touched times the entry width of the index or in-memory row
// involved.
type FieldSize struct{}

func (FieldSize) Cost(step Step, weight float64) float64 {
	if step.Kind() == StepLimit {
		return 0
	}
	return step.Rows() * float64(step.EntrySize()) * weight
}

// Default is the cost model used when none is supplied.
var Default Model = EntryCount{}
