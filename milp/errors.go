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

// Package milp builds and solves the index-selection mixed-integer
// program of §4.5: which candidate indexes to materialize and which
// plan to run per statement, jointly, under a storage budget. The
// solver itself is reached only through the abstract Solver interface
// named in §9, so swapping in a different MILP engine later means
// writing a new Solver, not touching Problem.
package milp

import "gopkg.in/src-d/go-errors.v1"

// NoSolutionKind tags why SearchMILP could not produce a schema.
type NoSolutionKind int

const (
	// NoSolutionBudget means every feasible index set satisfying query
	// and update coverage exceeds the storage budget.
	NoSolutionBudget NoSolutionKind = iota
	// NoSolutionCoverage means some statement has no usable plan even
	// with every candidate index materialized.
	NoSolutionCoverage
	// NoSolutionTimeout means the search deadline elapsed before a
	// feasible integer solution was found.
	NoSolutionTimeout
)

func (k NoSolutionKind) String() string {
	switch k {
	case NoSolutionBudget:
		return "budget"
	case NoSolutionCoverage:
		return "coverage"
	case NoSolutionTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ErrNoSolution is raised when the MILP is infeasible or its deadline
// expires before a feasible solution is found.
var ErrNoSolution = errors.NewKind("no solution: %s")
