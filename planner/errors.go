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

// Package planner implements the query planner: an A*-like best-first
// search over ExecutionState that expands IndexLookup, Filter, Sort and
// Limit steps until a terminal state is reached, returning every
// minimum-cost plan for a query given a candidate index set.
package planner

import "gopkg.in/src-d/go-errors.v1"

// ErrNoPlan is raised when the planner exhausts its search without
// reaching a terminal state for a query.
var ErrNoPlan = errors.NewKind("no plan for query: %s")
