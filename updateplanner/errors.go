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

// Package updateplanner derives the support queries and Insert/Delete
// steps a mutation needs to keep every affected materialized index
// consistent, per §4.3.
package updateplanner

import "gopkg.in/src-d/go-errors.v1"

// ErrNoSupportAnchor is raised when a required field cannot be bound to
// any equality predicate (or, for Insert, any foreign-key setting)
// reachable from the statement, so no support query can be built for it.
var ErrNoSupportAnchor = errors.NewKind("no equality predicate anchors a support query for %s against %s")
