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

package workload

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrInvalidWorkload is raised by manifest loading for structural
	// problems outside any single Statement's own invariants: a missing
	// budget, a non-positive weight, a malformed weight vector.
	ErrInvalidWorkload = errors.NewKind("invalid workload: %s")
)
