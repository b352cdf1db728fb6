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
	"sort"
	"strconv"
	"strings"

	"github.com/nosehq/nose/model"
)

// ExecutionState is the planner's abstract progress marker toward
// satisfying a query: which equality predicates are already bound,
// whether the range predicate and ordering are satisfied, which fields
// are available for selection or filtering, the running cardinality
// estimate, and how much of the query's path has been traversed.
type ExecutionState struct {
	EqSatisfied    map[string]bool
	RangeSatisfied bool
	OrderSatisfied bool
	Available      map[string]bool
	Cardinality    float64
	Covered        int // entities of q.Path already traversed, 0..q.Path.Len()
}

func newSet() map[string]bool { return make(map[string]bool) }

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func unionInto(dst map[string]bool, fields []model.Field) {
	for _, f := range fields {
		dst[f.Key()] = true
	}
}

// Clone returns a deep copy suitable for extending along a new
// transition without mutating the parent state.
func (s ExecutionState) Clone() ExecutionState {
	return ExecutionState{
		EqSatisfied:    cloneSet(s.EqSatisfied),
		RangeSatisfied: s.RangeSatisfied,
		OrderSatisfied: s.OrderSatisfied,
		Available:      cloneSet(s.Available),
		Cardinality:    s.Cardinality,
		Covered:        s.Covered,
	}
}

// Fingerprint is the structural identity used by the closed set: it
// covers (eq_satisfied, range_satisfied, order_satisfied, path_covered,
// fields_available) and deliberately excludes Cardinality, which is a
// derived quantity that does not distinguish abstract progress.
func (s ExecutionState) Fingerprint() string {
	var b strings.Builder
	b.WriteString(sortedJoin(s.EqSatisfied))
	b.WriteByte('|')
	b.WriteString(sortedJoin(s.Available))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(s.RangeSatisfied))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(s.OrderSatisfied))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(s.Covered))
	return b.String()
}

func sortedJoin(s map[string]bool) string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// containsKeys reports whether every field key in fields is present in s.
func containsKeys(s map[string]bool, fields []model.Field) bool {
	for _, f := range fields {
		if !s[f.Key()] {
			return false
		}
	}
	return true
}
