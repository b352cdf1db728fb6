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
	"strings"

	"github.com/nosehq/nose/index"
)

// Plan is an ordered sequence of steps with an accumulated cost, one
// candidate execution strategy for a query over a fixed candidate index
// set.
type Plan struct {
	Steps []Step
	Cost  float64
}

// Indexes returns every index this plan's IndexLookup steps touch, the
// set the MILP's C2 constraint ties this plan's selection variable to.
func (p Plan) Indexes() []*index.Index {
	var out []*index.Index
	for _, s := range p.Steps {
		if l, ok := s.(IndexLookup); ok {
			out = append(out, l.Index)
		}
	}
	return out
}

func (p Plan) String() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " -> ")
}
