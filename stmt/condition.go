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

package stmt

import (
	"fmt"

	"github.com/nosehq/nose/model"
)

// Operator is a predicate comparison operator.
type Operator int

const (
	OpEq Operator = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

func (op Operator) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

// IsEquality reports whether op is the equality operator. Only equality
// predicates may place a field in an index's hash_fields.
func (op Operator) IsEquality() bool { return op == OpEq }

// IsRange reports whether op is one of the ordering comparisons. At most
// one range predicate is allowed per statement.
func (op Operator) IsRange() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	default:
		return false
	}
}

// Condition is a single predicate (field, operator, value?). Value is
// nil for a placeholder bound at execution time. Condition equality
// (used for candidate dedup and support-query derivation) is by
// (field, operator) alone, ignoring the literal value.
type Condition struct {
	Field model.Field
	Op    Operator
	Value interface{}
}

// Equal compares two conditions by (field, operator), per the data
// model's definition of condition equality.
func (c Condition) Equal(other Condition) bool {
	return c.Field.Equal(other.Field) && c.Op == other.Op
}

func (c Condition) String() string {
	if c.Value == nil {
		return fmt.Sprintf("%s %s ?", c.Field, c.Op)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Setting is a (field, value?) assignment carried by Update and Insert
// statements.
type Setting struct {
	Field model.Field
	Value interface{}
}

func (s Setting) String() string {
	if s.Value == nil {
		return fmt.Sprintf("%s = ?", s.Field)
	}
	return fmt.Sprintf("%s = %v", s.Field, s.Value)
}
