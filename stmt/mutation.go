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
	"strings"

	"github.com/nosehq/nose/model"
)

// Update modifies fields of Target, optionally traversing Path to reach
// it from a related entity in the WHERE clause.
type Update struct {
	Target     string
	Path       model.Path
	Settings   []Setting
	Conditions []Condition
}

var _ Statement = Update{}

func (u Update) Kind() Kind          { return KindUpdate }
func (u Update) TargetEntity() string { return u.Target }

func (u Update) Validate(m *model.Model) error {
	if _, err := m.Entity(u.Target); err != nil {
		return err
	}
	if u.Path.Len() > 0 {
		if u.Path.First() != u.Target {
			return ErrInvalidStatement.New("FROM not starting with target entity")
		}
		if err := validateConditions(u.Conditions, u.Path); err != nil {
			return err
		}
	} else if len(u.Conditions) > 0 {
		return ErrInvalidStatement.New("conditions without a path")
	}
	for _, s := range u.Settings {
		if s.Field.Entity != u.Target {
			return ErrInvalidStatement.New("setting not on target entity: " + s.Field.String())
		}
		if s.Field.ID() {
			return ErrInvalidStatement.New("cannot set identifier field: " + s.Field.String())
		}
	}
	return nil
}

// ModifiedFields returns the fields an Update assigns to.
func (u Update) ModifiedFields() []model.Field {
	out := make([]model.Field, len(u.Settings))
	for i, s := range u.Settings {
		out[i] = s.Field
	}
	return out
}

func (u Update) String() string {
	parts := make([]string, len(u.Settings))
	for i, s := range u.Settings {
		parts[i] = s.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s", u.Target)
	if u.Path.Len() > 0 {
		fmt.Fprintf(&b, " FROM %s", u.Path)
	}
	fmt.Fprintf(&b, " SET %s", strings.Join(parts, ", "))
	if len(u.Conditions) > 0 {
		cparts := make([]string, len(u.Conditions))
		for i, c := range u.Conditions {
			cparts[i] = c.String()
		}
		fmt.Fprintf(&b, " WHERE %s", strings.Join(cparts, " AND "))
	}
	return b.String()
}

// Insert creates a new row of Target, binding scalar and foreign-key
// settings.
type Insert struct {
	Target   string
	Settings []Setting
}

var _ Statement = Insert{}

func (i Insert) Kind() Kind          { return KindInsert }
func (i Insert) TargetEntity() string { return i.Target }

func (i Insert) Validate(m *model.Model) error {
	e, err := m.Entity(i.Target)
	if err != nil {
		return err
	}
	for _, s := range i.Settings {
		if s.Field.Entity != i.Target {
			return ErrInvalidStatement.New("setting not on target entity: " + s.Field.String())
		}
	}
	if _, err := e.Field(e.IDField().Name); err != nil {
		return err
	}
	return nil
}

// ModifiedFields returns the fields an Insert assigns to.
func (i Insert) ModifiedFields() []model.Field {
	out := make([]model.Field, len(i.Settings))
	for idx, s := range i.Settings {
		out[idx] = s.Field
	}
	return out
}

func (i Insert) String() string {
	parts := make([]string, len(i.Settings))
	for idx, s := range i.Settings {
		parts[idx] = s.String()
	}
	return fmt.Sprintf("INSERT INTO %s SET %s", i.Target, strings.Join(parts, ", "))
}

// Delete removes rows of Target, optionally traversing Path to reach it
// from a related entity in the WHERE clause.
type Delete struct {
	Target     string
	Path       model.Path
	Conditions []Condition
}

var _ Statement = Delete{}

func (d Delete) Kind() Kind          { return KindDelete }
func (d Delete) TargetEntity() string { return d.Target }

func (d Delete) Validate(m *model.Model) error {
	if _, err := m.Entity(d.Target); err != nil {
		return err
	}
	if d.Path.Len() > 0 {
		if d.Path.First() != d.Target {
			return ErrInvalidStatement.New("FROM not starting with target entity")
		}
		return validateConditions(d.Conditions, d.Path)
	}
	if len(d.Conditions) > 0 {
		return ErrInvalidStatement.New("conditions without a path")
	}
	return nil
}

func (d Delete) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE %s", d.Target)
	if d.Path.Len() > 0 {
		fmt.Fprintf(&b, " FROM %s", d.Path)
	}
	if len(d.Conditions) > 0 {
		cparts := make([]string, len(d.Conditions))
		for i, c := range d.Conditions {
			cparts[i] = c.String()
		}
		fmt.Fprintf(&b, " WHERE %s", strings.Join(cparts, " AND "))
	}
	return b.String()
}

// ModifiesEntity reports whether a mutation's affected-field set or
// target-entity identity intersects fields, the test §4.3 uses to decide
// whether a mutation modifies a given Index.
func ModifiesEntity(s Statement, fields []model.Field) bool {
	touched := make(map[string]bool, len(fields))
	for _, f := range fields {
		touched[f.Key()] = true
	}
	check := func(mod []model.Field) bool {
		for _, f := range mod {
			if touched[f.Key()] {
				return true
			}
		}
		return false
	}
	switch v := s.(type) {
	case Update:
		return check(v.ModifiedFields())
	case Insert:
		if check(v.ModifiedFields()) {
			return true
		}
		for _, f := range fields {
			if f.Entity == v.Target {
				return true
			}
		}
		return false
	case Delete:
		for _, f := range fields {
			if f.Entity == v.Target {
				return true
			}
		}
		return false
	default:
		return false
	}
}
