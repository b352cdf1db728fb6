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

package model

// Entity is a named record type with an expected cardinality and an
// ordered set of Fields. Entities are frozen once built; every method is
// read-only.
type Entity struct {
	Name   string
	Count  float64
	fields []Field
	byName map[string]int
	idIdx  int
}

// NewEntity builds a frozen Entity. count must be positive. Exactly one
// of fields must be an identifier (see IDField); all field Entity values
// must equal name.
func NewEntity(name string, count float64, fields ...Field) (*Entity, error) {
	e := &Entity{
		Name:   name,
		Count:  count,
		fields: append([]Field(nil), fields...),
		byName: make(map[string]int, len(fields)),
		idIdx:  -1,
	}
	for i, f := range e.fields {
		if f.Entity != name {
			f.Entity = name
			e.fields[i] = f
		}
		if _, dup := e.byName[f.Name]; dup {
			return nil, ErrDuplicateField.New(name, f.Name)
		}
		e.byName[f.Name] = i
		if f.ID() {
			if e.idIdx >= 0 {
				return nil, ErrDuplicateIdentifier.New(name, f.Name)
			}
			e.idIdx = i
		}
	}
	if e.idIdx < 0 {
		return nil, ErrMissingIdentifier.New(name)
	}
	return e, nil
}

// Fields returns the entity's fields in declaration order. The returned
// slice must not be mutated.
func (e *Entity) Fields() []Field { return e.fields }

// Field looks up a field by name.
func (e *Entity) Field(name string) (Field, error) {
	i, ok := e.byName[name]
	if !ok {
		return Field{}, ErrFieldNotFound.New(e.Name + "." + name)
	}
	return e.fields[i], nil
}

// IDField returns the entity's identifier field.
func (e *Entity) IDField() Field { return e.fields[e.idIdx] }

// ScalarFields returns every non-foreign-key, non-identifier field.
func (e *Entity) ScalarFields() []Field {
	out := make([]Field, 0, len(e.fields))
	for _, f := range e.fields {
		if !f.IsForeignKey() && !f.ID() {
			out = append(out, f)
		}
	}
	return out
}

// ForeignKeys returns every relationship field declared on the entity.
func (e *Entity) ForeignKeys() []Field {
	out := make([]Field, 0, len(e.fields))
	for _, f := range e.fields {
		if f.IsForeignKey() {
			out = append(out, f)
		}
	}
	return out
}
