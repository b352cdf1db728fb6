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

// Package model defines the conceptual entity-relationship model NoSE
// plans against: entities, fields, foreign keys and the paths derived
// from them.
package model

import "sort"

// edge is a directed foreign-key relationship used for path discovery.
type edge struct {
	field Field // the ForeignKey field, declared on field.Entity
}

// Model is a frozen mapping of entity name to Entity. Build it with
// NewModel; it has no mutators afterward.
type Model struct {
	entities map[string]*Entity
	// adjacency maps an entity name to the ForeignKey fields reachable
	// from it, indexed by the neighboring entity name, in both
	// directions (a Path may traverse a ForeignKey either way).
	adjacency map[string]map[string][]Field
}

// NewModel validates and freezes a set of entities. Every ForeignKey
// target must exist among the given entities.
func NewModel(entities ...*Entity) (*Model, error) {
	m := &Model{
		entities:  make(map[string]*Entity, len(entities)),
		adjacency: make(map[string]map[string][]Field),
	}
	for _, e := range entities {
		if _, dup := m.entities[e.Name]; dup {
			return nil, ErrDuplicateEntity.New(e.Name)
		}
		m.entities[e.Name] = e
		m.adjacency[e.Name] = make(map[string][]Field)
	}
	for _, e := range entities {
		for _, fk := range e.ForeignKeys() {
			if _, ok := m.entities[fk.Target]; !ok {
				return nil, ErrDanglingForeignKey.New(fk.Entity, fk.Name, fk.Target)
			}
			m.adjacency[e.Name][fk.Target] = append(m.adjacency[e.Name][fk.Target], fk)
			m.adjacency[fk.Target][e.Name] = append(m.adjacency[fk.Target][e.Name], fk)
		}
	}
	return m, nil
}

// Entity looks up an entity by name.
func (m *Model) Entity(name string) (*Entity, error) {
	e, ok := m.entities[name]
	if !ok {
		return nil, ErrEntityNotFound.New(name)
	}
	return e, nil
}

// Entities returns every entity name in the model, sorted for
// deterministic iteration.
func (m *Model) Entities() []string {
	names := make([]string, 0, len(m.entities))
	for n := range m.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForeignKeysBetween returns the ForeignKey fields linking two adjacent
// entities (in either declared direction). Empty if they are not
// adjacent.
func (m *Model) ForeignKeysBetween(a, b string) []Field {
	return m.adjacency[a][b]
}

// Adjacent reports whether a and b are linked by at least one
// ForeignKey.
func (m *Model) Adjacent(a, b string) bool {
	return len(m.adjacency[a][b]) > 0
}

// Neighbors returns the names of every entity adjacent to e.
func (m *Model) Neighbors(e string) []string {
	out := make([]string, 0, len(m.adjacency[e]))
	for n := range m.adjacency[e] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
