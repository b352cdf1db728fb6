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

import "strings"

// Path is a non-empty ordered sequence of entities linked by foreign
// keys, the backbone of every query and every index.
type Path struct {
	Entities []string
}

// NewPath validates and builds a Path over m. Every adjacent pair must be
// linked by a ForeignKey.
func NewPath(m *Model, entities ...string) (Path, error) {
	if len(entities) == 0 {
		return Path{}, ErrEmptyPath.New()
	}
	for _, name := range entities {
		if _, err := m.Entity(name); err != nil {
			return Path{}, err
		}
	}
	for i := 0; i+1 < len(entities); i++ {
		if !m.Adjacent(entities[i], entities[i+1]) {
			return Path{}, ErrNoSuchForeignKey.New(entities[i], entities[i+1])
		}
	}
	return Path{Entities: append([]string(nil), entities...)}, nil
}

// Len returns the number of entities in the path.
func (p Path) Len() int { return len(p.Entities) }

// First returns the first entity on the path, P[0].
func (p Path) First() string { return p.Entities[0] }

// Last returns the final entity on the path, P[n].
func (p Path) Last() string { return p.Entities[len(p.Entities)-1] }

// Contains reports whether entity appears anywhere on the path.
func (p Path) Contains(entity string) bool {
	for _, e := range p.Entities {
		if e == entity {
			return true
		}
	}
	return false
}

// IndexOf returns the position of entity on the path, or -1.
func (p Path) IndexOf(entity string) int {
	for i, e := range p.Entities {
		if e == entity {
			return i
		}
	}
	return -1
}

// Subpaths enumerates every contiguous subpath of length >= 1.
func (p Path) Subpaths() []Path {
	var out []Path
	for start := 0; start < len(p.Entities); start++ {
		for end := start; end < len(p.Entities); end++ {
			out = append(out, Path{Entities: append([]string(nil), p.Entities[start:end+1]...)})
		}
	}
	return out
}

// Equal compares two paths by their entity sequence.
func (p Path) Equal(other Path) bool {
	if len(p.Entities) != len(other.Entities) {
		return false
	}
	for i := range p.Entities {
		if p.Entities[i] != other.Entities[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	return strings.Join(p.Entities, ".")
}

// Key returns a stable string identity for the path, suitable as a map
// key or as input to a structural hash.
func (p Path) Key() string { return p.String() }

// ShortestPath finds the shortest foreign-key path between from and to
// by breadth-first search over m's adjacency graph. It is used to
// splice together a support query's path when the field an update
// needs to look up lives on an entity not already covered by the
// statement's own FROM path.
func ShortestPath(m *Model, from, to string) (Path, error) {
	if _, err := m.Entity(from); err != nil {
		return Path{}, err
	}
	if _, err := m.Entity(to); err != nil {
		return Path{}, err
	}
	if from == to {
		return Path{Entities: []string{from}}, nil
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		for _, n := range m.Neighbors(cur) {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = cur
			queue = append(queue, n)
		}
	}
	if _, ok := prev[to]; !ok {
		return Path{}, ErrNoSuchForeignKey.New(from, to)
	}

	var rev []string
	for n := to; n != ""; n = prev[n] {
		rev = append(rev, n)
		if n == from {
			break
		}
	}
	entities := make([]string, len(rev))
	for i, n := range rev {
		entities[i] = rev[len(rev)-1-i]
	}
	return Path{Entities: entities}, nil
}

// Cardinality estimates the number of rows reachable by traversing the
// full path from P[0], the product of each entity's expected count
// divided by the identity collapse at P[0] (the path always starts from
// exactly one row of its first entity in a fully-bound lookup, so the
// row count contributed by P[0] itself is not multiplied in).
func (p Path) Cardinality(m *Model) (float64, error) {
	total := 1.0
	for i, name := range p.Entities {
		if i == 0 {
			continue
		}
		e, err := m.Entity(name)
		if err != nil {
			return 0, err
		}
		total *= e.Count
	}
	return total, nil
}
