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

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrEntityNotFound is raised when a model lookup by entity name fails.
	ErrEntityNotFound = errors.NewKind("entity not found: %s")

	// ErrFieldNotFound is raised when a model lookup by field name fails.
	ErrFieldNotFound = errors.NewKind("field not found: %s")

	// ErrDuplicateEntity is raised when a Model builder is given two
	// entities with the same name.
	ErrDuplicateEntity = errors.NewKind("duplicate entity: %s")

	// ErrDuplicateField is raised when an entity declares two fields with
	// the same name.
	ErrDuplicateField = errors.NewKind("entity %s already has a field named %s")

	// ErrDuplicateIdentifier is raised when an entity declares more than
	// one identifier field.
	ErrDuplicateIdentifier = errors.NewKind("entity %s already has identifier field %s")

	// ErrMissingIdentifier is raised when an entity has no identifier field.
	ErrMissingIdentifier = errors.NewKind("entity %s has no identifier field")

	// ErrDanglingForeignKey is raised when a ForeignKey targets an entity
	// absent from the model.
	ErrDanglingForeignKey = errors.NewKind("foreign key %s.%s targets unknown entity %s")

	// ErrNoSuchForeignKey is raised when a Path references an adjacent
	// pair of entities with no ForeignKey between them.
	ErrNoSuchForeignKey = errors.NewKind("no foreign key between %s and %s")

	// ErrEmptyPath is raised when a Path is built with zero entities.
	ErrEmptyPath = errors.NewKind("path must contain at least one entity")
)
