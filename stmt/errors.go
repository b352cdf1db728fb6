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

// Package stmt defines the Statement AST consumed by the rest of the
// NoSE core: queries, updates, inserts and deletes, along with the
// conditions and settings they carry.
package stmt

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrInvalidStatement covers every structural statement invariant
	// violation: no equality predicate, a range predicate on a foreign
	// key, FROM not starting with the target entity, more than one range
	// predicate, and references to fields outside the statement's path.
	ErrInvalidStatement = errors.NewKind("invalid statement: %s")

	// ErrParseFailed is raised by the parser collaborator and surfaced
	// verbatim by the core.
	ErrParseFailed = errors.NewKind("parse failed at %d: %s")
)
