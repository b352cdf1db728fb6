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

// Package cassandra is the backend collaborator: it materializes a
// chosen milp.Schema into physical storage, one bolt bucket per Index,
// with every Extra field additionally mirrored into pilosa bitmaps so
// predicates on them don't require a full bucket scan. It is
// the one place identifiers are actually generated, per the Open
// Question resolution recorded in SPEC_FULL.md.
package cassandra

import "gopkg.in/src-d/go-errors.v1"

// ErrUnknownIndex is raised when a Table is requested for an Index the
// Store never materialized.
var ErrUnknownIndex = errors.NewKind("unknown index: %s")

// ErrMissingField is raised when a Row is missing a value for one of
// the fields an Index's key is built from.
var ErrMissingField = errors.NewKind("row missing field: %s")

// ErrUnsupportedKind is raised when a Field's Kind has no byte-ordered
// key encoding.
var ErrUnsupportedKind = errors.NewKind("unsupported field kind: %s")

// ErrStoreClosed is raised when an operation is attempted against a
// Store whose Close has already run.
var ErrStoreClosed = errors.NewKind("store is closed")
