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

// Package index defines the Index value: hash keys, ordered cluster
// keys, extra columns and the path they are materialized over.
package index

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrInvalidIndex covers every Index construction invariant: empty
	// hash fields, fields off the path, or a missing identifier.
	ErrInvalidIndex = errors.NewKind("invalid index: %s")
)
