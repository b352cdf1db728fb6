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

package cassandra

import uuid "github.com/satori/go.uuid"

// NewIdentifier generates a row identifier for an Insert whose
// identifier field arrived nil. The core (stmt.Insert, updateplanner)
// never generates identifiers itself: planning and enumeration must not
// depend on whether a row's key is already materialized, so this is the
// only place in the repository that calls uuid.NewV4.
func NewIdentifier() string {
	return uuid.NewV4().String()
}
