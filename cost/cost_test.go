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

package cost_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nosehq/nose/cost"
)

type fakeStep struct {
	kind cost.StepKind
	rows float64
	size int
}

func (f fakeStep) Kind() cost.StepKind { return f.kind }
func (f fakeStep) Rows() float64       { return f.rows }
func (f fakeStep) EntrySize() int      { return f.size }

func TestEntryCount(t *testing.T) {
	c := cost.EntryCount{}
	assert.Equal(t, 20.0, c.Cost(fakeStep{kind: cost.StepIndexLookup, rows: 10, size: 50}, 2.0))
	assert.Equal(t, 0.0, c.Cost(fakeStep{kind: cost.StepLimit, rows: 10}, 2.0))
}

func TestFieldSize(t *testing.T) {
	c := cost.FieldSize{}
	assert.Equal(t, 1000.0, c.Cost(fakeStep{kind: cost.StepFilter, rows: 10, size: 50}, 2.0))
	assert.Equal(t, 0.0, c.Cost(fakeStep{kind: cost.StepLimit, rows: 10, size: 50}, 2.0))
}

func TestDefaultIsEntryCount(t *testing.T) {
	_, ok := cost.Default.(cost.EntryCount)
	assert.True(t, ok)
}
