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

package enumerator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/enumerator"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
)

func testModel(t *testing.T) *model.Model {
	t.Helper()
	user, err := model.NewEntity("User", 1000,
		model.IDField("User", "id", 8),
		model.StringField("User", "city", 20),
	)
	require.NoError(t, err)
	tweet, err := model.NewEntity("Tweet", 10000,
		model.IDField("Tweet", "id", 8),
		model.ForeignKeyField("Tweet", "user_id", "User", model.ArityOne, 8),
		model.StringField("Tweet", "body", 140),
		model.DateField("Tweet", "timestamp", 8),
	)
	require.NoError(t, err)
	m, err := model.NewModel(user, tweet)
	require.NoError(t, err)
	return m
}

func field(t *testing.T, m *model.Model, entity, name string) model.Field {
	t.Helper()
	e, err := m.Entity(entity)
	require.NoError(t, err)
	f, err := e.Field(name)
	require.NoError(t, err)
	return f
}

func TestIndexesForQueryIncludesMaterializedView(t *testing.T) {
	m := testModel(t)
	path, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)

	q := stmt.Query{
		Select: []model.Field{field(t, m, "Tweet", "body")},
		Path:   path,
		Conditions: []stmt.Condition{
			{Field: field(t, m, "User", "id"), Op: stmt.OpEq},
		},
	}
	require.NoError(t, q.Validate(m))

	set, err := enumerator.IndexesForQuery(m, q)
	require.NoError(t, err)
	assert.Greater(t, set.Len(), 0)

	found := false
	for _, idx := range set.Slice() {
		if idx.Path.Equal(path) && len(idx.Hash) == 1 && idx.Hash[0].Equal(field(t, m, "User", "id")) {
			found = true
		}
	}
	assert.True(t, found, "expected the materialized view for the query to be present")
}

func TestSimpleIndex(t *testing.T) {
	m := testModel(t)
	idx, err := enumerator.SimpleIndex(m, "Tweet")
	require.NoError(t, err)
	assert.Len(t, idx.Hash, 1)
	assert.True(t, idx.Hash[0].ID())
	assert.NotEmpty(t, idx.Extra)
}

func TestIndexesForQueriesUnions(t *testing.T) {
	m := testModel(t)
	path, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)

	q1 := stmt.Query{
		Select:     []model.Field{field(t, m, "Tweet", "body")},
		Path:       path,
		Conditions: []stmt.Condition{{Field: field(t, m, "User", "id"), Op: stmt.OpEq}},
	}
	q2 := stmt.Query{
		Select:     []model.Field{field(t, m, "Tweet", "timestamp")},
		Path:       path,
		Conditions: []stmt.Condition{{Field: field(t, m, "User", "city"), Op: stmt.OpEq}},
	}
	require.NoError(t, q1.Validate(m))
	require.NoError(t, q2.Validate(m))

	set1, err := enumerator.IndexesForQuery(m, q1)
	require.NoError(t, err)
	set2, err := enumerator.IndexesForQuery(m, q2)
	require.NoError(t, err)

	union, err := enumerator.IndexesForQueries(m, []stmt.Query{q1, q2})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, union.Len(), set1.Len())
	assert.GreaterOrEqual(t, union.Len(), set2.Len())
}
