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

package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/enumerator"
	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/planner"
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

func TestPlanFindsMinimumCostPlan(t *testing.T) {
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

	candidates, err := enumerator.IndexesForQuery(m, q)
	require.NoError(t, err)

	p := planner.New(nil)
	plans, err := p.Plan(m, q, candidates)
	require.NoError(t, err)
	require.NotEmpty(t, plans)

	best := plans[0].Cost
	for _, pl := range plans {
		assert.Equal(t, best, pl.Cost)
		assert.NotEmpty(t, pl.Indexes())
	}
}

func TestPlanNoPlanWithoutCandidates(t *testing.T) {
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

	p := planner.New(nil)
	_, err = p.Plan(m, q, index.NewSet())
	assert.Error(t, err)
}

func TestPlanAppliesLimit(t *testing.T) {
	m := testModel(t)
	path, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)

	n := 5
	q := stmt.Query{
		Select: []model.Field{field(t, m, "Tweet", "body")},
		Path:   path,
		Conditions: []stmt.Condition{
			{Field: field(t, m, "User", "id"), Op: stmt.OpEq},
		},
		Limit: &n,
	}
	require.NoError(t, q.Validate(m))

	candidates, err := enumerator.IndexesForQuery(m, q)
	require.NoError(t, err)

	p := planner.New(nil)
	plans, err := p.Plan(m, q, candidates)
	require.NoError(t, err)
	require.NotEmpty(t, plans)

	last := plans[0].Steps[len(plans[0].Steps)-1]
	_, ok := last.(planner.Limit)
	assert.True(t, ok)
}
