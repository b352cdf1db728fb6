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

package milp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/enumerator"
	"github.com/nosehq/nose/milp"
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

func TestProblemSolveRespectsBudget(t *testing.T) {
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

	pl := planner.New(nil)
	plans, err := pl.Plan(m, q, candidates)
	require.NoError(t, err)
	require.NotEmpty(t, plans)

	const budget = 1_000_000_000.0
	problem := milp.NewProblem(m, budget, nil, nil)
	problem.AddQuery(milp.QueryInput{Query: q, Weight: 1, Plans: plans})

	schema, err := problem.Solve(context.Background())
	require.NoError(t, err)

	var total float64
	for _, idx := range schema.Indexes {
		size, err := idx.Size(m)
		require.NoError(t, err)
		total += size
	}
	assert.LessOrEqual(t, total, budget)
	assert.Contains(t, schema.QueryPlans, q.String())
}

func TestBuildTimeDependentSharesIndexesAcrossSteps(t *testing.T) {
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

	pl := planner.New(nil)
	plans, err := pl.Plan(m, q, candidates)
	require.NoError(t, err)
	require.NotEmpty(t, plans)

	const budget = 1_000_000_000.0
	const steps = 3
	problem := milp.BuildTimeDependent(m, budget, steps, nil, nil)
	problem.AddQuery(milp.TimeQueryInput{Query: q, Weights: []float64{1, 5, 1}, Plans: plans})

	schema, err := problem.Solve(context.Background())
	require.NoError(t, err)

	var total float64
	for _, idx := range schema.Indexes {
		size, err := idx.Size(m)
		require.NoError(t, err)
		total += size
	}
	assert.LessOrEqual(t, total, budget)

	plansByStep, ok := schema.QueryPlans[q.String()]
	require.True(t, ok)
	require.Len(t, plansByStep, steps)
	for step := 0; step < steps; step++ {
		assert.NotEmpty(t, plansByStep[step].Steps)
	}
}

func TestProblemSolveInfeasibleWithoutPlans(t *testing.T) {
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

	problem := milp.NewProblem(m, 1000, nil, nil)
	problem.AddQuery(milp.QueryInput{Query: q, Weight: 1, Plans: nil})

	_, err = problem.Solve(context.Background())
	assert.Error(t, err)
}
