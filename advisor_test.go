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

package nose_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nose "github.com/nosehq/nose"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
	"github.com/nosehq/nose/workload"
)

func tweetModel(t *testing.T) *model.Model {
	t.Helper()
	user, err := model.NewEntity("User", 100,
		model.IDField("User", "UserId", 8),
		model.StringField("User", "City", 20),
		model.StringField("User", "Username", 30),
	)
	require.NoError(t, err)
	tweet, err := model.NewEntity("Tweet", 1000,
		model.IDField("Tweet", "TweetId", 8),
		model.ForeignKeyField("Tweet", "User", "User", model.ArityOne, 8),
		model.StringField("Tweet", "Body", 140),
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

// TestAdvisorUpdateOnlyWorkloadHasNoQueries mirrors scenario S3: a
// workload containing only an update with no reads produces a schema
// with no chosen indexes, since nothing ever needs to look rows up.
func TestAdvisorUpdateOnlyWorkloadHasNoQueries(t *testing.T) {
	m := tweetModel(t)
	w, err := workload.NewWorkload(m, 1_000_000_000)
	require.NoError(t, err)

	u := stmt.Update{
		Target:   "User",
		Settings: []stmt.Setting{{Field: field(t, m, "User", "Username")}},
	}
	path, err := model.NewPath(m, "User")
	require.NoError(t, err)
	u.Path = path
	u.Conditions = []stmt.Condition{{Field: field(t, m, "User", "City"), Op: stmt.OpEq}}
	require.NoError(t, u.Validate(m))
	require.NoError(t, w.AddMutation(u, 1))

	adv := nose.NewAdvisor(nil, nil)
	schema, err := adv.Recommend(context.Background(), w)
	require.NoError(t, err)
	assert.Empty(t, schema.Indexes)
}

// TestAdvisorSupportQueryJoinsCandidates mirrors scenario S4: adding a
// read that needs User.Username alongside the S3 update forces a
// support-query index over (City -> Username) into the chosen schema.
func TestAdvisorSupportQueryJoinsCandidates(t *testing.T) {
	m := tweetModel(t)
	w, err := workload.NewWorkload(m, 1_000_000_000)
	require.NoError(t, err)

	path, err := model.NewPath(m, "User")
	require.NoError(t, err)
	u := stmt.Update{
		Target:     "User",
		Path:       path,
		Settings:   []stmt.Setting{{Field: field(t, m, "User", "Username")}},
		Conditions: []stmt.Condition{{Field: field(t, m, "User", "City"), Op: stmt.OpEq}},
	}
	require.NoError(t, u.Validate(m))
	require.NoError(t, w.AddMutation(u, 1))

	qPath, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)
	q := stmt.Query{
		Select:     []model.Field{field(t, m, "Tweet", "Body")},
		Path:       qPath,
		Conditions: []stmt.Condition{{Field: field(t, m, "User", "Username"), Op: stmt.OpEq}},
	}
	require.NoError(t, q.Validate(m))
	require.NoError(t, w.AddQuery(q, 1))

	adv := nose.NewAdvisor(nil, nil)
	schema, err := adv.Recommend(context.Background(), w)
	require.NoError(t, err)
	assert.NotEmpty(t, schema.Indexes)

	var foundSupportIndex bool
	for _, idx := range schema.Indexes {
		if idx.HasField(field(t, m, "User", "City")) && idx.HasField(field(t, m, "User", "Username")) {
			foundSupportIndex = true
		}
	}
	assert.True(t, foundSupportIndex, "expected a City->Username support index among %v", schema.Indexes)
}

// TestAdvisorRecommendTimeDependentSharesIndexesAcrossSteps exercises the
// §6 `TimeSteps`/`F` path: a single query with a weight vector that
// spikes at step 1 still produces one schema with one chosen plan per
// step, the materialized indexes shared across every step.
func TestAdvisorRecommendTimeDependentSharesIndexesAcrossSteps(t *testing.T) {
	m := tweetModel(t)
	const steps = 3
	tw, err := workload.NewTimeVaryingWorkload(m, 1_000_000_000, steps)
	require.NoError(t, err)

	qPath, err := model.NewPath(m, "User")
	require.NoError(t, err)
	q := stmt.Query{
		Select:     []model.Field{field(t, m, "User", "Username")},
		Path:       qPath,
		Conditions: []stmt.Condition{{Field: field(t, m, "User", "City"), Op: stmt.OpEq}},
	}
	require.NoError(t, q.Validate(m))
	require.NoError(t, tw.AddTimeVarying(q, []float64{1, 50, 1}))

	adv := nose.NewAdvisor(nil, nil)
	schema, err := adv.RecommendTimeDependent(context.Background(), tw)
	require.NoError(t, err)
	assert.NotEmpty(t, schema.Indexes)

	plansByStep, ok := schema.QueryPlans[q.String()]
	require.True(t, ok)
	require.Len(t, plansByStep, steps)
	for step := 0; step < steps; step++ {
		assert.NotEmpty(t, plansByStep[step].Steps)
	}
}
