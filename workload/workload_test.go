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

package workload_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
	"github.com/nosehq/nose/workload"
)

func userModel(t *testing.T) *model.Model {
	t.Helper()
	user, err := model.NewEntity("User", 100,
		model.IDField("User", "UserId", 8),
		model.StringField("User", "City", 20),
	)
	require.NoError(t, err)
	m, err := model.NewModel(user)
	require.NoError(t, err)
	return m
}

func cityQuery(t *testing.T, m *model.Model) stmt.Query {
	t.Helper()
	path, err := model.NewPath(m, "User")
	require.NoError(t, err)
	e, err := m.Entity("User")
	require.NoError(t, err)
	city, err := e.Field("City")
	require.NoError(t, err)
	return stmt.Query{
		Select:     []model.Field{city},
		Path:       path,
		Conditions: []stmt.Condition{{Field: city, Op: stmt.OpEq}},
	}
}

func TestNewWorkloadRejectsNonPositiveBudget(t *testing.T) {
	m := userModel(t)
	_, err := workload.NewWorkload(m, 0)
	assert.Error(t, err)
}

func TestWeightForPrefersActiveMix(t *testing.T) {
	m := userModel(t)
	w, err := workload.NewWorkload(m, 1000)
	require.NoError(t, err)

	q := cityQuery(t, m)
	require.NoError(t, w.AddWeighted(q, 1, map[string]float64{"read_heavy": 5, "write_heavy": 0.5}))

	entry := w.Entries()[0]
	assert.Equal(t, 1.0, w.WeightFor(entry))

	w.SetMix("write_heavy")
	assert.Equal(t, 0.5, w.WeightFor(entry))

	w.SetMix("unknown_mix")
	assert.Equal(t, 1.0, w.WeightFor(entry))
}

func TestValidateAccumulatesEveryViolation(t *testing.T) {
	m := userModel(t)
	w, err := workload.NewWorkload(m, 1000)
	require.NoError(t, err)

	bad := cityQuery(t, m)
	bad.Conditions = nil // no equality predicate: invalid
	require.NoError(t, w.AddQuery(bad, 1))
	require.NoError(t, w.AddQuery(bad, 1))

	result := w.Validate()
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Len())
	assert.False(t, w.Valid())
}

func TestAddMutationRejectsQuery(t *testing.T) {
	m := userModel(t)
	w, err := workload.NewWorkload(m, 1000)
	require.NoError(t, err)

	err = w.AddMutation(cityQuery(t, m), 1)
	assert.Error(t, err)
}

func TestTimeVaryingWeightAtFallsBackToWeightFor(t *testing.T) {
	m := userModel(t)
	tw, err := workload.NewTimeVaryingWorkload(m, 1000, 3)
	require.NoError(t, err)

	q := cityQuery(t, m)
	require.NoError(t, tw.AddQuery(q, 7))
	constantEntry := tw.Entries()[0]
	assert.Equal(t, 7.0, tw.WeightAt(constantEntry, 2))

	require.NoError(t, tw.AddTimeVarying(q, []float64{1, 2, 3}))
	varyingEntry := tw.Entries()[1]
	assert.Equal(t, 3.0, tw.WeightAt(varyingEntry, 2))
}

func TestAddTimeVaryingRejectsWrongLength(t *testing.T) {
	m := userModel(t)
	tw, err := workload.NewTimeVaryingWorkload(m, 1000, 3)
	require.NoError(t, err)

	err = tw.AddTimeVarying(cityQuery(t, m), []float64{1, 2})
	assert.Error(t, err)
}
