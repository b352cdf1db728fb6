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

package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/model"
)

func testModel(t *testing.T) *model.Model {
	t.Helper()
	user, err := model.NewEntity("User", 1000,
		model.IDField("User", "id", 8),
		model.StringField("User", "username", 20),
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

func TestNewValidated(t *testing.T) {
	m := testModel(t)
	p, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)

	userID, _ := mustField(m, "User", "id")
	body, _ := mustField(m, "Tweet", "body")
	ts, _ := mustField(m, "Tweet", "timestamp")

	idx, err := index.NewValidated(m, []model.Field{userID}, []model.Field{ts}, []model.Field{body}, p)
	require.NoError(t, err)
	assert.NotEmpty(t, idx.Key())
	assert.Equal(t, userID.Size+body.Size+ts.Size, idx.EntrySize())
}

func TestNewValidatedMissingIdentifier(t *testing.T) {
	m := testModel(t)
	p, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)

	body, _ := mustField(m, "Tweet", "body")
	_, err = index.NewValidated(m, []model.Field{body}, nil, nil, p)
	assert.Error(t, err)
}

func TestKeyStability(t *testing.T) {
	m := testModel(t)
	p, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)
	userID, _ := mustField(m, "User", "id")
	body, _ := mustField(m, "Tweet", "body")

	a, err := index.New([]model.Field{userID}, nil, []model.Field{body}, p)
	require.NoError(t, err)
	b, err := index.New([]model.Field{userID}, nil, []model.Field{body}, p)
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())
}

func TestSetDedup(t *testing.T) {
	m := testModel(t)
	p, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)
	userID, _ := mustField(m, "User", "id")
	body, _ := mustField(m, "Tweet", "body")

	s := index.NewSet()
	a, err := index.New([]model.Field{userID}, nil, []model.Field{body}, p)
	require.NoError(t, err)
	b, err := index.New([]model.Field{userID}, nil, []model.Field{body}, p)
	require.NoError(t, err)
	s.Add(a)
	s.Add(b)
	assert.Equal(t, 1, s.Len())
}

func mustField(m *model.Model, entity, name string) (model.Field, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return model.Field{}, err
	}
	return e.Field(name)
}
