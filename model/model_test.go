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

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/model"
)

func testModel(t *testing.T) *model.Model {
	t.Helper()
	user, err := model.NewEntity("User", 1000,
		model.IDField("User", "id", 8),
		model.StringField("User", "username", 20),
		model.StringField("User", "city", 20),
	)
	require.NoError(t, err)

	tweet, err := model.NewEntity("Tweet", 10000,
		model.IDField("Tweet", "id", 8),
		model.ForeignKeyField("Tweet", "user_id", "User", model.ArityOne, 8),
		model.StringField("Tweet", "body", 140),
	)
	require.NoError(t, err)

	favorite, err := model.NewEntity("Favorite", 5000,
		model.IDField("Favorite", "id", 8),
		model.ForeignKeyField("Favorite", "user_id", "User", model.ArityOne, 8),
	)
	require.NoError(t, err)

	m, err := model.NewModel(user, tweet, favorite)
	require.NoError(t, err)
	return m
}

func TestNewModelDanglingForeignKey(t *testing.T) {
	tweet, err := model.NewEntity("Tweet", 10,
		model.IDField("Tweet", "id", 8),
		model.ForeignKeyField("Tweet", "user_id", "User", model.ArityOne, 8),
	)
	require.NoError(t, err)
	_, err = model.NewModel(tweet)
	assert.Error(t, err)
}

func TestNewEntityMissingIdentifier(t *testing.T) {
	_, err := model.NewEntity("User", 10, model.StringField("User", "name", 10))
	assert.Error(t, err)
}

func TestModelAdjacentAndNeighbors(t *testing.T) {
	m := testModel(t)
	assert.True(t, m.Adjacent("Tweet", "User"))
	assert.True(t, m.Adjacent("User", "Tweet"))
	assert.True(t, m.Adjacent("User", "Favorite"))
	assert.False(t, m.Adjacent("Tweet", "Favorite"))
	assert.ElementsMatch(t, []string{"Favorite", "Tweet"}, m.Neighbors("User"))
}

func TestPathCardinality(t *testing.T) {
	m := testModel(t)
	p, err := model.NewPath(m, "User", "Tweet")
	require.NoError(t, err)
	card, err := p.Cardinality(m)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, card)
}

func TestPathInvalidAdjacency(t *testing.T) {
	m := testModel(t)
	_, err := model.NewPath(m, "Tweet", "Favorite")
	assert.Error(t, err)
}

func TestShortestPath(t *testing.T) {
	m := testModel(t)

	p, err := model.ShortestPath(m, "User", "Favorite")
	require.NoError(t, err)
	assert.Equal(t, []string{"User", "Favorite"}, p.Entities)

	p, err = model.ShortestPath(m, "Tweet", "Tweet")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tweet"}, p.Entities)

	_, err = model.ShortestPath(m, "Tweet", "NoSuchEntity")
	assert.Error(t, err)
}

func TestSubpaths(t *testing.T) {
	m := testModel(t)
	p, err := model.NewPath(m, "Tweet", "User", "Favorite")
	require.NoError(t, err)
	subs := p.Subpaths()
	assert.Len(t, subs, 6)
}
