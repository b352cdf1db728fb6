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

package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
	"github.com/nosehq/nose/stmt/parse"
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
	m, err := model.NewModel(user, tweet)
	require.NoError(t, err)
	return m
}

func TestParseSelectWithWhereOrderLimit(t *testing.T) {
	m := testModel(t)
	s, err := parse.Parse(m, `SELECT Tweet.body FROM User.Tweet WHERE User.id = ? ORDER BY Tweet.id LIMIT 10;`)
	require.NoError(t, err)

	q, ok := s.(stmt.Query)
	require.True(t, ok)
	require.Len(t, q.Select, 1)
	assert.Equal(t, "body", q.Select[0].Name)
	require.Len(t, q.Conditions, 1)
	assert.Equal(t, stmt.OpEq, q.Conditions[0].Op)
	require.NotNil(t, q.Limit)
	assert.Equal(t, 10, *q.Limit)
	require.NoError(t, q.Validate(m))
}

func TestParseSelectStarExpandsEntityFields(t *testing.T) {
	m := testModel(t)
	s, err := parse.Parse(m, `SELECT * FROM User;`)
	require.NoError(t, err)

	q, ok := s.(stmt.Query)
	require.True(t, ok)
	e, err := m.Entity("User")
	require.NoError(t, err)
	assert.Len(t, q.Select, len(e.Fields()))
}

func TestParseUpdateDefaultsPathToTarget(t *testing.T) {
	m := testModel(t)
	s, err := parse.Parse(m, `UPDATE User SET username = ? WHERE User.city = ?;`)
	require.NoError(t, err)

	u, ok := s.(stmt.Update)
	require.True(t, ok)
	assert.Equal(t, "User", u.Path.Last())
	require.Len(t, u.Settings, 1)
	require.Len(t, u.Conditions, 1)
	require.NoError(t, u.Validate(m))
}

func TestParseInsert(t *testing.T) {
	m := testModel(t)
	s, err := parse.Parse(m, `INSERT INTO Tweet SET id = ?, user_id = ?, body = 'hello';`)
	require.NoError(t, err)

	ins, ok := s.(stmt.Insert)
	require.True(t, ok)
	require.Len(t, ins.Settings, 3)
	require.NoError(t, ins.Validate(m))
}

func TestParseDelete(t *testing.T) {
	m := testModel(t)
	s, err := parse.Parse(m, `DELETE Tweet WHERE Tweet.id = ?;`)
	require.NoError(t, err)

	d, ok := s.(stmt.Delete)
	require.True(t, ok)
	assert.Equal(t, "Tweet", d.Target)
	require.NoError(t, d.Validate(m))
}

func TestParseUnknownFieldFailsWithPosition(t *testing.T) {
	m := testModel(t)
	_, err := parse.Parse(m, `SELECT User.nope FROM User;`)
	require.Error(t, err)
	assert.True(t, stmt.ErrParseFailed.Is(err))
}

func TestParseMalformedStatementFails(t *testing.T) {
	m := testModel(t)
	_, err := parse.Parse(m, `SELECT FROM User;`)
	require.Error(t, err)
}

func TestParseTrailingGarbageFails(t *testing.T) {
	m := testModel(t)
	_, err := parse.Parse(m, `SELECT * FROM User WHERE User.id = ? garbage;`)
	require.Error(t, err)
	assert.True(t, stmt.ErrParseFailed.Is(err))
}
