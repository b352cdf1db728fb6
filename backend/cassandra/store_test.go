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

package cassandra_test

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nosehq/nose/backend/cassandra"
	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/milp"
	"github.com/nosehq/nose/model"
)

func schemaFor(idx *index.Index) *milp.Schema {
	return &milp.Schema{Indexes: []*index.Index{idx}}
}

func tempStore(t *testing.T) (*cassandra.Store, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "nose-cassandra")
	require.NoError(t, err)
	s, err := cassandra.Open(dir)
	require.NoError(t, err)
	return s, func() {
		s.Close()
		os.RemoveAll(dir)
	}
}

func userCityIndex(t *testing.T) *index.Index {
	t.Helper()
	user, err := model.NewEntity("User", 100,
		model.IDField("User", "UserId", 8),
		model.StringField("User", "City", 20),
		model.StringField("User", "Username", 30),
	)
	require.NoError(t, err)
	m, err := model.NewModel(user)
	require.NoError(t, err)
	path, err := model.NewPath(m, "User")
	require.NoError(t, err)

	id, err := user.Field("UserId")
	require.NoError(t, err)
	city, err := user.Field("City")
	require.NoError(t, err)
	username, err := user.Field("Username")
	require.NoError(t, err)

	idx, err := index.NewValidated(m, []model.Field{id}, nil, []model.Field{city, username}, path)
	require.NoError(t, err)
	return idx
}

func TestMaterializeCreatesTableOnce(t *testing.T) {
	s, cleanup := tempStore(t)
	defer cleanup()

	idx := userCityIndex(t)
	require.NoError(t, s.Materialize(schemaFor(idx)))

	_, err := s.Table(idx)
	require.NoError(t, err)
}

func TestTableUnmaterializedIsUnknown(t *testing.T) {
	s, cleanup := tempStore(t)
	defer cleanup()

	idx := userCityIndex(t)
	_, err := s.Table(idx)
	require.Error(t, err)
}

func TestPutAndScanRoundTrips(t *testing.T) {
	s, cleanup := tempStore(t)
	defer cleanup()

	idx := userCityIndex(t)
	require.NoError(t, s.Materialize(schemaFor(idx)))
	table, err := s.Table(idx)
	require.NoError(t, err)

	row := cassandra.Row{
		"User.UserId":   int64(42),
		"User.City":     "Stockholm",
		"User.Username": "alice",
	}
	_, err = table.Put(row)
	require.NoError(t, err)

	var found []cassandra.Row
	err = table.Scan(cassandra.Row{"User.UserId": int64(42)}, func(r cassandra.Row) error {
		found = append(found, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Stockholm", found[0]["User.City"])
}

func TestMatchingRowsFindsBitmapHit(t *testing.T) {
	s, cleanup := tempStore(t)
	defer cleanup()

	idx := userCityIndex(t)
	require.NoError(t, s.Materialize(schemaFor(idx)))
	table, err := s.Table(idx)
	require.NoError(t, err)

	id, err := table.Put(cassandra.Row{
		"User.UserId":   int64(7),
		"User.City":     "Lund",
		"User.Username": "bob",
	})
	require.NoError(t, err)

	rows, err := table.MatchingRows("User.City", "Lund")
	require.NoError(t, err)
	require.Contains(t, rows, id)
}
