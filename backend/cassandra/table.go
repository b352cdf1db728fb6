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

package cassandra

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/boltdb/bolt"
	"github.com/pilosa/pilosa"

	"github.com/nosehq/nose/index"
)

// Table is the physical materialization of one chosen Index: rows live
// in a bolt bucket keyed by the encoded hash tuple followed by the
// encoded order tuple, and every Extra field is additionally mirrored
// into a bitmapField so point predicates on Extra columns don't require
// walking the bucket.
type Table struct {
	idx     *index.Index
	bucket  []byte
	db      *bolt.DB
	extra   map[string]*bitmapField
}

func newTable(db *bolt.DB, pilosaIdx *pilosa.Index, idx *index.Index) (*Table, error) {
	bucket := []byte(idx.Key())
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	extra := make(map[string]*bitmapField, len(idx.Extra))
	for _, f := range idx.Extra {
		bf, err := newBitmapField(f, pilosaIdx)
		if err != nil {
			return nil, err
		}
		extra[f.Key()] = bf
	}

	return &Table{idx: idx, bucket: bucket, db: db, extra: extra}, nil
}

// Put stores row under this Table's index, generating a bolt-sequence
// row identifier and mirroring every Extra field into its bitmap.
func (t *Table) Put(row Row) (uint64, error) {
	hashKey, err := encodeKey(t.idx.Hash, row)
	if err != nil {
		return 0, err
	}
	orderKey, err := encodeKey(t.idx.Order, row)
	if err != nil {
		return 0, err
	}
	key := append(hashKey, orderKey...)

	var rowID uint64
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(row); err != nil {
		return 0, err
	}

	err = t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if b == nil {
			return ErrUnknownIndex.New(t.idx.Key())
		}
		rowID, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(append(key, seqSuffix(rowID)...), buf.Bytes())
	})
	if err != nil {
		return 0, err
	}

	for _, f := range t.idx.Extra {
		if v, ok := row[f.Key()]; ok {
			if err := t.extra[f.Key()].Set(rowID, v); err != nil {
				return rowID, err
			}
		}
	}
	return rowID, nil
}

// Scan iterates every row whose hash-field encoding matches hashRow,
// in Order-field byte order, calling fn for each decoded Row.
func (t *Table) Scan(hashRow Row, fn func(Row) error) error {
	prefix, err := encodeKey(t.idx.Hash, hashRow)
	if err != nil {
		return err
	}
	return t.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if b == nil {
			return ErrUnknownIndex.New(t.idx.Key())
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var row Row
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&row); err != nil {
				return err
			}
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// MatchingRows reports the row identifiers whose Extra field f equals
// v, answered from f's bitmap without touching the bolt bucket.
func (t *Table) MatchingRows(fieldKey string, v interface{}) ([]uint64, error) {
	bf, ok := t.extra[fieldKey]
	if !ok {
		return nil, ErrMissingField.New(fieldKey)
	}
	return bf.MatchingRows(v)
}

func seqSuffix(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}
