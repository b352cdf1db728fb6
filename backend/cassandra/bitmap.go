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
	"fmt"
	"sync"

	"github.com/pilosa/pilosa"

	"github.com/nosehq/nose/model"
)

// bitmapField mirrors one Extra scalar field of an Index into a pilosa
// field: each distinct value of f becomes a pilosa row, each stored
// Row's identifier becomes a pilosa column, so MatchingRows(v) answers
// the predicate "which stored rows have f = v" as a bitmap read instead
// of a bucket scan.
type bitmapField struct {
	field model.Field

	mu      sync.Mutex
	pilosaF *pilosa.Field
	rowIDs  map[string]uint64
	nextRow uint64
}

func newBitmapField(f model.Field, idx *pilosa.Index) (*bitmapField, error) {
	pf, err := idx.CreateFieldIfNotExists(fieldName(f), pilosa.OptFieldTypeSet(pilosa.CacheTypeRanked, 0))
	if err != nil {
		return nil, err
	}
	return &bitmapField{field: f, pilosaF: pf, rowIDs: make(map[string]uint64)}, nil
}

func fieldName(f model.Field) string {
	return fmt.Sprintf("%s_%s", f.Entity, f.Name)
}

// Set records that colID (the bolt row identifier) has value v for
// this field.
func (b *bitmapField) Set(colID uint64, v interface{}) error {
	b.mu.Lock()
	rowID, ok := b.rowIDs[fmt.Sprint(v)]
	if !ok {
		rowID = b.nextRow
		b.rowIDs[fmt.Sprint(v)] = rowID
		b.nextRow++
	}
	b.mu.Unlock()
	_, err := b.pilosaF.SetBit(rowID, colID, nil)
	return err
}

// MatchingRows returns the bolt row identifiers whose value for this
// field equals v.
func (b *bitmapField) MatchingRows(v interface{}) ([]uint64, error) {
	b.mu.Lock()
	rowID, ok := b.rowIDs[fmt.Sprint(v)]
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	row, err := b.pilosaF.Row(rowID)
	if err != nil {
		return nil, err
	}
	return row.Columns(), nil
}
