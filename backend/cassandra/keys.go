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
	"encoding/binary"
	"math"

	"github.com/nosehq/nose/model"
)

// Row is a materialized entry keyed by model.Field.Key(), holding the
// concrete value of every field an Index touches.
type Row map[string]interface{}

// encodeKey concatenates the byte-ordered encoding of each field in fs,
// in order, length-prefixed so concatenation never blurs a field
// boundary. For Hash fields this just needs to be collision-free; for
// Order fields the encoding must additionally preserve the field's
// natural ordering, since bolt buckets are iterated in byte order.
func encodeKey(fs []model.Field, row Row) ([]byte, error) {
	var out []byte
	for _, f := range fs {
		v, ok := row[f.Key()]
		if !ok {
			return nil, ErrMissingField.New(f.String())
		}
		enc, err := encodeValue(f, v)
		if err != nil {
			return nil, err
		}
		var lenPrefix [4]byte
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(enc)))
		out = append(out, lenPrefix[:]...)
		out = append(out, enc...)
	}
	return out, nil
}

// encodeValue renders v as a byte string whose lexicographic order
// matches v's natural order, the property bolt's ordered buckets need
// to serve Order-field range scans directly off the key space.
func encodeValue(f model.Field, v interface{}) ([]byte, error) {
	switch f.Kind {
	case model.KindInteger, model.KindForeignKey:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		// Flip the sign bit so two's-complement negatives sort before
		// positives under an unsigned big-endian comparison.
		binary.BigEndian.PutUint64(buf, uint64(n)^(1<<63))
		return buf, nil
	case model.KindDate:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n)^(1<<63))
		return buf, nil
	case model.KindFloat:
		x, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		bits := math.Float64bits(x)
		if x >= 0 {
			bits |= 1 << 63
		} else {
			bits = ^bits
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, bits)
		return buf, nil
	case model.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, ErrUnsupportedKind.New(f.String())
		}
		return []byte(s), nil
	default:
		return nil, ErrUnsupportedKind.New(f.Kind.String())
	}
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, ErrUnsupportedKind.New("non-integer value")
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, ErrUnsupportedKind.New("non-float value")
	}
}
