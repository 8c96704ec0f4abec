// Copyright 2025 Poiesic Systems
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

package storage

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/ragpipe/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// Chunk layout:
//
//	id       varint uint64
//	content  string
//	metadata count, then (key, value) pairs sorted by key
//	vector   count, then raw float32 values
//	inserted varint int64 unix microseconds
func sizeChunk(c *core.Chunk, keys []string) int {
	size := varint.Uint64.Size(uint64(c.Id))
	size += ord.String.Size(c.Content)
	size += varint.Int.Size(len(keys))
	for _, k := range keys {
		size += ord.String.Size(k)
		size += ord.String.Size(c.Metadata[k])
	}
	size += varint.Int.Size(len(c.Vector))
	for _, v := range c.Vector {
		size += raw.Float32.Size(v)
	}
	size += varint.Int64.Size(c.InsertedAt.UnixMicro())
	return size
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(c *core.Chunk) []byte {
	keys := slices.Sorted(maps.Keys(c.Metadata))
	buf := make([]byte, sizeChunk(c, keys))

	n := varint.Uint64.Marshal(uint64(c.Id), buf)
	n += ord.String.Marshal(c.Content, buf[n:])
	n += varint.Int.Marshal(len(keys), buf[n:])
	for _, k := range keys {
		n += ord.String.Marshal(k, buf[n:])
		n += ord.String.Marshal(c.Metadata[k], buf[n:])
	}
	n += varint.Int.Marshal(len(c.Vector), buf[n:])
	for _, v := range c.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	varint.Int64.Marshal(c.InsertedAt.UnixMicro(), buf[n:])
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	c, err := unmarshalChunk(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return c, nil
}

func unmarshalChunk(data []byte) (*core.Chunk, error) {
	var (
		c   core.Chunk
		n   int
		err error
	)

	id, m, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	c.Id = core.ID(id)
	n += m

	if c.Content, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m

	count, m, err := unmarshalLength(data[n:])
	if err != nil {
		return nil, err
	}
	n += m
	if count > 0 {
		c.Metadata = make(map[string]string, count)
	}
	for range count {
		var k, v string
		if k, m, err = ord.String.Unmarshal(data[n:]); err != nil {
			return nil, err
		}
		n += m
		if v, m, err = ord.String.Unmarshal(data[n:]); err != nil {
			return nil, err
		}
		n += m
		c.Metadata[k] = v
	}

	count, m, err = unmarshalLength(data[n:])
	if err != nil {
		return nil, err
	}
	n += m
	if count > 0 {
		c.Vector = make([]float32, count)
	}
	for i := range count {
		if c.Vector[i], m, err = raw.Float32.Unmarshal(data[n:]); err != nil {
			return nil, err
		}
		n += m
	}

	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	c.InsertedAt = time.UnixMicro(micros).UTC()

	return &c, nil
}

// unmarshalLength reads a collection length and rejects values that cannot
// fit in the remaining bytes.
func unmarshalLength(data []byte) (int, int, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return 0, 0, err
	}
	if count < 0 || count > len(data)-n {
		return 0, 0, ErrTruncatedData
	}
	return count, n, nil
}
