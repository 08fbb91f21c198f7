// Copyright 2026 Open Harbor
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


package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for everything persisted in badger or
// carried in queue messages. Timestamps are encoded as Unix microseconds.

// IDMUS serializes IDs.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	num, n, err := varint.Uint64.Unmarshal(bs)
	return ID(num), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// timeMUS serializes timestamps as Unix microseconds.
type timeMUS struct{}

func (timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (timeMUS) Size(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}

var timeSer = timeMUS{}

// stringSliceMUS serializes a slice of strings with a varint length prefix.
type stringSliceMUS struct{}

func (stringSliceMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringSliceMUS) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	v = make([]string, length)
	for i := 0; i < length; i++ {
		var n1 int
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (stringSliceMUS) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

var stringSliceSer = stringSliceMUS{}

// vectorMUS serializes a []float32 embedding vector.
type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	v = make([]float32, length)
	for i := 0; i < length; i++ {
		var (
			bits uint32
			n1   int
		)
		bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[i] = math.Float32frombits(bits)
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

var vectorSer = vectorMUS{}

// WorkItemMUS serializes WorkItems.
var WorkItemMUS = workItemMUS{}

type workItemMUS struct{}

func (workItemMUS) Marshal(v WorkItem, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.TaskId, bs[n:])
	n += ord.String.Marshal(v.Source.URI, bs[n:])
	n += ord.String.Marshal(v.Source.DeclaredType, bs[n:])
	n += ord.Bool.Marshal(v.Source.PageWise, bs[n:])
	n += ord.String.Marshal(v.Tag, bs[n:])
	n += ord.String.Marshal(v.Company, bs[n:])
	n += varint.Int.Marshal(int(v.Stage), bs[n:])
	n += varint.Int.Marshal(v.Attempt, bs[n:])
	n += timeSer.Marshal(v.SubmittedAt, bs[n:])
	return n
}

func (workItemMUS) Unmarshal(bs []byte) (v WorkItem, n int, err error) {
	var n1 int
	if v.Id, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n1, err
	}
	n = n1
	if v.TaskId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Source.URI, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Source.DeclaredType, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Source.PageWise, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Tag, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Company, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var stage int
	if stage, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Stage = Stage(stage)
	n += n1
	if v.Attempt, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.SubmittedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (workItemMUS) Size(v WorkItem) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.TaskId)
	size += ord.String.Size(v.Source.URI)
	size += ord.String.Size(v.Source.DeclaredType)
	size += ord.Bool.Size(v.Source.PageWise)
	size += ord.String.Size(v.Tag)
	size += ord.String.Size(v.Company)
	size += varint.Int.Size(int(v.Stage))
	size += varint.Int.Size(v.Attempt)
	size += timeSer.Size(v.SubmittedAt)
	return size
}

// TaskStatusRecordMUS serializes TaskStatusRecords.
var TaskStatusRecordMUS = taskStatusRecordMUS{}

type taskStatusRecordMUS struct{}

func (taskStatusRecordMUS) Marshal(v TaskStatusRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.TaskId, bs)
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.String.Marshal(v.Progress, bs[n:])
	n += timeSer.Marshal(v.CreatedAt, bs[n:])
	n += timeSer.Marshal(v.UpdatedAt, bs[n:])
	return n
}

func (taskStatusRecordMUS) Unmarshal(bs []byte) (v TaskStatusRecord, n int, err error) {
	var n1 int
	if v.TaskId, n1, err = ord.String.Unmarshal(bs); err != nil {
		return v, n1, err
	}
	n = n1
	var status string
	if status, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Status = TaskStatus(status)
	n += n1
	if v.Progress, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (taskStatusRecordMUS) Size(v TaskStatusRecord) (size int) {
	size = ord.String.Size(v.TaskId)
	size += ord.String.Size(string(v.Status))
	size += ord.String.Size(v.Progress)
	size += timeSer.Size(v.CreatedAt)
	size += timeSer.Size(v.UpdatedAt)
	return size
}

// ChunkSetMUS serializes ChunkSets.
var ChunkSetMUS = chunkSetMUS{}

type chunkSetMUS struct{}

func (chunkSetMUS) Marshal(v ChunkSet, bs []byte) (n int) {
	return stringSliceSer.Marshal(v.Chunks, bs)
}

func (chunkSetMUS) Unmarshal(bs []byte) (v ChunkSet, n int, err error) {
	v.Chunks, n, err = stringSliceSer.Unmarshal(bs)
	return v, n, err
}

func (chunkSetMUS) Size(v ChunkSet) int {
	return stringSliceSer.Size(v.Chunks)
}

// VectorSetMUS serializes VectorSets.
var VectorSetMUS = vectorSetMUS{}

type vectorSetMUS struct{}

func (vectorSetMUS) Marshal(v VectorSet, bs []byte) (n int) {
	n = stringSliceSer.Marshal(v.Chunks, bs)
	n += varint.Int.Marshal(len(v.Vectors), bs[n:])
	for _, vec := range v.Vectors {
		n += vectorSer.Marshal(vec, bs[n:])
	}
	return n
}

func (vectorSetMUS) Unmarshal(bs []byte) (v VectorSet, n int, err error) {
	var n1 int
	if v.Chunks, n, err = stringSliceSer.Unmarshal(bs); err != nil {
		return v, n, err
	}
	var length int
	if length, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Vectors = make([][]float32, length)
	for i := 0; i < length; i++ {
		if v.Vectors[i], n1, err = vectorSer.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func (vectorSetMUS) Size(v VectorSet) (size int) {
	size = stringSliceSer.Size(v.Chunks)
	size += varint.Int.Size(len(v.Vectors))
	for _, vec := range v.Vectors {
		size += vectorSer.Size(vec)
	}
	return size
}
