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


package storage

import (
	"github.com/openharbor/vecflow/core"
)

// MarshalWorkItem serializes a WorkItem to bytes.
func MarshalWorkItem(item *core.WorkItem) []byte {
	buf := make([]byte, core.WorkItemMUS.Size(*item))
	core.WorkItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalWorkItem deserializes a WorkItem from bytes.
func UnmarshalWorkItem(data []byte) (*core.WorkItem, error) {
	item, _, err := core.WorkItemMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarshalTaskStatusRecord serializes a TaskStatusRecord to bytes.
func MarshalTaskStatusRecord(record *core.TaskStatusRecord) []byte {
	buf := make([]byte, core.TaskStatusRecordMUS.Size(*record))
	core.TaskStatusRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalTaskStatusRecord deserializes a TaskStatusRecord from bytes.
func UnmarshalTaskStatusRecord(data []byte) (*core.TaskStatusRecord, error) {
	record, _, err := core.TaskStatusRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
