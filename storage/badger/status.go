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


package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
)

// TaskStatusStore implements storage.TaskStatusStore for BadgerDB.
type TaskStatusStore struct {
	backend *Backend
}

var _ storage.TaskStatusStore = (*TaskStatusStore)(nil)

// NewTaskStatusStore creates a new TaskStatusStore.
//
// Returns the storage.TaskStatusStore interface to enforce abstraction.
func NewTaskStatusStore(backend *Backend) (storage.TaskStatusStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &TaskStatusStore{backend: backend}, nil
}

// UpsertStatus creates or updates the status record for taskId.
//
// The update is rank-monotonic and idempotent: status writes that would
// rewind pipeline progress, or touch a terminal record, are dropped
// inside the transaction. Read-check-write runs in a single serializable
// transaction with conflict retry, so concurrent advances from different
// stages of the same task never lose updates.
func (s *TaskStatusStore) UpsertStatus(ctx context.Context, taskId string, status core.TaskStatus, progress string) error {
	if taskId == "" {
		return fmt.Errorf("task id required")
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}

	key := makeTaskStatusKey(taskId)
	now := time.Now().UTC()

	return s.backend.WithConflictRetry(func(tx *badger.Txn) error {
		record := &core.TaskStatusRecord{
			TaskId:    taskId,
			Status:    status,
			Progress:  progress,
			CreatedAt: now,
			UpdatedAt: now,
		}

		entry, err := tx.Get(key)
		switch err {
		case nil:
			var existing *core.TaskStatusRecord
			valErr := entry.Value(func(val []byte) error {
				var unmarshalErr error
				existing, unmarshalErr = storage.UnmarshalTaskStatusRecord(val)
				return unmarshalErr
			})
			if valErr != nil {
				return valErr
			}
			if existing.Status.Terminal() {
				// Terminal states absorb every later write, including
				// repeats of themselves.
				return tx.Commit()
			}
			if status.Rank() < existing.Status.Rank() {
				// Out-of-order delivery; last status by stage rank wins.
				return tx.Commit()
			}
			record.CreatedAt = existing.CreatedAt
		case badger.ErrKeyNotFound:
			// First write creates the record.
		default:
			return err
		}

		if err := tx.Set(key, storage.MarshalTaskStatusRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// GetStatus retrieves the status record for taskId.
func (s *TaskStatusStore) GetStatus(ctx context.Context, taskId string) (*core.TaskStatusRecord, error) {
	var record *core.TaskStatusRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeTaskStatusKey(taskId))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return entry.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalTaskStatusRecord(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Close is a no-op; the shared backend owns the database lifecycle.
func (s *TaskStatusStore) Close() error {
	return nil
}
