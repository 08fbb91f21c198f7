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

	"github.com/dgraph-io/badger/v4"
	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
)

// WorkItemStore implements storage.WorkItemStore for BadgerDB.
type WorkItemStore struct {
	backend *Backend
}

var _ storage.WorkItemStore = (*WorkItemStore)(nil)

// NewWorkItemStore creates a new WorkItemStore.
//
// Returns the storage.WorkItemStore interface to enforce abstraction.
func NewWorkItemStore(backend *Backend) (storage.WorkItemStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &WorkItemStore{backend: backend}, nil
}

// PutWorkItem inserts or replaces a work item.
func (s *WorkItemStore) PutWorkItem(ctx context.Context, item *core.WorkItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeWorkItemKey(item.Id), storage.MarshalWorkItem(item)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetWorkItem retrieves a work item by ID.
func (s *WorkItemStore) GetWorkItem(ctx context.Context, id core.ID) (*core.WorkItem, error) {
	var item *core.WorkItem
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeWorkItemKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return entry.Value(func(val []byte) error {
			var unmarshalErr error
			item, unmarshalErr = storage.UnmarshalWorkItem(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteWorkItem removes a work item by ID.
func (s *WorkItemStore) DeleteWorkItem(ctx context.Context, id core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeWorkItemKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close is a no-op; the shared backend owns the database lifecycle.
func (s *WorkItemStore) Close() error {
	return nil
}
