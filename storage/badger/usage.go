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
	"github.com/mus-format/mus-go/varint"
	"github.com/openharbor/vecflow/storage"
)

// UsageCounterStore implements storage.UsageCounterStore for BadgerDB.
//
// Each credential score lives under its own key,
// "usage:<functionality>:<company>:<provider>:<model>:<credential>", so a
// counter namespace is a key prefix. Every mutation runs in a single
// serializable transaction with conflict retry; BadgerDB's SSI detects
// write races, which makes read-then-increment effectively atomic.
type UsageCounterStore struct {
	backend *Backend
}

var _ storage.UsageCounterStore = (*UsageCounterStore)(nil)

// NewUsageCounterStore creates a new UsageCounterStore.
//
// Returns the storage.UsageCounterStore interface to enforce abstraction.
func NewUsageCounterStore(backend *Backend) (storage.UsageCounterStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &UsageCounterStore{backend: backend}, nil
}

func marshalScore(score int64) []byte {
	buf := make([]byte, varint.Int64.Size(score))
	varint.Int64.Marshal(score, buf)
	return buf
}

func unmarshalScore(data []byte) (int64, error) {
	score, _, err := varint.Int64.Unmarshal(data)
	return score, err
}

// readScore returns the stored score for key, or 0 with found=false when
// no entry exists.
func readScore(tx *badger.Txn, key []byte) (score int64, found bool, err error) {
	entry, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	err = entry.Value(func(val []byte) error {
		var unmarshalErr error
		score, unmarshalErr = unmarshalScore(val)
		return unmarshalErr
	})
	return score, err == nil, err
}

// EnsureCredential adds a zero score entry if none exists.
func (s *UsageCounterStore) EnsureCredential(ctx context.Context, key storage.CounterKey, credential string) error {
	entryKey := makeUsageEntryKey(key, credential)
	return s.backend.WithConflictRetry(func(tx *badger.Txn) error {
		_, found, err := readScore(tx, entryKey)
		if err != nil {
			return err
		}
		if found {
			// Additive-only: never clobber an existing score.
			return tx.Commit()
		}
		if err := tx.Set(entryKey, marshalScore(0)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// IncrementScore atomically adds delta to the credential's score.
func (s *UsageCounterStore) IncrementScore(ctx context.Context, key storage.CounterKey, credential string, delta int64) (int64, error) {
	entryKey := makeUsageEntryKey(key, credential)
	var updated int64
	err := s.backend.WithConflictRetry(func(tx *badger.Txn) error {
		score, _, err := readScore(tx, entryKey)
		if err != nil {
			return err
		}
		updated = score + delta
		if err := tx.Set(entryKey, marshalScore(updated)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// AcquireLeastUsed atomically picks the least-used candidate and
// increments its score. Candidate order breaks ties, so a fresh pool is
// drained round-robin in configuration order.
func (s *UsageCounterStore) AcquireLeastUsed(ctx context.Context, key storage.CounterKey, candidates []string, delta int64) (string, error) {
	if len(candidates) == 0 {
		return "", storage.ErrNotFound
	}

	var chosen string
	err := s.backend.WithConflictRetry(func(tx *badger.Txn) error {
		chosen = ""
		var minScore int64
		for _, candidate := range candidates {
			score, _, err := readScore(tx, makeUsageEntryKey(key, candidate))
			if err != nil {
				return err
			}
			if chosen == "" || score < minScore {
				chosen = candidate
				minScore = score
			}
		}
		entryKey := makeUsageEntryKey(key, chosen)
		if err := tx.Set(entryKey, marshalScore(minScore+delta)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return chosen, nil
}

// Scores returns all credential scores under key.
func (s *UsageCounterStore) Scores(ctx context.Context, key storage.CounterKey) (map[string]int64, error) {
	scores := make(map[string]int64)
	prefix := makeUsageCounterPrefix(key)

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			_, credential, err := splitUsageEntryKey(item.Key())
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				score, unmarshalErr := unmarshalScore(val)
				if unmarshalErr != nil {
					return unmarshalErr
				}
				scores[credential] = score
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// RemoveCredential deletes one credential entry.
func (s *UsageCounterStore) RemoveCredential(ctx context.Context, key storage.CounterKey, credential string) error {
	return s.backend.WithConflictRetry(func(tx *badger.Txn) error {
		if err := tx.Delete(makeUsageEntryKey(key, credential)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// DeleteCounter removes every credential entry of one counter namespace.
func (s *UsageCounterStore) DeleteCounter(ctx context.Context, key storage.CounterKey) error {
	prefix := makeUsageCounterPrefix(key)
	return s.backend.WithConflictRetry(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// CounterKeys lists the counter namespaces stored for a
// (functionality, company) pair.
func (s *UsageCounterStore) CounterKeys(ctx context.Context, functionality, company string) ([]storage.CounterKey, error) {
	prefix := makeUsageScanPrefix(functionality, company)
	seen := make(map[storage.CounterKey]struct{})
	var keys []storage.CounterKey

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			counterKey, _, err := splitUsageEntryKey(iter.Item().Key())
			if err != nil {
				return err
			}
			if _, ok := seen[counterKey]; ok {
				continue
			}
			seen[counterKey] = struct{}{}
			keys = append(keys, counterKey)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close is a no-op; the shared backend owns the database lifecycle.
func (s *UsageCounterStore) Close() error {
	return nil
}
