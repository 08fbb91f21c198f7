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


package keypool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openharbor/vecflow/storage"
)

// ResetJob re-synchronizes pool membership into the usage counter store.
// It runs two distinct passes per company:
//
// The sync pass is additive-only: it ensures a zero score entry exists
// for every configured credential under every configured (provider,
// model) key, and never touches positive scores of still-valid
// credentials.
//
// The prune pass removes counter namespaces whose (provider, model) is
// no longer configured, and individual credential entries no longer in
// the pool for namespaces that survive.
type ResetJob struct {
	source   PoolSource
	counters storage.UsageCounterStore
	logger   *slog.Logger
}

// NewResetJob creates a reset job over the given pool and counter store.
func NewResetJob(source PoolSource, counters storage.UsageCounterStore, logger *slog.Logger) (*ResetJob, error) {
	if source == nil {
		return nil, ErrPoolSourceRequired
	}
	if counters == nil {
		return nil, ErrCounterStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetJob{source: source, counters: counters, logger: logger}, nil
}

// Run executes one reset cycle. A failure in one company's reset does
// not block the others: errors are logged, collected and returned
// joined after every company has been attempted. Run is idempotent:
// with no intervening selections, a second run leaves the counter store
// unchanged.
func (j *ResetJob) Run(ctx context.Context) error {
	pool := j.source.Pool()

	var errs []error
	for company, functionalities := range pool.Companies {
		if err := j.syncCompany(ctx, company, functionalities); err != nil {
			j.logger.Error("usage sync failed", "company", company, "err", err)
			errs = append(errs, fmt.Errorf("sync %s: %w", company, err))
			continue
		}
		if err := j.pruneCompany(ctx, company, functionalities); err != nil {
			j.logger.Error("usage prune failed", "company", company, "err", err)
			errs = append(errs, fmt.Errorf("prune %s: %w", company, err))
		}
	}
	return errors.Join(errs...)
}

func (j *ResetJob) syncCompany(ctx context.Context, company string, functionalities map[string]map[string]ProviderPool) error {
	for functionality, providers := range functionalities {
		for provider, pp := range providers {
			for _, model := range pp.Models {
				key := storage.CounterKey{
					Functionality: functionality,
					Company:       company,
					Provider:      provider,
					Model:         model,
				}
				for _, credential := range pp.Keys {
					if err := j.counters.EnsureCredential(ctx, key, credential); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (j *ResetJob) pruneCompany(ctx context.Context, company string, functionalities map[string]map[string]ProviderPool) error {
	for functionality, providers := range functionalities {
		keys, err := j.counters.CounterKeys(ctx, functionality, company)
		if err != nil {
			return err
		}

		for _, key := range keys {
			pp, ok := providers[key.Provider]
			if !ok || !pp.HasModel(key.Model) {
				j.logger.Info("pruning stale usage counter", "key", key.String())
				if err := j.counters.DeleteCounter(ctx, key); err != nil {
					return err
				}
				continue
			}

			scores, err := j.counters.Scores(ctx, key)
			if err != nil {
				return err
			}
			for credential := range scores {
				if !containsKey(pp.Keys, credential) {
					j.logger.Info("pruning stale credential",
						"key", key.String(), "credential", credentialLabel(credential))
					if err := j.counters.RemoveCredential(ctx, key, credential); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func containsKey(keys []string, credential string) bool {
	for _, k := range keys {
		if k == credential {
			return true
		}
	}
	return false
}

// defaultRunTimeout bounds one scheduled reset cycle.
const defaultRunTimeout = 5 * time.Minute

// Scheduler runs a ResetJob on a recurring cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	job    *ResetJob
	logger *slog.Logger
}

// NewScheduler schedules the job with a cron expression, e.g. "@daily"
// or "0 3 * * *". The externally configured interval is passed through
// unparsed.
func NewScheduler(job *ResetJob, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		return nil, ErrScheduleRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:   cron.New(),
		job:    job,
		logger: logger,
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
		defer cancel()

		s.logger.Info("usage reset cycle starting")
		if err := s.job.Run(ctx); err != nil {
			s.logger.Error("usage reset cycle finished with errors", "err", err)
			return
		}
		s.logger.Info("usage reset cycle finished")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start begins the schedule in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the schedule and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
