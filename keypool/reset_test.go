package keypool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/storage"
	"github.com/openharbor/vecflow/storage/badger"
)

func newTestResetJob(t *testing.T, poolYAML string) (*ResetJob, storage.UsageCounterStore) {
	t.Helper()

	_, _, counters, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	pool, err := ParsePool([]byte(poolYAML))
	require.NoError(t, err)

	job, err := NewResetJob(NewStaticSource(pool), counters, nil)
	require.NoError(t, err)
	return job, counters
}

func embeddingKey(company, model string) storage.CounterKey {
	return storage.CounterKey{
		Functionality: "EMBEDDING",
		Company:       company,
		Provider:      "openai",
		Model:         model,
	}
}

func TestResetJob_InitializesAllCredentials(t *testing.T) {
	job, counters := newTestResetJob(t, testPoolYAML)
	ctx := context.Background()

	require.NoError(t, job.Run(ctx))

	scores, err := counters.Scores(ctx, embeddingKey("acme", "text-embedding-3-small"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"keyA": 0, "keyB": 0}, scores)

	scores, err = counters.Scores(ctx, embeddingKey("globex", "text-embedding-3-small"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"keyX": 0}, scores)
}

func TestResetJob_Idempotent(t *testing.T) {
	job, counters := newTestResetJob(t, testPoolYAML)
	ctx := context.Background()

	require.NoError(t, job.Run(ctx))

	key := embeddingKey("acme", "text-embedding-3-small")
	_, err := counters.IncrementScore(ctx, key, "keyA", 5)
	require.NoError(t, err)

	// A second run must add nothing and zero nothing.
	require.NoError(t, job.Run(ctx))

	scores, err := counters.Scores(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"keyA": 5, "keyB": 0}, scores)
}

func TestResetJob_PrunesRemovedCredential(t *testing.T) {
	job, counters := newTestResetJob(t, testPoolYAML)
	ctx := context.Background()

	// keyC was removed from configuration but still carries a score.
	key := embeddingKey("acme", "text-embedding-3-small")
	_, err := counters.IncrementScore(ctx, key, "keyC", 9)
	require.NoError(t, err)
	_, err = counters.IncrementScore(ctx, key, "keyA", 2)
	require.NoError(t, err)

	require.NoError(t, job.Run(ctx))

	scores, err := counters.Scores(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"keyA": 2, "keyB": 0}, scores,
		"stale credential goes, valid scores stay untouched")
}

func TestResetJob_PrunesRemovedModel(t *testing.T) {
	job, counters := newTestResetJob(t, testPoolYAML)
	ctx := context.Background()

	stale := embeddingKey("acme", "retired-model")
	_, err := counters.IncrementScore(ctx, stale, "keyA", 4)
	require.NoError(t, err)

	require.NoError(t, job.Run(ctx))

	scores, err := counters.Scores(ctx, stale)
	require.NoError(t, err)
	assert.Empty(t, scores, "counters for unconfigured models are removed whole")

	keys, err := counters.CounterKeys(ctx, "EMBEDDING", "acme")
	require.NoError(t, err)
	assert.NotContains(t, keys, stale)
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	job, _ := newTestResetJob(t, testPoolYAML)

	_, err := NewScheduler(job, "not a cron expr", nil)
	assert.Error(t, err)

	_, err = NewScheduler(job, "", nil)
	assert.ErrorIs(t, err, ErrScheduleRequired)
}

func TestNewScheduler_ValidSchedule(t *testing.T) {
	job, _ := newTestResetJob(t, testPoolYAML)

	scheduler, err := NewScheduler(job, "@daily", nil)
	require.NoError(t, err)
	scheduler.Start()
	scheduler.Stop()
}
