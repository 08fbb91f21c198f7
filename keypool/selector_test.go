package keypool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
	"github.com/openharbor/vecflow/storage/badger"
)

func newTestSelector(t *testing.T) (Selector, storage.UsageCounterStore) {
	t.Helper()

	_, _, counters, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	pool, err := ParsePool([]byte(testPoolYAML))
	require.NoError(t, err)

	selector, err := NewSelector(NewStaticSource(pool), counters)
	require.NoError(t, err)
	return selector, counters
}

func TestSelector_TieBreakByPoolOrder(t *testing.T) {
	selector, _ := newTestSelector(t)
	ctx := context.Background()

	first, err := selector.Select(ctx, "acme", "CHAT", "openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "keyA", first.Credential)

	second, err := selector.Select(ctx, "acme", "CHAT", "openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "keyB", second.Credential,
		"keyA's score moved to 1, so keyB is now least used")
}

func TestSelector_IncrementsScoreOnSelection(t *testing.T) {
	selector, counters := newTestSelector(t)
	ctx := context.Background()

	_, err := selector.Select(ctx, "acme", "EMBEDDING", "openai", "text-embedding-3-small")
	require.NoError(t, err)

	scores, err := counters.Scores(ctx, storage.CounterKey{
		Functionality: "EMBEDDING",
		Company:       "acme",
		Provider:      "openai",
		Model:         "text-embedding-3-small",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), scores["keyA"])
	assert.Equal(t, int64(0), scores["keyB"], "lazy init must create the peer entry at zero")
}

func TestSelector_EmptyModelUsesFirstConfigured(t *testing.T) {
	selector, _ := newTestSelector(t)

	selection, err := selector.Select(context.Background(), "acme", "CHAT", "openai", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", selection.Model)
}

func TestSelector_UnknownModel(t *testing.T) {
	selector, _ := newTestSelector(t)

	_, err := selector.Select(context.Background(), "acme", "CHAT", "openai", "gpt-3.5-turbo")
	assert.ErrorIs(t, err, core.ErrNoEligibleCredential)
}

func TestSelector_UnknownCompany(t *testing.T) {
	selector, _ := newTestSelector(t)

	_, err := selector.Select(context.Background(), "initech", "CHAT", "openai", "gpt-4o")
	assert.ErrorIs(t, err, core.ErrNoEligibleCredential)
}

func TestSelector_ConcurrentSelectionsStayBalanced(t *testing.T) {
	selector, counters := newTestSelector(t)
	ctx := context.Background()

	const picks = 20
	var wg sync.WaitGroup
	for i := 0; i < picks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := selector.Select(ctx, "acme", "CHAT", "openai", "gpt-4o")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	scores, err := counters.Scores(ctx, storage.CounterKey{
		Functionality: "CHAT",
		Company:       "acme",
		Provider:      "openai",
		Model:         "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(picks/2), scores["keyA"])
	assert.Equal(t, int64(picks/2), scores["keyB"])
}

func TestNewSelector_RequiresDependencies(t *testing.T) {
	_, _, counters, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	pool, err := ParsePool([]byte(testPoolYAML))
	require.NoError(t, err)

	_, err = NewSelector(nil, counters)
	assert.ErrorIs(t, err, ErrPoolSourceRequired)

	_, err = NewSelector(NewStaticSource(pool), nil)
	assert.ErrorIs(t, err, ErrCounterStoreRequired)
}
