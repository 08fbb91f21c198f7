package keypool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
)

// Selection is the outcome of one credential pick.
type Selection struct {
	Credential string
	Provider   string
	Model      string
}

// Selector chooses the least-used eligible credential for a request.
// Implementations must be thread-safe.
type Selector interface {
	// Select picks the credential with the lowest usage score for the
	// (company, functionality, provider, model) tuple, ties broken by
	// configured key order, and increments its score as a side effect.
	// An empty model selects the provider's first configured model.
	// Returns core.ErrNoEligibleCredential when the resolved pool is
	// empty or the model is not eligible.
	Select(ctx context.Context, company, functionality, provider, model string) (Selection, error)
}

type usageSelector struct {
	source   PoolSource
	counters storage.UsageCounterStore
	logger   *slog.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*usageSelector)

// WithSelectorLogger sets a custom logger.
// Default is slog.Default().
func WithSelectorLogger(logger *slog.Logger) SelectorOption {
	return func(s *usageSelector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSelector creates a usage-balanced credential selector.
//
// Returns the Selector interface to enforce abstraction.
func NewSelector(source PoolSource, counters storage.UsageCounterStore, opts ...SelectorOption) (Selector, error) {
	if source == nil {
		return nil, ErrPoolSourceRequired
	}
	if counters == nil {
		return nil, ErrCounterStoreRequired
	}

	s := &usageSelector{
		source:   source,
		counters: counters,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *usageSelector) Select(ctx context.Context, company, functionality, provider, model string) (Selection, error) {
	pool := s.source.Pool()
	pp, ok := pool.Lookup(company, functionality, provider)
	if !ok || len(pp.Keys) == 0 {
		return Selection{}, fmt.Errorf("%w: no pool for %s/%s/%s",
			core.ErrNoEligibleCredential, company, functionality, provider)
	}

	if model == "" {
		model = pp.Models[0]
	} else if !pp.HasModel(model) {
		return Selection{}, fmt.Errorf("%w: model %q not configured for %s/%s/%s",
			core.ErrNoEligibleCredential, model, company, functionality, provider)
	}

	key := storage.CounterKey{
		Functionality: functionality,
		Company:       company,
		Provider:      provider,
		Model:         model,
	}

	// Lazily initialize the counter namespace on first use so that every
	// pool credential has a score entry before the first pick.
	scores, err := s.counters.Scores(ctx, key)
	if err != nil {
		return Selection{}, err
	}
	if len(scores) == 0 {
		for _, credential := range pp.Keys {
			if err := s.counters.EnsureCredential(ctx, key, credential); err != nil {
				return Selection{}, err
			}
		}
	}

	// Read-min and increment happen in one atomic store operation, so
	// two concurrent selections never both observe the same minimum.
	// Passing the live key list re-validates pool membership at
	// selection time.
	credential, err := s.counters.AcquireLeastUsed(ctx, key, pp.Keys, 1)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Selection{}, fmt.Errorf("%w: %s", core.ErrNoEligibleCredential, key)
		}
		return Selection{}, err
	}

	s.logger.Debug("credential selected",
		"key", key.String(), "credential", credentialLabel(credential))

	return Selection{Credential: credential, Provider: provider, Model: model}, nil
}

// credentialLabel truncates a credential for logging. Full API keys must
// never reach logs.
func credentialLabel(credential string) string {
	if len(credential) <= 8 {
		return credential
	}
	return credential[:8] + "..."
}
