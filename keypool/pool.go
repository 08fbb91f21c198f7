package keypool

import (
	"fmt"
	"os"

	"github.com/openharbor/vecflow/core"
	"gopkg.in/yaml.v3"
)

// ProviderPool holds the credentials and eligible models configured for
// one provider. Key order is significant: it is the tie-break order used
// by the selector.
type ProviderPool struct {
	Keys   []string `yaml:"keys"`
	Models []string `yaml:"models"`
}

// HasModel reports whether model is eligible for this provider.
func (p ProviderPool) HasModel(model string) bool {
	for _, m := range p.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Pool is the full credential pool configuration:
// company -> functionality -> provider -> ProviderPool.
type Pool struct {
	Companies map[string]map[string]map[string]ProviderPool `yaml:"companies"`
}

// Lookup returns the provider pool for a (company, functionality,
// provider) triple.
func (p *Pool) Lookup(company, functionality, provider string) (ProviderPool, bool) {
	functionalities, ok := p.Companies[company]
	if !ok {
		return ProviderPool{}, false
	}
	providers, ok := functionalities[functionality]
	if !ok {
		return ProviderPool{}, false
	}
	pp, ok := providers[provider]
	return pp, ok
}

// Validate checks the pool for configuration defects. Every configured
// provider must carry at least one key and one model.
func (p *Pool) Validate() error {
	for company, functionalities := range p.Companies {
		for functionality, providers := range functionalities {
			for provider, pp := range providers {
				if len(pp.Keys) == 0 {
					return fmt.Errorf("%w: no keys for %s/%s/%s",
						core.ErrPoolConfiguration, company, functionality, provider)
				}
				if len(pp.Models) == 0 {
					return fmt.Errorf("%w: no models for %s/%s/%s",
						core.ErrPoolConfiguration, company, functionality, provider)
				}
			}
		}
	}
	return nil
}

// ParsePool decodes and validates a YAML pool document.
func ParsePool(data []byte) (*Pool, error) {
	var pool Pool
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPoolConfiguration, err)
	}
	if err := pool.Validate(); err != nil {
		return nil, err
	}
	return &pool, nil
}

// LoadPool reads and parses a YAML pool configuration file.
func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPoolConfiguration, err)
	}
	return ParsePool(data)
}

// PoolSource hands out the current pool snapshot. Snapshots may be stale
// relative to the latest configuration; the selector re-validates
// membership against the counter store at selection time, so staleness
// is bounded by the reset interval.
type PoolSource interface {
	// Pool returns the current pool snapshot. The returned pool must not
	// be mutated.
	Pool() *Pool
}

// StaticSource is a PoolSource over a fixed pool, loaded once at
// startup.
type StaticSource struct {
	pool *Pool
}

var _ PoolSource = (*StaticSource)(nil)

// NewStaticSource wraps a validated pool.
func NewStaticSource(pool *Pool) *StaticSource {
	return &StaticSource{pool: pool}
}

// Pool implements PoolSource.
func (s *StaticSource) Pool() *Pool {
	return s.pool
}
