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


package openai

import (
	"sync"

	"github.com/openharbor/vecflow/ai"
)

// ClientCache implements ai.EmbedderSource. It holds one embedder client
// per credential. The cache is constructed once at process start and
// passed by handle to consumers; there is no package-level state.
type ClientCache struct {
	config *ai.Config

	mu      sync.Mutex
	clients map[string]ai.Embedder
}

var _ ai.EmbedderSource = (*ClientCache)(nil)

// NewClientCache creates an empty client cache for the given embedding
// configuration.
func NewClientCache(config *ai.Config) (*ClientCache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ClientCache{
		config:  config,
		clients: make(map[string]ai.Embedder),
	}, nil
}

// Embedder returns the cached embedder for credential, constructing it on
// first use.
func (c *ClientCache) Embedder(credential string) (ai.Embedder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[credential]; ok {
		return client, nil
	}

	client, err := newEmbedder(c.config, credential)
	if err != nil {
		return nil, err
	}
	c.clients[credential] = client
	return client, nil
}

// Close drops all cached clients.
func (c *ClientCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = make(map[string]ai.Embedder)
	return nil
}
