// Package keypool balances upstream provider traffic across a pool of
// API credentials. A Selector picks the least-used eligible credential
// for a tenant, provider and model, backed by the shared usage counter
// store; a periodic reset job keeps the counter namespace in sync with
// the configured pool.
package keypool
