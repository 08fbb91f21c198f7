// Package storage provides the storage abstraction layer for vecflow.
//
// This package defines store interfaces that decouple storage
// implementation from pipeline and scheduler logic. It allows different
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// Three stores are defined:
//
//   - WorkItemStore: the orchestrator's durable copy of in-flight work items
//   - TaskStatusStore: the externally visible task status projection
//   - UsageCounterStore: credential usage scores for load balancing
//
// Constructors in implementation packages return these interfaces to
// enforce abstraction; consumers never depend on backend specifics.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines. UsageCounterStore mutations must be
// atomic at the store level: concurrent increments never lose updates.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support.
package storage
