// Package queue defines the distributed task queue contract the pipeline
// dispatches stage work onto.
//
// Each stage dispatch is one message, so a crashed worker loses only the
// in-flight stage: the broker redelivers the unacknowledged message and
// another worker resumes from the same stage. Acknowledgement happens
// only after the handler succeeds (late ack).
//
// Two implementations exist: queue/jetstream backed by NATS JetStream for
// production, and queue/memory for tests and local development.
package queue
