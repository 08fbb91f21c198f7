// Package pipeline chains the extract, chunk, embed and insert stages
// into a directed ingestion pipeline per submitted document.
//
// Each stage dispatch is an independent unit of work on the task queue,
// so a crashed worker resumes only the failed stage, not the whole
// chain. Stage inputs and outputs live in the object store between
// dispatches; queue messages carry only the object key.
package pipeline
