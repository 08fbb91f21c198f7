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


package core

import "errors"

// Pipeline and scheduler error taxonomy. Stage failures wrap one of these
// sentinels so callers can classify with errors.Is.
var (
	// ErrExtraction indicates the extract collaborator could not resolve
	// or parse the source.
	ErrExtraction = errors.New("extraction failed")

	// ErrChunkingInvariant indicates a chunking invariant violation.
	// It is never retried: it signals a programming or data defect.
	ErrChunkingInvariant = errors.New("chunking invariant violated")

	// ErrEmbedding indicates an upstream embedding provider error.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInsertion indicates a vector-index collaborator error.
	ErrInsertion = errors.New("vector insertion failed")

	// ErrStatusPersistence indicates a status update could not be
	// persisted. Callers must retry rather than drop the update.
	ErrStatusPersistence = errors.New("status persistence failed")

	// ErrNoEligibleCredential indicates the resolved credential pool for
	// a (company, provider) pair is empty or the model is not eligible.
	ErrNoEligibleCredential = errors.New("no eligible credential")

	// ErrPoolConfiguration indicates the credential pool configuration is
	// empty or inconsistent. It is never retried.
	ErrPoolConfiguration = errors.New("invalid pool configuration")
)

// Domain validation errors
var (
	// ErrInvalidWorkItem indicates a WorkItem failed validation.
	ErrInvalidWorkItem = errors.New("invalid work item")

	// ErrEmptySourceRef indicates the source URI is empty.
	ErrEmptySourceRef = errors.New("source reference cannot be empty")

	// ErrInvalidStage indicates an unknown pipeline stage value.
	ErrInvalidStage = errors.New("invalid pipeline stage")

	// ErrInvalidStatus indicates an unknown task status value.
	ErrInvalidStatus = errors.New("invalid task status")
)
