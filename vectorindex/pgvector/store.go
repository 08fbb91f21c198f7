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


package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/vectorindex"
)

// Config holds connection settings for the Postgres vector index.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store implements vectorindex.Index on Postgres with the pgvector
// extension. Each collection is one table.
type Store struct {
	db *sql.DB
}

var _ vectorindex.Index = (*Store)(nil)

// collectionNameRe guards against SQL injection through collection names,
// which are interpolated into DDL.
var collectionNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// NewStore connects to Postgres and enables the vector extension.
//
// Returns the vectorindex.Index interface to enforce abstraction.
func NewStore(ctx context.Context, config Config) (vectorindex.Index, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host,
		config.Port,
		config.User,
		config.Password,
		config.DBName,
		config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	return &Store{db: db}, nil
}

// EnsureCollection creates the collection table and its similarity index
// if they do not exist.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	if !collectionNameRe.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			embedding vector(%d)
		)
	`, collection, dimensions))
	if err != nil {
		return fmt.Errorf("failed to create collection table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %q ON %q
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)
	`, collection+"_embedding_idx", collection))
	if err != nil {
		return fmt.Errorf("failed to create embedding index: %w", err)
	}

	return nil
}

// Upsert inserts or replaces points in one transaction.
func (s *Store) Upsert(ctx context.Context, collection string, points []core.Point) error {
	if !collectionNameRe.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %q (id, payload, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			embedding = EXCLUDED.embedding
	`, collection))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, point := range points {
		vec := pgvector.NewVector(point.Vector)
		if _, err := stmt.ExecContext(ctx, point.Id, point.Payload, vec); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", point.Id, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
