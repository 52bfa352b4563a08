// Package pgstore implements core.SessionStore over PostgreSQL, using
// pgxpool for connection pooling and one row per (session key, field) so
// the contract stays exactly as field-granular as the spec requires,
// demonstrating that the SessionStore contract is genuinely backend
// agnostic — not just a thin wrapper over Redis hashes.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentdrain/agentdrain/pkg/core"
)

const tracerName = "github.com/agentdrain/agentdrain/pkg/store/pgstore"

// CreateTableSQL creates the backing table if it does not already exist.
// Callers are expected to run this once during provisioning; the store
// itself never issues DDL on the hot path.
const CreateTableSQL = `
CREATE TABLE IF NOT EXISTS agentdrain_session_fields (
	session_id TEXT NOT NULL,
	field      TEXT NOT NULL,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, field)
)`

// Store is a pgxpool-backed core.SessionStore.
type Store struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, tracer: otel.Tracer(tracerName)}
}

// Save implements core.SessionStore via an upsert.
func (s *Store) Save(ctx context.Context, key core.SessionKey, field string, value any) error {
	ctx, span := s.tracer.Start(ctx, "pgstore.Save", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("agentdrain.session_field", field),
	))
	defer span.End()

	raw, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("%w: encode field %q: %v", core.ErrStoreFailure, field, err)
	}

	const stmt = `
		INSERT INTO agentdrain_session_fields (session_id, field, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, field) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := s.pool.Exec(ctx, stmt, key.String(), field, raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return fmt.Errorf("%w: upsert %s/%s: %v", core.ErrStoreFailure, key, field, err)
	}
	return nil
}

// Get implements core.SessionStore.
func (s *Store) Get(ctx context.Context, key core.SessionKey, field string, out any) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("agentdrain.session_field", field),
	))
	defer span.End()

	const stmt = `SELECT value FROM agentdrain_session_fields WHERE session_id = $1 AND field = $2`

	var raw []byte
	err := s.pool.QueryRow(ctx, stmt, key.String(), field).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return false, fmt.Errorf("%w: select %s/%s: %v", core.ErrStoreFailure, key, field, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		return true, fmt.Errorf("%w: decode field %q: %v", core.ErrStoreFailure, field, err)
	}
	return true, nil
}

// Delete implements core.SessionStore. A no-op if the field is absent.
func (s *Store) Delete(ctx context.Context, key core.SessionKey, field string) error {
	ctx, span := s.tracer.Start(ctx, "pgstore.Delete", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("agentdrain.session_field", field),
	))
	defer span.End()

	const stmt = `DELETE FROM agentdrain_session_fields WHERE session_id = $1 AND field = $2`
	if _, err := s.pool.Exec(ctx, stmt, key.String(), field); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("%w: delete %s/%s: %v", core.ErrStoreFailure, key, field, err)
	}
	return nil
}

// Exists implements core.SessionStore.
func (s *Store) Exists(ctx context.Context, key core.SessionKey) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "pgstore.Exists", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
	))
	defer span.End()

	const stmt = `SELECT EXISTS(SELECT 1 FROM agentdrain_session_fields WHERE session_id = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, stmt, key.String()).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exists check failed")
		return false, fmt.Errorf("%w: exists %s: %v", core.ErrStoreFailure, key, err)
	}
	return exists, nil
}
