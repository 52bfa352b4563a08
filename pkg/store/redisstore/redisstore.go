// Package redisstore implements core.SessionStore on top of Redis hashes:
// the session key maps to a Redis hash, and each session field is a hash
// field, a direct fit for the spec's key/value/field contract. Tracing
// follows the same OpenTelemetry span-per-operation shape the corpus uses
// for its other database clients.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentdrain/agentdrain/pkg/core"
)

const tracerName = "github.com/agentdrain/agentdrain/pkg/store/redisstore"

// Cmdable is the narrow subset of *redis.Client this store depends on,
// letting tests inject a fake without dragging in a live Redis instance.
type Cmdable interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store is a Redis-hash-backed core.SessionStore.
type Store struct {
	client Cmdable
	tracer trace.Tracer
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix namespaces every Redis key, e.g. "agentdrain:session:".
// Defaults to "agentdrain:session:".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New wraps an existing Redis client. Use NewFromClient in tests to inject
// a mock satisfying Cmdable.
func New(client *redis.Client, opts ...Option) *Store {
	return NewFromClient(client, opts...)
}

// NewFromClient builds a Store over any Cmdable, real or mock.
func NewFromClient(client Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		tracer: otel.Tracer(tracerName),
		prefix: "agentdrain:session:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) redisKey(key core.SessionKey) string {
	return s.prefix + key.String()
}

// Save implements core.SessionStore via HSET.
func (s *Store) Save(ctx context.Context, key core.SessionKey, field string, value any) error {
	ctx, span := s.tracer.Start(ctx, "redisstore.Save", trace.WithAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("agentdrain.session_field", field),
	))
	defer span.End()

	raw, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("%w: encode field %q: %v", core.ErrStoreFailure, field, err)
	}

	if err := s.client.HSet(ctx, s.redisKey(key), field, raw).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "HSET failed")
		return fmt.Errorf("%w: HSET %s/%s: %v", core.ErrStoreFailure, key, field, err)
	}
	return nil
}

// Get implements core.SessionStore via HGET.
func (s *Store) Get(ctx context.Context, key core.SessionKey, field string, out any) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "redisstore.Get", trace.WithAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("agentdrain.session_field", field),
	))
	defer span.End()

	raw, err := s.client.HGet(ctx, s.redisKey(key), field).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "HGET failed")
		return false, fmt.Errorf("%w: HGET %s/%s: %v", core.ErrStoreFailure, key, field, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		return true, fmt.Errorf("%w: decode field %q: %v", core.ErrStoreFailure, field, err)
	}
	return true, nil
}

// Delete implements core.SessionStore via HDEL. A no-op if absent: Redis
// itself treats HDEL on a missing field as a successful zero-count delete.
func (s *Store) Delete(ctx context.Context, key core.SessionKey, field string) error {
	ctx, span := s.tracer.Start(ctx, "redisstore.Delete", trace.WithAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("agentdrain.session_field", field),
	))
	defer span.End()

	if err := s.client.HDel(ctx, s.redisKey(key), field).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "HDEL failed")
		return fmt.Errorf("%w: HDEL %s/%s: %v", core.ErrStoreFailure, key, field, err)
	}
	return nil
}

// Exists implements core.SessionStore via EXISTS on the hash key.
func (s *Store) Exists(ctx context.Context, key core.SessionKey) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "redisstore.Exists", trace.WithAttributes(
		attribute.String("db.system", "redis"),
	))
	defer span.End()

	n, err := s.client.Exists(ctx, s.redisKey(key)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "EXISTS failed")
		return false, fmt.Errorf("%w: EXISTS %s: %v", core.ErrStoreFailure, key, err)
	}
	return n > 0, nil
}
