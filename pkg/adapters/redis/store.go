package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/livehost/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "livehost:status:"

// Store implements ports.StatusStore using Redis.
// Each status is a JSON value under <prefix><hostID>; a sorted set <prefix>index
// tracks host IDs scored by expiry so List can prune lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for status entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(hostID string) string {
	return s.prefix + hostID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the status to Redis.
func (s *Store) Save(ctx context.Context, status domain.Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(status.HostID), data, s.ttl)

	// Score = expiry. Entries without TTL get a far-future score.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: status.HostID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the status from Redis.
func (s *Store) Load(ctx context.Context, hostID string) (domain.Status, error) {
	val, err := s.client.Get(ctx, s.key(hostID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Status{}, domain.ErrStatusNotFound
		}
		return domain.Status{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var status domain.Status
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return domain.Status{}, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return status, nil
}

// Delete removes the status.
func (s *Store) Delete(ctx context.Context, hostID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(hostID))
	pipe.ZRem(ctx, s.indexKey(), hostID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns host IDs with a live status, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired statuses: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
