// Package redisstore caches usage snapshots. The cache is an
// optimization only: every method fails open and the database remains
// the authority on quota counts.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexus-rag/nexus/internal/secure"
)

const keyPrefix = "nexus:usage:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: 30 * time.Second,
	}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) GetSnapshot(ctx context.Context, sessionID string) (*secure.Snapshot, bool) {
	raw, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		return nil, false
	}
	var snap secure.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

func (s *Store) SetSnapshot(ctx context.Context, sessionID string, snap secure.Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, keyPrefix+sessionID, raw, s.ttl).Err()
}

func (s *Store) Invalidate(ctx context.Context, sessionID string) {
	_ = s.client.Del(ctx, keyPrefix+sessionID).Err()
}
