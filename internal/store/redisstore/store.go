// Package redisstore is the Redis-backed durable session store.
package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns (nil, nil) when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set writes the value with the given TTL. Every write restarts the TTL, so
// expiry slides with activity.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// ScanPrefix calls fn with the value of every key under prefix. Used by the
// analytics read side; the chat path never scans.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, fn func(value []byte) error) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(val); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
