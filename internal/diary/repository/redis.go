package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couplediary/diary/internal/diary"
	"github.com/redis/go-redis/v9"
)

// RedisIndex implements IndexStore as one JSON value under a single key.
// WriteIndex runs inside WATCH/MULTI so a write racing with another process
// fails with ErrConflict instead of overwriting it.
type RedisIndex struct {
	client *redis.Client
	key    string
}

// NewRedisIndex stores the Index under key; an empty key defaults to
// "diary:index".
func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	if key == "" {
		key = "diary:index"
	}
	return &RedisIndex{client: client, key: key}
}

func (r *RedisIndex) FetchIndex(ctx context.Context) (diary.Index, string, error) {
	s, err := r.load(ctx, r.client)
	if err != nil {
		return nil, "", err
	}
	return s.Entries, formatRevision(s.Revision), nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisIndex) load(ctx context.Context, c getter) (*snapshot, error) {
	b, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &snapshot{Entries: diary.Index{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get index: %w", err)
	}
	return decodeSnapshot(b)
}

func (r *RedisIndex) WriteIndex(ctx context.Context, idx diary.Index, prevRevision string) (string, error) {
	prev, err := parseRevision(prevRevision)
	if err != nil {
		return "", err
	}
	next := snapshot{Revision: prev + 1, Entries: idx}
	b, err := json.Marshal(next)
	if err != nil {
		return "", fmt.Errorf("encode index: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := r.load(ctx, tx)
		if err != nil {
			return err
		}
		if cur.Revision != prev {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, r.key, b, 0)
			return nil
		})
		return err
	}, r.key)
	if errors.Is(err, redis.TxFailedErr) {
		return "", ErrConflict
	}
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("redis write index: %w", err)
	}
	return formatRevision(next.Revision), nil
}
