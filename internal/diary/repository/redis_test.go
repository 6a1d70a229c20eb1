package repository

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/couplediary/diary/internal/diary"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisIndex_FetchWrite(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	idxStore := NewRedisIndex(client, "test:diary:index")
	ctx := context.Background()

	idx, rev, err := idxStore.FetchIndex(ctx)
	require.NoError(t, err)
	require.Empty(t, idx)
	require.Equal(t, "", rev)

	idx["alice-bob"] = diary.Entry{Slug: "alice-bob", PayloadKey: "alice-bob/1.html"}
	rev1, err := idxStore.WriteIndex(ctx, idx, rev)
	require.NoError(t, err)
	require.Equal(t, "1", rev1)
	require.True(t, m.Exists("test:diary:index"))

	got, rev2, err := idxStore.FetchIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, rev1, rev2)
	require.Equal(t, "alice-bob/1.html", got["alice-bob"].PayloadKey)
}

func TestRedisIndex_StaleRevisionConflicts(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	a := NewRedisIndex(client, "")
	b := NewRedisIndex(client, "")
	ctx := context.Background()

	_, revA, err := a.FetchIndex(ctx)
	require.NoError(t, err)
	_, revB, err := b.FetchIndex(ctx)
	require.NoError(t, err)

	_, err = a.WriteIndex(ctx, diary.Index{"x-y": diary.Entry{Slug: "x-y"}}, revA)
	require.NoError(t, err)

	// b read before a wrote and must not overwrite a's Index
	_, err = b.WriteIndex(ctx, diary.Index{"x-y": diary.Entry{Slug: "x-y", Partner1: "other"}}, revB)
	require.ErrorIs(t, err, ErrConflict)

	got, _, err := b.FetchIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, "", got["x-y"].Partner1)
}

func TestRedisIndex_Unavailable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	m.Close()

	_, _, err = NewRedisIndex(client, "").FetchIndex(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrConflict)
}
