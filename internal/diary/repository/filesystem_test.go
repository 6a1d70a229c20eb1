package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couplediary/diary/internal/diary"
	"github.com/stretchr/testify/require"
)

func TestFSRepoIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := NewFSRepo(dir)
	require.NoError(t, err)
	ctx := context.Background()

	idx, rev, err := r.FetchIndex(ctx)
	require.NoError(t, err)
	require.Empty(t, idx)
	require.Equal(t, "", rev)

	idx["alice-bob"] = diary.Entry{Slug: "alice-bob", PayloadKey: "alice-bob/a.html", Size: 5}
	rev1, err := r.WriteIndex(ctx, idx, rev)
	require.NoError(t, err)
	require.Equal(t, "1", rev1)

	_, err = r.WriteIndex(ctx, idx, "")
	require.ErrorIs(t, err, ErrConflict)

	// a second repo over the same root sees the persisted Index
	r2, err := NewFSRepo(dir)
	require.NoError(t, err)
	got, rev2, err := r2.FetchIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, rev1, rev2)
	require.Equal(t, "alice-bob/a.html", got["alice-bob"].PayloadKey)

	// no temp files are left behind
	matches, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	require.Empty(t, matches)
}

func TestFSRepoCorruptIndexIsAnError(t *testing.T) {
	dir := t.TempDir()
	r, err := NewFSRepo(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFileName), []byte("{not json"), 0o644))

	_, _, err = r.FetchIndex(context.Background())
	require.Error(t, err)
}

func TestFSRepoPayloads(t *testing.T) {
	r, err := NewFSRepo(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.WritePayload(ctx, "alice-bob/1.html", []byte("<html></html>"), "text/html"))
	b, err := r.FetchPayload(ctx, "alice-bob/1.html")
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(b))

	require.NoError(t, r.DeletePayload(ctx, "alice-bob/1.html"))
	_, err = r.FetchPayload(ctx, "alice-bob/1.html")
	require.ErrorIs(t, err, ErrPayloadMissing)
	require.NoError(t, r.DeletePayload(ctx, "alice-bob/1.html"))
}

func TestFSRepoDeleteKeepsPayloadRoot(t *testing.T) {
	dir := t.TempDir()
	r, err := NewFSRepo(dir)
	require.NoError(t, err)
	ctx := context.Background()
	base := filepath.Join(dir, "diaries")

	// a key without a slug directory sits directly in the payload root
	require.NoError(t, r.WritePayload(ctx, "flat.html", []byte("x"), "text/html"))
	require.NoError(t, r.DeletePayload(ctx, "flat.html"))
	require.DirExists(t, base)

	// an emptied per-slug directory is removed
	require.NoError(t, r.WritePayload(ctx, "alice-bob/1.html", []byte("x"), "text/html"))
	require.NoError(t, r.DeletePayload(ctx, "alice-bob/1.html"))
	require.NoDirExists(t, filepath.Join(base, "alice-bob"))
	require.DirExists(t, base)
}

func TestFSRepoRejectsEscapingKeys(t *testing.T) {
	r, err := NewFSRepo(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "../index.json", "/etc/passwd", "a/../../x"} {
		require.ErrorIs(t, r.WritePayload(ctx, key, []byte("x"), ""), ErrInvalidKey, key)
	}
}
