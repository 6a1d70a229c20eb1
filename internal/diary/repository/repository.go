package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/couplediary/diary/internal/diary"
)

var (
	// ErrConflict is returned by WriteIndex when the Index changed since the
	// revision the caller read.
	ErrConflict = errors.New("index revision conflict")
	// ErrPayloadMissing is returned by FetchPayload for an unknown key.
	ErrPayloadMissing = errors.New("payload missing")
	// ErrInvalidKey rejects payload keys that would escape the medium's root.
	ErrInvalidKey = errors.New("invalid payload key")
)

// IndexStore persists the slug Index as one versioned object. The revision
// is opaque to callers; "" means no Index has been written yet.
type IndexStore interface {
	FetchIndex(ctx context.Context) (diary.Index, string, error)
	WriteIndex(ctx context.Context, idx diary.Index, prevRevision string) (string, error)
}

// PayloadStore holds rendered documents by key.
type PayloadStore interface {
	WritePayload(ctx context.Context, key string, data []byte, contentType string) error
	FetchPayload(ctx context.Context, key string) ([]byte, error)
	DeletePayload(ctx context.Context, key string) error
}

// snapshot is the serialized form of the Index used by the file and Redis
// backends.
type snapshot struct {
	Revision int64       `json:"revision"`
	Entries  diary.Index `json:"entries"`
}

func decodeSnapshot(b []byte) (*snapshot, error) {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if s.Entries == nil {
		s.Entries = diary.Index{}
	}
	return &s, nil
}

func formatRevision(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func parseRevision(rev string) (int64, error) {
	if rev == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(rev, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: malformed revision %q", ErrConflict, rev)
	}
	return n, nil
}
