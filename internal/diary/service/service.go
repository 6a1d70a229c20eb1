package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/couplediary/diary/internal/diary"
	"github.com/couplediary/diary/internal/diary/repository"
	"github.com/couplediary/diary/internal/events"
	"github.com/couplediary/diary/internal/slug"
	"github.com/couplediary/diary/pkg/logger"
	"github.com/couplediary/diary/pkg/metrics"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("diary not found")
	// ErrUnavailable means the backing medium failed; nothing was recorded.
	ErrUnavailable = errors.New("backing medium unavailable")
	// ErrConflict means every attempt lost the Index race to another writer.
	ErrConflict = errors.New("index kept changing; giving up")
	// ErrEmptyPayload rejects creates without content.
	ErrEmptyPayload = errors.New("empty payload")
)

const (
	DefaultMaxAttempts    = 5
	DefaultPublishTimeout = 5 * time.Second
)

// Service defines the diary operations used by the handler layer.
type Service interface {
	Create(ctx context.Context, d NewDiary) (string, error)
	Resolve(ctx context.Context, slug string) (*diary.Document, error)
}

// NewDiary is a validated create request: the two display names and the
// rendered page.
type NewDiary struct {
	Partner1    string
	Partner2    string
	Payload     []byte
	ContentType string
}

// Config tunes a Store. Zero values pick defaults.
type Config struct {
	// MaxAttempts bounds fetch/probe/write rounds lost to concurrent writers.
	MaxAttempts int
	Publisher   events.Publisher
	// PublishTimeout bounds each created-event publish.
	PublishTimeout time.Duration
	Now            func() time.Time
	// NewPayloadKey returns a fresh payload key for an assigned slug.
	NewPayloadKey func(slug string) string
}

// Store is the slug-indexed document store. Creates in one process pass
// through a single mutex; writers in other processes are caught by the
// revision check on WriteIndex and retried.
type Store struct {
	index    repository.IndexStore
	payloads repository.PayloadStore
	cfg      Config
	mu       sync.Mutex
	log      logger.Component
}

var _ Service = (*Store)(nil)

func NewStore(index repository.IndexStore, payloads repository.PayloadStore, cfg Config) *Store {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Noop{}
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewPayloadKey == nil {
		cfg.NewPayloadKey = PayloadKey
	}
	return &Store{index: index, payloads: payloads, cfg: cfg, log: logger.For("store")}
}

// PayloadKey places each payload under its slug with a random file name, so
// a writer that loses a race never overwrites the winner's payload.
func PayloadKey(slug string) string {
	return slug + "/" + uuid.NewString() + ".html"
}

// Create derives the base slug from the two names and stores d under the
// first free slug.
func (s *Store) Create(ctx context.Context, d NewDiary) (string, error) {
	return s.CreateWithBase(ctx, slug.DeriveBase(d.Partner1, d.Partner2), d)
}

// CreateWithBase stores d under base, or under base-1, base-2, ... when base
// is taken. The payload is written before the Index; if the Index write
// fails the payload is removed again and the slug stays unassigned.
func (s *Store) CreateWithBase(ctx context.Context, base string, d NewDiary) (string, error) {
	if len(d.Payload) == 0 {
		return "", ErrEmptyPayload
	}
	// writes run to completion even if the caller goes away
	wctx := context.WithoutCancel(ctx)
	entry, err := s.assign(ctx, wctx, base, d)
	if err != nil {
		return "", err
	}

	metrics.DiariesCreated.Inc()
	s.log.Infof("stored diary %q (%d bytes)", entry.Slug, entry.Size)

	// the event goes out after the lock is released and never outlives PublishTimeout
	pctx, cancel := context.WithTimeout(wctx, s.cfg.PublishTimeout)
	defer cancel()
	if err := s.cfg.Publisher.PublishCreated(pctx, entry); err != nil {
		s.log.Warnf("publish created event for %q: %v", entry.Slug, err)
	}
	return entry.Slug, nil
}

// assign runs the fetch/probe/write rounds under the single-writer lock and
// returns the recorded Entry.
func (s *Store) assign(ctx, wctx context.Context, base string, d NewDiary) (diary.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		idx, rev, err := s.index.FetchIndex(ctx)
		if err != nil {
			return diary.Entry{}, fmt.Errorf("%w: fetch index: %v", ErrUnavailable, err)
		}

		assigned := idx.NextAvailable(base)
		if assigned != base {
			metrics.SlugCollisions.Inc()
		}
		entry := diary.Entry{
			Slug:        assigned,
			Partner1:    d.Partner1,
			Partner2:    d.Partner2,
			PayloadKey:  s.cfg.NewPayloadKey(assigned),
			ContentType: d.ContentType,
			Size:        int64(len(d.Payload)),
			CreatedAt:   s.cfg.Now(),
		}

		if err := s.payloads.WritePayload(wctx, entry.PayloadKey, d.Payload, d.ContentType); err != nil {
			return diary.Entry{}, fmt.Errorf("%w: write payload: %v", ErrUnavailable, err)
		}

		next := idx.Clone()
		next[assigned] = entry
		_, err = s.index.WriteIndex(wctx, next, rev)
		if errors.Is(err, repository.ErrConflict) {
			metrics.IndexConflicts.Inc()
			s.log.Warnf("index changed while assigning %q (attempt %d/%d); retrying", assigned, attempt, s.cfg.MaxAttempts)
			s.discard(wctx, entry.PayloadKey)
			continue
		}
		if err != nil {
			s.discard(wctx, entry.PayloadKey)
			return diary.Entry{}, fmt.Errorf("%w: write index: %v", ErrUnavailable, err)
		}
		return entry, nil
	}
	return diary.Entry{}, fmt.Errorf("%w: base %q after %d attempts", ErrConflict, base, s.cfg.MaxAttempts)
}

// discard removes a payload that never made it into the Index.
func (s *Store) discard(ctx context.Context, key string) {
	if err := s.payloads.DeletePayload(ctx, key); err != nil {
		s.log.Warnf("could not remove orphaned payload %q: %v", key, err)
	}
}

// Resolve returns the document stored under slug. Only exact Index keys
// match. Every failure, including backing-medium errors and Index entries
// whose payload is gone, is reported as ErrNotFound.
func (s *Store) Resolve(ctx context.Context, slug string) (*diary.Document, error) {
	idx, _, err := s.index.FetchIndex(ctx)
	if err != nil {
		metrics.Resolves.WithLabelValues("error").Inc()
		s.log.Errorf("resolve %q: fetch index: %v", slug, err)
		return nil, ErrNotFound
	}
	entry, ok := idx[slug]
	if !ok {
		metrics.Resolves.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}
	payload, err := s.payloads.FetchPayload(ctx, entry.PayloadKey)
	if errors.Is(err, repository.ErrPayloadMissing) {
		metrics.Resolves.WithLabelValues("inconsistent").Inc()
		s.log.Warnf("resolve %q: index references missing payload %q", slug, entry.PayloadKey)
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.Resolves.WithLabelValues("error").Inc()
		s.log.Errorf("resolve %q: fetch payload: %v", slug, err)
		return nil, ErrNotFound
	}
	metrics.Resolves.WithLabelValues("found").Inc()
	return entry.Document(payload), nil
}
