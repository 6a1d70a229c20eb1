package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couplediary/diary/internal/diary"
)

const (
	indexFileName = "index.json"
	payloadDir    = "diaries"

	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// FSRepo stores the Index as <root>/index.json and payloads below
// <root>/diaries. Index writes are revision-checked under a process-local
// mutex; several processes sharing one root are not protected against each
// other.
type FSRepo struct {
	root string
	mu   sync.Mutex
}

// NewFSRepo creates root when missing.
func NewFSRepo(root string) (*FSRepo, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("filesystem repo: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filesystem repo: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, payloadDir), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &FSRepo{root: abs}, nil
}

func (r *FSRepo) Root() string { return r.root }

func (r *FSRepo) FetchIndex(ctx context.Context) (diary.Index, string, error) {
	s, err := r.readSnapshot()
	if err != nil {
		return nil, "", err
	}
	return s.Entries, formatRevision(s.Revision), nil
}

func (r *FSRepo) readSnapshot() (*snapshot, error) {
	b, err := os.ReadFile(filepath.Join(r.root, indexFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return &snapshot{Entries: diary.Index{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return decodeSnapshot(b)
}

func (r *FSRepo) WriteIndex(ctx context.Context, idx diary.Index, prevRevision string) (string, error) {
	prev, err := parseRevision(prevRevision)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.readSnapshot()
	if err != nil {
		return "", err
	}
	if cur.Revision != prev {
		return "", ErrConflict
	}
	next := snapshot{Revision: prev + 1, Entries: idx}
	b, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode index: %w", err)
	}
	if err := writeAtomic(filepath.Join(r.root, indexFileName), b); err != nil {
		return "", fmt.Errorf("write index: %w", err)
	}
	return formatRevision(next.Revision), nil
}

func (r *FSRepo) WritePayload(ctx context.Context, key string, data []byte, contentType string) error {
	dest, err := r.payloadPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeAtomic(dest, data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

func (r *FSRepo) FetchPayload(ctx context.Context, key string) ([]byte, error) {
	p, err := r.payloadPath(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrPayloadMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return b, nil
}

func (r *FSRepo) DeletePayload(ctx context.Context, key string) error {
	p, err := r.payloadPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove payload: %w", err)
	}
	// drop the per-slug directory once it is empty, never the payload root
	if dir := filepath.Dir(p); dir != filepath.Join(r.root, payloadDir) {
		_ = os.Remove(dir)
	}
	return nil
}

// payloadPath maps key below <root>/diaries, rejecting absolute keys and
// parent escapes.
func (r *FSRepo) payloadPath(key string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(key))
	if rel == "." || rel == "" || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", ErrInvalidKey
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	base := filepath.Join(r.root, payloadDir)
	p := filepath.Join(base, rel)
	if !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return p, nil
}

// writeAtomic writes data to a temp file in dest's directory and renames it
// over dest, so readers see either the old or the new content.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = os.Chmod(tmpPath, filePerm)
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
