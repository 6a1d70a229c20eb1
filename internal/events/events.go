package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couplediary/diary/internal/diary"
)

// DiaryCreated is published after a diary has been stored.
type DiaryCreated struct {
	Type      string    `json:"type"`
	Slug      string    `json:"slug"`
	Partner1  string    `json:"partner1"`
	Partner2  string    `json:"partner2"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

const TypeDiaryCreated = "diary.created"

// Publisher announces stored diaries. Publishing is best effort: a failure
// never undoes a create.
type Publisher interface {
	PublishCreated(ctx context.Context, e diary.Entry) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) PublishCreated(ctx context.Context, e diary.Entry) error { return nil }

// NewDiaryCreated builds the event for e.
func NewDiaryCreated(e diary.Entry) DiaryCreated {
	return DiaryCreated{
		Type:      TypeDiaryCreated,
		Slug:      e.Slug,
		Partner1:  e.Partner1,
		Partner2:  e.Partner2,
		Size:      e.Size,
		CreatedAt: e.CreatedAt,
	}
}

// Encode returns the JSON body published for e.
func Encode(e diary.Entry) ([]byte, error) {
	b, err := json.Marshal(NewDiaryCreated(e))
	if err != nil {
		return nil, fmt.Errorf("marshal event payload failed: %w", err)
	}
	return b, nil
}
