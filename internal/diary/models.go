package diary

import (
	"strconv"
	"time"
)

// Document is a rendered diary page together with the metadata it was
// created with. Documents are written once and never updated.
type Document struct {
	Slug        string    `json:"slug"`
	Partner1    string    `json:"partner1"`
	Partner2    string    `json:"partner2"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
	Payload     []byte    `json:"-"`
}

// Entry is the Index record for one slug. The payload itself lives on the
// payload medium under PayloadKey.
type Entry struct {
	Slug        string    `json:"slug" bson:"slug"`
	Partner1    string    `json:"partner1" bson:"partner1"`
	Partner2    string    `json:"partner2" bson:"partner2"`
	PayloadKey  string    `json:"payloadKey" bson:"payloadKey"`
	ContentType string    `json:"contentType" bson:"contentType"`
	Size        int64     `json:"size" bson:"size"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Index maps every slug ever assigned to its Entry. A slug is taken iff it
// is a key here, whether or not its payload still exists.
type Index map[string]Entry

// Has reports whether slug is taken.
func (idx Index) Has(slug string) bool {
	_, ok := idx[slug]
	return ok
}

// NextAvailable returns base when it is free, otherwise the first of
// base-1, base-2, ... that is not a key. The loop ends because the Index is
// finite.
func (idx Index) NextAvailable(base string) string {
	if !idx.Has(base) {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !idx.Has(candidate) {
			return candidate
		}
	}
}

// Clone returns a shallow copy; Entry values hold no references.
func (idx Index) Clone() Index {
	out := make(Index, len(idx)+1)
	for k, v := range idx {
		out[k] = v
	}
	return out
}

// Document combines an Entry with its fetched payload.
func (e Entry) Document(payload []byte) *Document {
	return &Document{
		Slug:        e.Slug,
		Partner1:    e.Partner1,
		Partner2:    e.Partner2,
		ContentType: e.ContentType,
		CreatedAt:   e.CreatedAt,
		Payload:     payload,
	}
}
