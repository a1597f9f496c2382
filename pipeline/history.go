package pipeline

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// History remembers the listing identifiers emitted by earlier runs of the
// process. When full, the least recently seen identifiers are forgotten.
type History struct {
	cache *lru.Cache[models.ListingID, struct{}]
}

// NewHistory returns a history holding up to size identifiers.
func NewHistory(size int) (*History, error) {
	cache, err := lru.New[models.ListingID, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return &History{cache: cache}, nil
}

// Seen reports whether id was emitted before and refreshes it if so.
func (h *History) Seen(id models.ListingID) bool {
	if h == nil {
		return false
	}
	_, ok := h.cache.Get(id)
	return ok
}

// Add records ids as emitted.
func (h *History) Add(ids ...models.ListingID) {
	if h == nil {
		return
	}
	for _, id := range ids {
		h.cache.Add(id, struct{}{})
	}
}

// Len returns the number of remembered identifiers.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return h.cache.Len()
}
