// ABOUTME: In-memory per-user draft storage
// ABOUTME: One draft slot per user id with last-write-wins semantics
package store

import (
	"sync"

	"github.com/goodmemory/goodmemory-bot/models"
)

// DraftStore holds at most one in-progress draft per user. The mutex only
// keeps the map itself safe; overlapping operations for the same user
// resolve as last write wins, with no versioning or compare-and-swap.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[int64]*models.Draft
}

func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[int64]*models.Draft)}
}

// Get returns the user's current draft, or nil when none exists.
func (s *DraftStore) Get(userID int64) *models.Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drafts[userID]
}

// Put stores the draft for the user, unconditionally replacing any prior
// one and discarding its in-progress selection.
func (s *DraftStore) Put(userID int64, draft *models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = draft
}
