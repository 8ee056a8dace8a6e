// Package reqstore implements the item → skill-level minima mapping and the
// player-meets-requirements predicate.
package reqstore

import (
	"sync"

	"github.com/stitts-dev/gearopt/internal/gear"
)

// Store is the requirement store. The zero value is not usable; construct
// with New.
type Store struct {
	mu           sync.RWMutex
	requirements map[int64][]gear.SkillRequirement
}

// New returns an empty, ready-to-use Store.
func New() *Store {
	return &Store{requirements: make(map[int64][]gear.SkillRequirement)}
}

// SetRequirements records the skill minima for id, replacing any prior set.
func (s *Store) SetRequirements(id int64, reqs []gear.SkillRequirement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requirements[id] = reqs
}

// Load bulk-replaces the store's contents.
func (s *Store) Load(all map[int64][]gear.SkillRequirement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requirements = make(map[int64][]gear.SkillRequirement, len(all))
	for id, reqs := range all {
		s.requirements[id] = reqs
	}
}

// Requirements returns the recorded minima for id, or nil if none are
// recorded (an item with no entry has no requirement).
func (s *Store) Requirements(id int64) []gear.SkillRequirement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requirements[id]
}

// Meets reports whether skills satisfy every recorded requirement for id.
// Items with no recorded requirement always pass.
func (s *Store) Meets(id int64, skills gear.Skills) bool {
	reqs := s.Requirements(id)
	if len(reqs) == 0 {
		return true
	}
	for _, r := range reqs {
		if skills[r.Skill] < r.Level {
			return false
		}
	}
	return true
}
