package dataset

import (
	"slices"
	"sync"
)

// SoftDeletes tracks rows hidden from reads for the lifetime of the process.
// Keys are resolved absolute paths, so every alias of a file shares one entry.
type SoftDeletes struct {
	mu      sync.Mutex
	entries map[string]map[int64]struct{}
}

func NewSoftDeletes() *SoftDeletes {
	return &SoftDeletes{entries: map[string]map[int64]struct{}{}}
}

// Mark hides a row ordinal and returns the number of hidden rows for the file.
func (s *SoftDeletes) Mark(path string, rowID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.entries[path]
	if !ok {
		set = map[int64]struct{}{}
		s.entries[path] = set
	}
	set[rowID] = struct{}{}
	return len(set)
}

func (s *SoftDeletes) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[path])
}

// Snapshot returns the hidden ordinals in ascending order. The slice is a
// copy: marks made after the call do not affect an in-flight read.
func (s *SoftDeletes) Snapshot(path string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.entries[path]
	if len(set) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clear drops every mark for the file. Callers must clear after any rewrite of
// the underlying file, because ordinals are re-assigned on the next scan.
func (s *SoftDeletes) Clear(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, path)
}
