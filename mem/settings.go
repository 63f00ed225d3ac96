package mem

import (
	"sort"
	"sync"

	"bsid.es/alarmclock"
)

var _ alarmclock.Settings = (*Settings)(nil)

// Settings keeps values in memory. Writes become visible to Get immediately
// and are counted; Commit only bumps a counter unless CommitErr is set.
type Settings struct {
	mu        sync.Mutex
	values    map[string]alarmclock.Value
	writes    int
	commits   int
	commitErr error
}

func NewSettings() *Settings {
	return &Settings{
		values: make(map[string]alarmclock.Value),
	}
}

func (s *Settings) Get(key string) (alarmclock.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Settings) Set(key string, v alarmclock.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
	s.writes++
}

func (s *Settings) Erase(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.writes++
}

func (s *Settings) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits++
	return nil
}

// FailCommits makes every later Commit return err. A nil err heals it.
func (s *Settings) FailCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// Writes returns the number of Set and Erase calls so far.
func (s *Settings) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Commits returns the number of successful commits so far.
func (s *Settings) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Keys returns the stored keys in lexical order.
func (s *Settings) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of every stored value.
func (s *Settings) Snapshot() map[string]alarmclock.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(map[string]alarmclock.Value, len(s.values))
	for key, v := range s.values {
		snap[key] = v
	}
	return snap
}
