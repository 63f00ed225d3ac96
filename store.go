package alarmclock

import (
	"log/slog"
	"sort"
)

// Store maps alarms to and from Settings.
//
// Store does no locking of its own; the Manager serializes every call.
type Store struct {
	settings Settings
	logger   *slog.Logger
}

// NewStore returns a Store backed by settings. A nil logger discards output.
func NewStore(settings Settings, logger *slog.Logger) *Store {
	if logger == nil {
		logger = discardLogger()
	}
	return &Store{settings: settings, logger: logger}
}

// Load reads every alarm listed in the id index, migrating legacy keys to
// the current scheme as it goes, and returns the alarms together with the
// next id to allocate. Records without a usable fire time are dropped and
// erased. Load commits once if it changed anything.
func (s *Store) Load() (map[int]Alarm, int) {
	alarms := make(map[int]Alarm)
	dirty := false
	indexDirty := false

	list, _ := GetString(s.settings, idsKey)
	ids, bad := parseIDList(list)
	for _, item := range bad {
		s.logger.Warn("invalid alarm id entry", slog.String("entry", item))
		indexDirty = true
	}

	for _, id := range ids {
		if _, ok := alarms[id]; ok {
			indexDirty = true
			continue
		}
		rec := s.snapshot(id)
		m, err := MigrateRecord(id, rec)
		if err != nil {
			s.logger.Warn("dropping alarm", slog.Int("alarm_id", id), slog.String("error", err.Error()))
			for key := range rec {
				s.settings.Erase(key)
			}
			dirty = true
			indexDirty = true
			continue
		}
		for _, w := range m.Warnings {
			s.logger.Warn("using default for alarm field", slog.Int("alarm_id", id), slog.String("error", w.Error()))
		}
		if s.reconcile(rec, m.Record) {
			s.logger.Info("migrated alarm keys", slog.Int("alarm_id", id))
			dirty = true
		}
		alarms[id] = m.Alarm
	}

	if indexDirty {
		s.PersistIDs(sortedIDs(alarms))
		dirty = true
	}

	next, _ := GetInt(s.settings, nextIDKey)
	if next <= 0 {
		next = 1
	}
	for _, id := range ids {
		if int64(id) >= next {
			next = int64(id) + 1
		}
	}

	if dirty {
		if err := s.Commit(); err != nil {
			s.logger.Error("commit after load failed", slog.String("error", err.Error()))
		}
	}
	return alarms, int(next)
}

func (s *Store) snapshot(id int) Record {
	rec := make(Record)
	for _, key := range RecordKeys(id) {
		if v, ok := s.settings.Get(key); ok {
			rec[key] = v
		}
	}
	return rec
}

// reconcile rewrites the stored keys from before to after and reports
// whether anything had to be written.
func (s *Store) reconcile(before, after Record) bool {
	changed := false
	for key, v := range after {
		if old, ok := before[key]; !ok || old != v {
			s.settings.Set(key, v)
			changed = true
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			s.settings.Erase(key)
			changed = true
		}
	}
	return changed
}

// Persist writes every field of a under the current key scheme.
func (s *Store) Persist(a Alarm) {
	for key, v := range encodeRecord(a) {
		s.settings.Set(key, v)
	}
}

// PersistIDs writes the id index. ids must be sorted.
func (s *Store) PersistIDs(ids []int) {
	s.settings.Set(idsKey, StringValue(joinIDs(ids)))
}

// PersistNextID writes the allocator high-water mark.
func (s *Store) PersistNextID(next int) {
	s.settings.Set(nextIDKey, IntValue(int64(next)))
}

// Remove erases every key of the alarm under both key schemes.
func (s *Store) Remove(id int) {
	for _, key := range RecordKeys(id) {
		s.settings.Erase(key)
	}
}

// Commit flushes buffered writes.
func (s *Store) Commit() error {
	if err := s.settings.Commit(); err != nil {
		return WrapError(ErrUnavailable, err, "commit settings")
	}
	return nil
}

func sortedIDs(alarms map[int]Alarm) []int {
	ids := make([]int, 0, len(alarms))
	for id := range alarms {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
