package sqlite

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"bsid.es/alarmclock"
	"bsid.es/alarmclock/sqlite/migration"
	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

var _ alarmclock.Settings = (*Settings)(nil)

// Settings is an alarmclock.Settings stored in one namespace of a SQLite
// database.
//
// The namespace is read into memory when it is opened. Open takes an
// exclusive lock on the database file and keeps it until Close, so a second
// process can't commit over the in-memory copy. Set and Erase touch memory
// only, and Commit writes every changed key inside a single savepoint.
type Settings struct {
	namespace string

	mu      sync.Mutex
	conn    *sqlite.Conn
	values  map[string]alarmclock.Value
	pending map[string]struct{}
}

const openFlags = sqlite.SQLITE_OPEN_READWRITE | sqlite.SQLITE_OPEN_CREATE | sqlite.SQLITE_OPEN_URI | sqlite.SQLITE_OPEN_NOMUTEX

// Open opens the database at path, creating and migrating it as needed, and
// loads the given namespace. Use ":memory:" for a throwaway database.
//
// If another connection holds the database, Open fails with code
// alarmclock.ErrUnavailable.
func Open(path, namespace string) (*Settings, error) {
	// No WAL: exclusive locking mode then holds a plain file lock.
	conn, err := sqlite.OpenConn(path, openFlags)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := claim(conn); err != nil {
		conn.Close()
		if isBusy(err) {
			return nil, alarmclock.WrapError(alarmclock.ErrUnavailable, err,
				fmt.Sprintf("store %s is in use by another process", path))
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := Migrate(conn, migration.Scripts); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	if err := sqlitex.Exec(conn,
		"insert or replace into owner (id, pid, opened_at) values (1, ?, ?)",
		nil, os.Getpid(), time.Now().Unix()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("record owner of %s: %w", path, err)
	}
	s := &Settings{
		namespace: namespace,
		conn:      conn,
		values:    make(map[string]alarmclock.Value),
		pending:   make(map[string]struct{}),
	}
	if err := s.load(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// claim switches conn to exclusive locking mode and takes the write lock.
// The lock is kept until the connection closes.
func claim(conn *sqlite.Conn) error {
	conn.SetBusyTimeout(0)
	if err := sqlitex.ExecTransient(conn, "pragma locking_mode=exclusive", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecTransient(conn, "begin exclusive", nil); err != nil {
		return err
	}
	return sqlitex.ExecTransient(conn, "commit", nil)
}

func isBusy(err error) bool {
	var serr sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code & 0xff
	return code == sqlite.SQLITE_BUSY || code == sqlite.SQLITE_LOCKED
}

func (s *Settings) load() error {
	const query = "select name, kind, data from settings where namespace = ?"
	err := sqlitex.Exec(s.conn, query, func(stmt *sqlite.Stmt) error {
		key := stmt.ColumnText(0)
		switch kind := alarmclock.Kind(stmt.ColumnInt(1)); kind {
		case alarmclock.KindString:
			s.values[key] = alarmclock.StringValue(stmt.ColumnText(2))
		case alarmclock.KindInt:
			s.values[key] = alarmclock.IntValue(stmt.ColumnInt64(2))
		case alarmclock.KindBool:
			s.values[key] = alarmclock.BoolValue(stmt.ColumnInt64(2) != 0)
		default:
			return fmt.Errorf("key %q: unknown kind %d", key, kind)
		}
		return nil
	}, s.namespace)
	if err != nil {
		return fmt.Errorf("load namespace %q: %w", s.namespace, err)
	}
	return nil
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
	s.pending[key] = struct{}{}
}

func (s *Settings) Erase(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.pending[key] = struct{}{}
}

// Commit writes the keys changed since the last successful Commit. If it
// fails nothing is written and the changes stay pending.
func (s *Settings) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("namespace %q: closed", s.namespace)
	}
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.flush(); err != nil {
		return fmt.Errorf("commit namespace %q: %w", s.namespace, err)
	}
	s.pending = make(map[string]struct{})
	return nil
}

func (s *Settings) flush() (err error) {
	defer sqlitex.Save(s.conn)(&err)

	for key := range s.pending {
		v, ok := s.values[key]
		if !ok {
			if err := sqlitex.Exec(s.conn,
				"delete from settings where namespace = ? and name = ?",
				nil, s.namespace, key); err != nil {
				return fmt.Errorf("erase %q: %w", key, err)
			}
			continue
		}
		if err := sqlitex.Exec(s.conn,
			"insert or replace into settings (namespace, name, kind, data) values (?, ?, ?, ?)",
			nil, s.namespace, key, int64(v.Kind), columnValue(v)); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
	}
	return nil
}

func columnValue(v alarmclock.Value) any {
	switch v.Kind {
	case alarmclock.KindInt:
		return v.Int
	case alarmclock.KindBool:
		if v.Bool {
			return int64(1)
		}
		return int64(0)
	}
	return v.Str
}

// Close drops uncommitted changes and closes the database.
func (s *Settings) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
