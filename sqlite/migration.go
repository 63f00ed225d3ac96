package sqlite

import (
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// Migrate brings the schema of conn up to date with the *.sql scripts in
// fsys. The number of applied scripts is kept in pragma user_version, so
// each script runs once. All pending scripts run inside one savepoint.
func Migrate(conn *sqlite.Conn, fsys fs.FS) (err error) {
	release := sqlitex.Save(conn)
	defer release(&err)

	oldVer, err := Version(conn)
	if err != nil {
		return err
	}

	scripts, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list scripts: %w", err)
	}
	currVer := len(scripts)

	if oldVer >= currVer {
		// There are no scripts to run.
		return nil
	}

	sort.Strings(scripts)
	for _, script := range scripts[oldVer:] {
		if err := runScript(conn, fsys, script); err != nil {
			return err
		}
	}

	newVer := strconv.Itoa(currVer)
	if err := sqlitex.ExecTransient(conn, "pragma user_version="+newVer, nil); err != nil {
		return fmt.Errorf("set version: %w", err)
	}
	return nil
}

// Version returns the number of scripts applied to conn.
func Version(conn *sqlite.Conn) (int, error) {
	var ver int
	if err := sqlitex.ExecTransient(conn, "pragma user_version", func(stmt *sqlite.Stmt) error {
		ver = stmt.ColumnInt(0)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return ver, nil
}

func runScript(conn *sqlite.Conn, fsys fs.FS, script string) error {
	buf, err := fs.ReadFile(fsys, script)
	if err != nil {
		return fmt.Errorf("read %s: %w", script, err)
	}
	queries := strings.TrimSpace(string(buf))
	for i := 0; queries != ""; i++ {
		stmt, trailingBytes, err := conn.PrepareTransient(queries)
		if err != nil {
			return fmt.Errorf("prepare %s, stmt %d: %w", script, i, err)
		}
		usedBytes := len(queries) - trailingBytes
		queries = strings.TrimSpace(queries[usedBytes:])
		_, err = stmt.Step()
		stmt.Finalize()
		if err != nil {
			return fmt.Errorf("execute %s, stmt %d: %w", script, i, err)
		}
	}
	return nil
}
