package sqlitedb

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// expectedTables lists the tables each mirror's schema (schema.go)
// declares, keyed by repomd record type ("primary_db", "filelists_db",
// "other_db").
var expectedTables = map[string][]string{
	"primary_db": {"db_info", "packages", "files", "requires", "provides", "conflicts", "obsoletes"},
	"filelists_db": {"db_info", "packages", "filelist"},
	"other_db": {"db_info", "packages", "changelog"},
}

// VerifySchema opens a decompressed sqlite mirror and confirms every
// table its schema declares is present, catching a truncated or corrupt
// mirror that VerifyRowCount's write-time check cannot see once the
// file has been persisted, downloaded, and decompressed again.
func VerifySchema(name string, data []byte) error {
	want, ok := expectedTables[name]
	if !ok {
		return fmt.Errorf("sqlitedb: unknown mirror name %q", name)
	}

	f, err := os.CreateTemp("", "verify-"+name+"-*.sqlite")
	if err != nil {
		return fmt.Errorf("sqlitedb: stage %s for schema check: %w", name, err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("sqlitedb: stage %s for schema check: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sqlitedb: stage %s for schema check: %w", name, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("sqlitedb: open %s for schema check: %w", name, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return fmt.Errorf("sqlitedb: query %s schema: %w", name, err)
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var tbl string
		if err := rows.Scan(&tbl); err != nil {
			return err
		}
		present[tbl] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, tbl := range want {
		if !present[tbl] {
			return fmt.Errorf("sqlitedb: %s missing expected table %q", name, tbl)
		}
	}
	return nil
}
