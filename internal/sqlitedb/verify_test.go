package sqlitedb

import (
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifySchemaAcceptsEachMirrorsOwnSchema(t *testing.T) {
	for name, schema := range map[string]string{
		"primary_db": schemaPrimary,
		"filelists_db": schemaFilelists,
		"other_db": schemaOther,
	} {
		data := rawSqliteBytes(t, schema)
		require.NoError(t, VerifySchema(name, data), "mirror %s", name)
	}
}

func TestVerifySchemaRejectsMissingTable(t *testing.T) {
	data := rawSqliteBytes(t, `CREATE TABLE db_info (dbversion INTEGER, checksum TEXT);`)
	err := VerifySchema("primary_db", data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing expected table")
}

func TestVerifySchemaRejectsUnknownMirrorName(t *testing.T) {
	err := VerifySchema("bogus_db", []byte{})
	require.Error(t, err)
}

func rawSqliteBytes(t *testing.T, schema string) []byte {
	t.Helper()
	path := t.TempDir() + "/t.sqlite"
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
