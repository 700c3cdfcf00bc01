package sqlitedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/repogen/reposync/internal/digest"
	"github.com/repogen/reposync/internal/rpmmeta"
)

// Built holds one mirror's uncompressed sqlite bytes plus its row count,
// for the caller to content-address and bzip2-compress via
// rpmmeta.NewRenderedFile / digest.Bzip2Compress.
type Built struct {
	Name string // "primary_db", "filelists_db", "other_db"
	Bytes []byte
	RowCount int
}

// CleanStale removes any leftover .sqlite/.sqlite.bz2 files from a
// staging directory before a rebuild, guarding against accidental
// reupload of stale mirrors.
func CleanStale(stagingDir string) error {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if hasSuffix(name, ".sqlite") || hasSuffix(name, ".sqlite.bz2") {
			if err := os.Remove(filepath.Join(stagingDir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// BuildPrimaryDB constructs primary_db from a merged PrimaryDoc.
func BuildPrimaryDB(stagingDir string, doc *rpmmeta.PrimaryDoc) (*Built, error) {
	path := filepath.Join(stagingDir, "primary.sqlite")
	os.Remove(path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: open primary_db: %w", err)
	}
	defer db.Close()
	defer os.Remove(path)

	if _, err := db.Exec(schemaPrimary); err != nil {
		return nil, fmt.Errorf("sqlitedb: create primary_db schema: %w", err)
	}

	insertPkg, err := db.Prepare(`INSERT INTO packages(
		pkgId, name, arch, version, epoch, release, summary, description, url,
		time_file, time_build, rpm_license, rpm_vendor, rpm_group, rpm_buildhost,
		rpm_sourcerpm, rpm_packager, size_package, size_installed, size_archive,
		location_href, checksum_type
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return nil, err
	}
	defer insertPkg.Close()

	insertFile, err := db.Prepare(`INSERT INTO files(name, type, pkgKey) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer insertFile.Close()

	for _, p := range doc.Entries {
		res, err := insertPkg.Exec(
			p.Checksum.Value, p.Name, p.Arch, p.Version.Ver, p.Version.Epoch, p.Version.Rel,
			p.Summary, p.Desc, p.URL, p.Time.File, p.Time.Build,
			p.Format.License, p.Format.Vendor, p.Format.Group, p.Format.Buildhost,
			p.Format.Sourcerpm, p.Packager, p.Size.Package, p.Size.Installed, p.Size.Archive,
			p.Location.Href, p.Checksum.Type,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlitedb: insert package %s: %w", p.Name, err)
		}
		pkgKey, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}

		if err := insertDeps(db, "requires", p.Format.Requires, pkgKey); err != nil {
			return nil, err
		}
		if err := insertDeps(db, "provides", p.Format.Provides, pkgKey); err != nil {
			return nil, err
		}
		if err := insertDeps(db, "conflicts", p.Format.Conflicts, pkgKey); err != nil {
			return nil, err
		}
		if err := insertDeps(db, "obsoletes", p.Format.Obsoletes, pkgKey); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Built{Name: "primary_db", Bytes: data, RowCount: len(doc.Entries)}, nil
}

func insertDeps(db *sql.DB, table string, deps *rpmmeta.DepList, pkgKey int64) error {
	if deps == nil {
		return nil
	}
	stmt, err := db.Prepare(fmt.Sprintf(`INSERT INTO %s(name, flags, epoch, version, release, pkgKey) VALUES (?,?,?,?,?,?)`, table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range deps.Entries {
		if _, err := stmt.Exec(e.Name, e.Flags, e.Epoch, e.Ver, e.Rel, pkgKey); err != nil {
			return err
		}
	}
	return nil
}

// BuildFilelistsDB constructs filelists_db from a merged FilelistsDoc.
func BuildFilelistsDB(stagingDir string, doc *rpmmeta.FilelistsDoc) (*Built, error) {
	path := filepath.Join(stagingDir, "filelists.sqlite")
	os.Remove(path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: open filelists_db: %w", err)
	}
	defer db.Close()
	defer os.Remove(path)

	if _, err := db.Exec(schemaFilelists); err != nil {
		return nil, fmt.Errorf("sqlitedb: create filelists_db schema: %w", err)
	}

	insertPkg, err := db.Prepare(`INSERT INTO packages(pkgId, name, arch, version, epoch, release) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return nil, err
	}
	defer insertPkg.Close()

	insertFile, err := db.Prepare(`INSERT INTO filelist(pkgKey, dirname, filenames, filetypes) VALUES (?,?,?,?)`)
	if err != nil {
		return nil, err
	}
	defer insertFile.Close()

	for _, p := range doc.Entries {
		res, err := insertPkg.Exec(p.Pkgid, p.Name, p.Arch, p.Version.Ver, p.Version.Epoch, p.Version.Rel)
		if err != nil {
			return nil, fmt.Errorf("sqlitedb: insert package %s: %w", p.Name, err)
		}
		pkgKey, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		for _, f := range p.Files {
			dir, base := splitDir(f.Path)
			if _, err := insertFile.Exec(pkgKey, dir, base, f.Type); err != nil {
				return nil, err
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Built{Name: "filelists_db", Bytes: data, RowCount: len(doc.Entries)}, nil
}

func splitDir(path string) (dir, base string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i+1], path[i+1:]
		}
	}
	return "", path
}

// BuildOtherDB constructs other_db from a merged OtherDoc.
func BuildOtherDB(stagingDir string, doc *rpmmeta.OtherDoc) (*Built, error) {
	path := filepath.Join(stagingDir, "other.sqlite")
	os.Remove(path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: open other_db: %w", err)
	}
	defer db.Close()
	defer os.Remove(path)

	if _, err := db.Exec(schemaOther); err != nil {
		return nil, fmt.Errorf("sqlitedb: create other_db schema: %w", err)
	}

	insertPkg, err := db.Prepare(`INSERT INTO packages(pkgId, name, arch, version, epoch, release) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return nil, err
	}
	defer insertPkg.Close()

	insertChangelog, err := db.Prepare(`INSERT INTO changelog(pkgKey, author, date, changelog) VALUES (?,?,?,?)`)
	if err != nil {
		return nil, err
	}
	defer insertChangelog.Close()

	for _, p := range doc.Entries {
		res, err := insertPkg.Exec(p.Pkgid, p.Name, p.Arch, p.Version.Ver, p.Version.Epoch, p.Version.Rel)
		if err != nil {
			return nil, fmt.Errorf("sqlitedb: insert package %s: %w", p.Name, err)
		}
		pkgKey, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		for _, c := range p.Changelogs {
			if _, err := insertChangelog.Exec(pkgKey, c.Author, c.Date, c.Text); err != nil {
				return nil, err
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Built{Name: "other_db", Bytes: data, RowCount: len(doc.Entries)}, nil
}

// Compress renders a Built mirror as a content-addressed, bzip2
// compressed RenderedFile.
func Compress(b *Built) (rpmmeta.RenderedFile, error) {
	compressed, err := digest.Bzip2Compress(b.Bytes)
	if err != nil {
		return rpmmeta.RenderedFile{}, fmt.Errorf("sqlitedb: bzip2 compress %s: %w", b.Name, err)
	}
	base := b.Name[:len(b.Name)-3] + ".sqlite.bz2" // "primary_db" -> "primary.sqlite.bz2"
	return rpmmeta.NewRenderedFile(b.Name, base, compressed, b.Bytes), nil
}

// VerifyRowCount checks invariant 6: the sqlite packages
// row count must equal the XML package count.
func VerifyRowCount(b *Built, xmlCount int) error {
	if b.RowCount != xmlCount {
		return fmt.Errorf("sqlitedb: %s row count %d does not match xml count %d", b.Name, b.RowCount, xmlCount)
	}
	return nil
}
