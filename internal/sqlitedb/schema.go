// Package sqlitedb builds the three SQLite mirrors (primary_db,
// filelists_db, other_db) from the rpmmeta XML model, schema grounded on
// the radepal-go-yum reference's primarydb.go, extended with the
// filelists_db/other_db tables createrepo_c's own schema carries.
package sqlitedb

const schemaPrimary = `
CREATE TABLE db_info (dbversion INTEGER, checksum TEXT);
CREATE TABLE packages (
 pkgKey INTEGER PRIMARY KEY,
 pkgId TEXT,
 name TEXT,
 arch TEXT,
 version TEXT,
 epoch TEXT,
 release TEXT,
 summary TEXT,
 description TEXT,
 url TEXT,
 time_file INTEGER,
 time_build INTEGER,
 rpm_license TEXT,
 rpm_vendor TEXT,
 rpm_group TEXT,
 rpm_buildhost TEXT,
 rpm_sourcerpm TEXT,
 rpm_packager TEXT,
 size_package INTEGER,
 size_installed INTEGER,
 size_archive INTEGER,
 location_href TEXT,
 checksum_type TEXT
);
CREATE TABLE files (name TEXT, type TEXT, pkgKey INTEGER);
CREATE TABLE requires (name TEXT, flags TEXT, epoch TEXT, version TEXT, release TEXT, pkgKey INTEGER, pre BOOLEAN DEFAULT FALSE);
CREATE TABLE provides (name TEXT, flags TEXT, epoch TEXT, version TEXT, release TEXT, pkgKey INTEGER);
CREATE TABLE conflicts (name TEXT, flags TEXT, epoch TEXT, version TEXT, release TEXT, pkgKey INTEGER);
CREATE TABLE obsoletes (name TEXT, flags TEXT, epoch TEXT, version TEXT, release TEXT, pkgKey INTEGER);
CREATE INDEX packagename ON packages (name);
CREATE INDEX packageId ON packages (pkgId);
CREATE INDEX filenames ON files (name);
CREATE INDEX pkgfiles ON files (pkgKey);
CREATE INDEX pkgrequires ON requires (pkgKey);
CREATE INDEX requiresname ON requires (name);
CREATE INDEX pkgprovides ON provides (pkgKey);
CREATE INDEX providesname ON provides (name);
CREATE INDEX pkgconflicts ON conflicts (pkgKey);
CREATE INDEX pkgobsoletes ON obsoletes (pkgKey);
CREATE TRIGGER removals AFTER DELETE ON packages BEGIN
 DELETE FROM files WHERE pkgKey = old.pkgKey;
 DELETE FROM requires WHERE pkgKey = old.pkgKey;
 DELETE FROM provides WHERE pkgKey = old.pkgKey;
 DELETE FROM conflicts WHERE pkgKey = old.pkgKey;
 DELETE FROM obsoletes WHERE pkgKey = old.pkgKey;
END;
`

const schemaFilelists = `
CREATE TABLE db_info (dbversion INTEGER, checksum TEXT);
CREATE TABLE packages (
 pkgKey INTEGER PRIMARY KEY,
 pkgId TEXT,
 name TEXT,
 arch TEXT,
 version TEXT,
 epoch TEXT,
 release TEXT
);
CREATE TABLE filelist (pkgKey INTEGER, dirname TEXT, filenames TEXT, filetypes TEXT);
CREATE INDEX pkgId ON packages (pkgId);
CREATE INDEX dirnames ON filelist (dirname);
CREATE INDEX keyfile ON filelist (pkgKey);
CREATE TRIGGER removals AFTER DELETE ON packages BEGIN
 DELETE FROM filelist WHERE pkgKey = old.pkgKey;
END;
`

const schemaOther = `
CREATE TABLE db_info (dbversion INTEGER, checksum TEXT);
CREATE TABLE packages (
 pkgKey INTEGER PRIMARY KEY,
 pkgId TEXT,
 name TEXT,
 arch TEXT,
 version TEXT,
 epoch TEXT,
 release TEXT
);
CREATE TABLE changelog (pkgKey INTEGER, author TEXT, date INTEGER, changelog TEXT);
CREATE INDEX pkgId ON packages (pkgId);
CREATE INDEX keychange ON changelog (pkgKey);
CREATE TRIGGER removals AFTER DELETE ON packages BEGIN
 DELETE FROM changelog WHERE pkgKey = old.pkgKey;
END;
`
