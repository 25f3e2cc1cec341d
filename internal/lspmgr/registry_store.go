package lspmgr

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Package is one installed version of a language-server package.
type Package struct {
	Name        string
	Version     string
	BinaryName  string
	InstalledAt time.Time
	DownloadURL string
	Checksum    string
	Current     bool
}

// RegistryStore is the sqlite-backed record of installed language-server
// packages, replacing the teacher's current-symlink-plus-.metadata.json
// scheme with a single queryable table: which versions of which packages
// are on disk, and which one is the active ("current") version that
// Manager.IsInstalled and Manager.GetBinaryPath resolve against.
// internal/downloader keeps its own cache and does not read this table.
type RegistryStore struct {
	db *sql.DB
}

// OpenRegistryStore opens (creating if absent) the sqlite registry at
// dbPath and ensures its schema exists.
func OpenRegistryStore(dbPath string) (*RegistryStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("lspmgr: open registry: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("lspmgr: ping registry: %w", err)
	}
	s := &RegistryStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *RegistryStore) Close() error { return s.db.Close() }

func (s *RegistryStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS packages (
  name          TEXT NOT NULL,
  version       TEXT NOT NULL,
  binary_name   TEXT NOT NULL,
  installed_at  TIMESTAMP NOT NULL,
  download_url  TEXT,
  checksum      TEXT,
  is_current    BOOLEAN NOT NULL DEFAULT 0,
  PRIMARY KEY (name, version)
);
CREATE INDEX IF NOT EXISTS idx_packages_current ON packages(name, is_current);
`)
	if err != nil {
		return fmt.Errorf("lspmgr: migrate registry: %w", err)
	}
	return nil
}

// Put records pkg as installed. A new row is stored as not current, and
// re-putting an existing (name, version) leaves its current flag as it
// was. The caller decides currency explicitly via MarkCurrent.
func (s *RegistryStore) Put(pkg Package) error {
	_, err := s.db.Exec(
		`INSERT INTO packages (name, version, binary_name, installed_at, download_url, checksum, is_current)
		 VALUES (?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(name, version) DO UPDATE SET
		   binary_name=excluded.binary_name, installed_at=excluded.installed_at,
		   download_url=excluded.download_url, checksum=excluded.checksum`,
		pkg.Name, pkg.Version, pkg.BinaryName, pkg.InstalledAt, pkg.DownloadURL, pkg.Checksum,
	)
	if err != nil {
		return fmt.Errorf("lspmgr: put package: %w", err)
	}
	return nil
}

// MarkCurrent atomically makes (name, version) the sole current row for
// name.
func (s *RegistryStore) MarkCurrent(name, version string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("lspmgr: mark current: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE packages SET is_current = 0 WHERE name = ?`, name); err != nil {
		return fmt.Errorf("lspmgr: mark current: clear: %w", err)
	}
	res, err := tx.Exec(`UPDATE packages SET is_current = 1 WHERE name = ? AND version = ?`, name, version)
	if err != nil {
		return fmt.Errorf("lspmgr: mark current: set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lspmgr: mark current: no such package %s@%s", name, version)
	}
	return tx.Commit()
}

// Current returns the currently-active version of name, if any.
func (s *RegistryStore) Current(name string) (Package, bool, error) {
	var pkg Package
	err := s.db.QueryRow(
		`SELECT name, version, binary_name, installed_at, download_url, checksum
		 FROM packages WHERE name = ? AND is_current = 1`, name,
	).Scan(&pkg.Name, &pkg.Version, &pkg.BinaryName, &pkg.InstalledAt, &pkg.DownloadURL, &pkg.Checksum)
	if err == sql.ErrNoRows {
		return Package{}, false, nil
	}
	if err != nil {
		return Package{}, false, fmt.Errorf("lspmgr: current: %w", err)
	}
	pkg.Current = true
	return pkg, true, nil
}

// List returns every installed version of every package.
func (s *RegistryStore) List() ([]Package, error) {
	rows, err := s.db.Query(
		`SELECT name, version, binary_name, installed_at, download_url, checksum, is_current
		 FROM packages ORDER BY name, version`,
	)
	if err != nil {
		return nil, fmt.Errorf("lspmgr: list: %w", err)
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		var pkg Package
		if err := rows.Scan(&pkg.Name, &pkg.Version, &pkg.BinaryName, &pkg.InstalledAt,
			&pkg.DownloadURL, &pkg.Checksum, &pkg.Current); err != nil {
			return nil, fmt.Errorf("lspmgr: list: scan: %w", err)
		}
		out = append(out, pkg)
	}
	return out, rows.Err()
}

// Remove deletes every recorded version of name.
func (s *RegistryStore) Remove(name string) error {
	if _, err := s.db.Exec(`DELETE FROM packages WHERE name = ?`, name); err != nil {
		return fmt.Errorf("lspmgr: remove: %w", err)
	}
	return nil
}
