package pg

import (
	"errors"
	"fmt"
	"io/fs"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationInfo reports what a migration run did.
type MigrationInfo struct {
	Applied        bool
	Dirty          bool
	CurrentVersion uint
	FinalVersion   uint
}

// ApplyMigrations applies all pending migrations from fsys/dir to the
// database at dsn. Safe to call repeatedly; an up-to-date schema is not an
// error. A dirty schema (a previously interrupted migration) is.
func ApplyMigrations(dsn string, fsys fs.FS, dir string) (MigrationInfo, error) {
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		_, _ = sourceErr, dbErr
	}()

	var info MigrationInfo
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationInfo{}, fmt.Errorf("read schema version: %w", err)
	}
	info.CurrentVersion = version
	info.Dirty = dirty
	if dirty {
		return info, fmt.Errorf("schema is dirty at version %d", version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return info, nil
		}
		return info, fmt.Errorf("apply migrations: %w", err)
	}
	info.Applied = true
	if final, _, err := m.Version(); err == nil {
		info.FinalVersion = final
	}
	return info, nil
}
