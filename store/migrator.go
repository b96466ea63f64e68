package store

import (
	"context"
	"embed"
	"log/slog"

	"github.com/pkg/errors"
)

// The schema is applied as a whole on fresh databases. Incremental
// migrations live alongside LATEST.sql once the schema starts moving.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the full schema applied to new installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate initializes the database schema when it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	buf, err := migrationFS.ReadFile("migration/sqlite/" + LatestSchemaFileName)
	if err != nil {
		return errors.Wrap(err, "failed to read latest schema")
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	slog.Info("database schema initialized", slog.String("mode", s.profile.Mode))
	return nil
}
