package postgres

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// Migrate applies all pending schema migrations from cfg.MigrationPath.
// An already-up-to-date schema is not an error.
func Migrate(cfg config.DatabaseConfig, log logging.Logger) error {
	if log == nil {
		log = logging.NewNopLogger()
	}

	m, err := migrate.New("file://"+cfg.MigrationPath, DSN(cfg))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to initialize migrator")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn("migrator close reported errors",
				logging.Err(errors.Join(srcErr, dbErr)))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("schema already up to date")
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to read schema version")
	}
	log.Info("schema migrated",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}
