package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"stayhub/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationsSource = "file://migrations/postgres"

func databaseURL(config *config.Config) string {
	pg := config.DB.Postgres

	query := url.Values{}
	query.Set("sslmode", pg.Write.SSLMode)

	if pg.MigrationTable != "" {
		query.Set("x-migrations-table", pg.MigrationTable)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pg.Write.Username, pg.Write.Password),
		Host:     net.JoinHostPort(pg.Write.Host, pg.Write.Port),
		Path:     pg.Prefix + pg.Write.Name,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

// run opens the migrator against the primary and applies step. ErrNoChange is
// success.
func run(config *config.Config, action string, step func(*migrate.Migrate) error) error {
	mig, err := migrate.New(migrationsSource, databaseURL(config))
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	defer func() {
		if srcErr, dbErr := mig.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Failed to close migrator")
		}
	}()

	if err := step(mig); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migration %s: %w", action, err)
	}

	version, dirty, _ := mig.Version()
	log.Info().Str("action", action).Uint("version", version).Bool("dirty", dirty).Msg("Database migration finished")

	return nil
}

func Up(config *config.Config) error {
	return run(config, "up", (*migrate.Migrate).Up)
}

func StepUp(config *config.Config) error {
	return run(config, "step-up", func(m *migrate.Migrate) error { return m.Steps(1) })
}

func Down(config *config.Config) error {
	return run(config, "down", func(m *migrate.Migrate) error { return m.Steps(-1) })
}

func Drop(config *config.Config) error {
	return run(config, "drop", (*migrate.Migrate).Down)
}
