package postgres

//nolint:revive
import (
	"fmt"
	"net"
	"net/url"
	"stayhub/config"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	maxIdleConnections = 10
	maxOpenConnections = 20
	connMaxLifetime    = 30 * time.Minute
	defaultMaxRetry    = 3
)

// Connection splits traffic between the primary and a read replica. Both may
// point at the same server.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

type endpoint struct {
	name, username, password, host, port, database, sslMode string
}

func (e endpoint) dsn() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(e.username, e.password),
		Host:     net.JoinHostPort(e.host, e.port),
		Path:     e.database,
		RawQuery: url.Values{"sslmode": []string{e.sslMode}}.Encode(),
	}

	return dsn.String()
}

func New(config *config.Config) *Connection {
	pg := config.DB.Postgres

	read := endpoint{"read", pg.Read.Username, pg.Read.Password, pg.Read.Host, pg.Read.Port, pg.Prefix + pg.Read.Name, pg.Read.SSLMode}
	write := endpoint{"write", pg.Write.Username, pg.Write.Password, pg.Write.Host, pg.Write.Port, pg.Prefix + pg.Write.Name, pg.Write.SSLMode}

	retries := pg.MaxRetry
	if retries <= 0 {
		retries = defaultMaxRetry
	}

	wait := time.Duration(pg.RetryWaitTime) * time.Second

	return &Connection{
		Read:  connect(read, retries, wait),
		Write: connect(write, retries, wait),
	}
}

// connect retries until the database accepts connections and exits the
// process when it never does; every component needs storage.
func connect(e endpoint, retries int, wait time.Duration) *sqlx.DB {
	var lastErr error

	for attempt := 1; attempt <= retries; attempt++ {
		db, err := sqlx.Connect("postgres", e.dsn())
		if err == nil {
			db.SetMaxIdleConns(maxIdleConnections)
			db.SetMaxOpenConns(maxOpenConnections)
			db.SetConnMaxLifetime(connMaxLifetime)

			log.Info().Str("name", e.name).Str("host", e.host).Str("database", e.database).Msg("Connected to database")

			return db
		}

		lastErr = err

		log.Error().Err(err).Str("name", e.name).Str("host", e.host).Int("attempt", attempt).Msg("Failed connecting to database, retrying")

		time.Sleep(wait)
	}

	log.Fatal().Err(fmt.Errorf("postgres %s unreachable after %d attempts: %w", e.name, retries, lastErr)).Msg("Giving up on database")

	return nil
}
