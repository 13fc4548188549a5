// Package warehouse opens the company table, either a local SQLite seed or
// the hosted Snowflake warehouse.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/evcraddock/prospector/internal/config"
	"github.com/evcraddock/prospector/internal/db"
)

// ErrInvalidTable is returned for a table name that is not a plain
// (optionally database- and schema-qualified) identifier.
var ErrInvalidTable = errors.New("invalid table name")

const pingTimeout = 10 * time.Second

var identPart = `[A-Za-z_][A-Za-z0-9_$]*`
var tablePattern = regexp.MustCompile(`^` + identPart + `(\.` + identPart + `){0,2}$`)

// Warehouse is an open connection to the company table.
type Warehouse struct {
	DB     *sql.DB
	Table  string
	Driver string
}

// ValidTable checks that name is safe to interpolate into SQL.
func ValidTable(name string) error {
	if !tablePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

// Open connects to the warehouse described by cfg. For the local driver,
// dbPath is the SQLite file holding the seed table.
func Open(ctx context.Context, cfg config.Config, dbPath string) (*Warehouse, error) {
	if err := ValidTable(cfg.Table); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		d, err := db.Open(dbPath)
		if err != nil {
			return nil, err
		}
		return &Warehouse{DB: d, Table: cfg.Table, Driver: config.DriverSQLite}, nil
	case config.DriverSnowflake:
		d, err := openSnowflake(ctx, cfg.Snowflake)
		if err != nil {
			return nil, err
		}
		return &Warehouse{DB: d, Table: cfg.Table, Driver: config.DriverSnowflake}, nil
	default:
		return nil, fmt.Errorf("unknown warehouse driver %q", cfg.Driver)
	}
}

// SnowflakeDSN builds a gosnowflake DSN from the configured credentials.
func SnowflakeDSN(c config.SnowflakeConfig) (string, error) {
	if c.Account == "" || c.User == "" {
		return "", errors.New("snowflake account and user are required")
	}
	if c.Password == "" {
		return "", errors.New("snowflake password is not set (secrets file, PROSPECTOR_SNOWFLAKE_PASSWORD or keyring)")
	}
	return sf.DSN(&sf.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Warehouse: c.Warehouse,
		Database:  c.Database,
		Schema:    c.Schema,
		Role:      c.Role,
	})
}

func openSnowflake(ctx context.Context, c config.SnowflakeConfig) (*sql.DB, error) {
	dsn, err := SnowflakeDSN(c)
	if err != nil {
		return nil, err
	}

	d, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snowflake: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := d.PingContext(pingCtx); err != nil {
		closeErr := d.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("pinging snowflake: %w (also failed to close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("pinging snowflake: %w", err)
	}

	return d, nil
}

// Close closes the underlying connection pool.
func (w *Warehouse) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
