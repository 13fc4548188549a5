// Package cli defines the cobra command tree for prospector.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/prospector/internal/client"
	"github.com/evcraddock/prospector/internal/company"
	"github.com/evcraddock/prospector/internal/config"
	"github.com/evcraddock/prospector/internal/db"
	"github.com/evcraddock/prospector/internal/warehouse"
)

var (
	flagFormat string
	flagDB     string
	flagRemote bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prospector",
		Short:         "Browse and annotate a company directory",
		Long:          "Filter companies by region, department, size, sector and industry, export them to CSV, place them on a map and keep sales comments, via CLI or web UI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.prospector/prospector.db)")
	root.PersistentFlags().BoolVar(&flagRemote, "remote", false, "query the configured server instead of the warehouse")

	root.AddCommand(
		newOptionsCmd(),
		newSearchCmd(),
		newExportCmd(),
		newMapCmd(),
		newCommentCmd(),
		newAskCmd(),
		newImportCmd(),
		newKeysCmd(),
		newServeCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// source is the read side shared by the warehouse repository and the API
// client.
type source interface {
	Regions(ctx context.Context) ([]string, error)
	Departments(ctx context.Context, region string) ([]string, error)
	Sizes(ctx context.Context) ([]string, error)
	Sectors(ctx context.Context, region, department string, sizes []string) ([]string, error)
	Industries(ctx context.Context, f company.Filter) ([]string, error)
	Years(ctx context.Context) ([]int64, error)
	Search(ctx context.Context, f company.Filter) ([]*company.Company, error)
	Map(ctx context.Context, f company.Filter) (*company.MapView, error)
}

var (
	_ source = (*company.Repository)(nil)
	_ source = (*client.Client)(nil)
)

// openSource returns the API client when --remote is set (or saved with
// 'config login --remote'), otherwise a repository over the configured
// warehouse. The returned func releases it.
func openSource(ctx context.Context) (source, func(), error) {
	if flagRemote || remoteByDefault() {
		return newAPIClient(), func() {}, nil
	}

	wh, err := openWarehouse(ctx)
	if err != nil {
		return nil, nil, err
	}
	return company.NewRepository(wh.DB, wh.Table), func() { closeWarehouse(wh) }, nil
}

// openWarehouse loads the configuration and connects to the warehouse.
func openWarehouse(ctx context.Context) (*warehouse.Warehouse, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	path, err := dbPath(cfg)
	if err != nil {
		return nil, err
	}
	return warehouse.Open(ctx, cfg, path)
}

// dbPath resolves the local database from --db, the config, or the default.
func dbPath(cfg config.Config) (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return db.DefaultPath()
}

// openDB opens the local SQLite database holding API keys.
func openDB() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	path, err := dbPath(cfg)
	if err != nil {
		return nil, err
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the prospector API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

func closeWarehouse(wh *warehouse.Warehouse) {
	if err := wh.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing warehouse: %v\n", err)
	}
}
