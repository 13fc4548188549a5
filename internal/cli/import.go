package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/prospector/internal/company"
	"github.com/evcraddock/prospector/internal/config"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Seed the local company table from CSV",
		Long:  "Insert the rows of a CSV file (REGION, DEPARTEMENT, SIZE, SECTEUR_D_ACTIVITE, INDUSTRIE, NOM, CREATION, VILLE, SITE_INTERNET, LINKEDIN_URL, COMMENTAIRES, LON, LAT) into the local SQLite table.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0])
		},
	}
}

func runImport(ctx context.Context, path string) (err error) {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	records, err := company.ReadCSV(file)
	if err != nil {
		return err
	}

	wh, err := openWarehouse(ctx)
	if err != nil {
		return err
	}
	defer closeWarehouse(wh)

	if wh.Driver != config.DriverSQLite {
		return fmt.Errorf("import only seeds the local SQLite table (driver is %s)", wh.Driver)
	}

	n, err := company.NewRepository(wh.DB, wh.Table).Import(ctx, records)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]int{"imported": n})
	}
	fmt.Printf("✓ Imported %d companies.\n", n)
	return nil
}
