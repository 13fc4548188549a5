package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/prospector/internal/company"
)

func newExportCmd() *cobra.Command {
	var ff filterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the matching companies as CSV",
		Long:  "Write NOM, CREATION, VILLE, SITE_INTERNET, LINKEDIN_URL and COMMENTAIRES of the matching companies as CSV, to stdout or a file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), &ff, output)
		},
	}

	ff.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (\"-\" for stdout, default stdout)")

	return cmd
}

func runExport(ctx context.Context, ff *filterFlags, output string) (err error) {
	f, err := ff.searchFilter()
	if err != nil {
		return err
	}

	src, release, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer release()

	companies, err := src.Search(ctx, f)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" && output != "-" {
		file, createErr := os.Create(output)
		if createErr != nil {
			return fmt.Errorf("creating %s: %w", output, createErr)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing %s: %w", output, cerr)
			}
		}()
		w = file
	}

	if err := company.WriteCSV(w, companies); err != nil {
		return err
	}

	if output != "" && output != "-" {
		fmt.Fprintf(os.Stderr, "✓ %d companies written to %s\n", len(companies), output)
	}
	return nil
}
