package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List the companies matching the filters",
		Long:  "List the companies in a region and department with the given sizes and sector, optionally narrowed by industry and creation year.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), &ff)
		},
	}

	ff.bind(cmd)

	return cmd
}

func runSearch(ctx context.Context, ff *filterFlags) error {
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

	if isJSON() {
		return printJSON(nonNil(companies))
	}
	return writeCompanyTable(os.Stdout, companies)
}
