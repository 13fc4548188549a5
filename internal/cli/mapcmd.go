package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newMapCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Group the matching companies by city",
		Long:  "Group the matching companies that have coordinates by city and position, as drawn on the web map.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd.Context(), &ff)
		},
	}

	ff.bind(cmd)

	return cmd
}

func runMap(ctx context.Context, ff *filterFlags) error {
	f, err := ff.searchFilter()
	if err != nil {
		return err
	}

	src, release, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer release()

	view, err := src.Map(ctx, f)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(view)
	}
	if view.Total == 0 {
		fmt.Println("Aucune entreprise ne correspond aux critères sélectionnés.")
		return nil
	}
	if view.Empty() {
		fmt.Println("Aucune donnée de localisation disponible pour affichage sur la carte.")
		return nil
	}
	return writeMapView(os.Stdout, *view)
}
