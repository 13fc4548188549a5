package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// optionKinds are the cascade levels that can be listed.
var optionKinds = []string{"regions", "departments", "sizes", "sectors", "industries", "years"}

func newOptionsCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:       "options <regions|departments|sizes|sectors|industries|years>",
		Short:     "List the values available at one level of the cascade",
		Long:      "List the values available for a filter level. Departments need --region; sectors need --region, --department and --size; industries also need --sector.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: optionKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptions(cmd.Context(), args[0], &ff)
		},
	}

	ff.bind(cmd)

	return cmd
}

func runOptions(ctx context.Context, kind string, ff *filterFlags) error {
	f, err := ff.filter()
	if err != nil {
		return err
	}

	src, release, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer release()

	if kind == "years" {
		years, err := src.Years(ctx)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(nonNil(years))
		}
		for _, y := range years {
			fmt.Println(y)
		}
		return nil
	}

	var values []string
	switch kind {
	case "regions":
		values, err = src.Regions(ctx)
	case "departments":
		if f.Region == "" {
			return fmt.Errorf("departments require --region")
		}
		values, err = src.Departments(ctx, f.Region)
	case "sizes":
		values, err = src.Sizes(ctx)
	case "sectors":
		if f.Region == "" || f.Department == "" || len(f.Sizes) == 0 {
			return fmt.Errorf("sectors require --region, --department and --size")
		}
		values, err = src.Sectors(ctx, f.Region, f.Department, f.Sizes)
	case "industries":
		if !f.Complete() {
			return fmt.Errorf("industries require --region, --department, --size and --sector")
		}
		values, err = src.Industries(ctx, f)
	default:
		return fmt.Errorf("unknown option kind %q", kind)
	}
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(nonNil(values))
	}
	return writeValues(os.Stdout, values)
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
