package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/prospector/internal/company"
)

// filterFlags are the cascade selections shared by the data commands.
type filterFlags struct {
	region     string
	department string
	sizes      []string
	sector     string
	industry   string
	minYear    int64
	maxYear    int64
}

func (ff *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.region, "region", "", "region (REGION)")
	cmd.Flags().StringVar(&ff.department, "department", "", "department (DEPARTEMENT)")
	cmd.Flags().StringSliceVar(&ff.sizes, "size", nil, "company size, repeatable (SIZE)")
	cmd.Flags().StringVar(&ff.sector, "sector", "", "sector (SECTEUR_D_ACTIVITE)")
	cmd.Flags().StringVar(&ff.industry, "industry", "", "industry (INDUSTRIE, optional)")
	cmd.Flags().Int64Var(&ff.minYear, "min-year", 0, "earliest creation year")
	cmd.Flags().Int64Var(&ff.maxYear, "max-year", 0, "latest creation year")
}

// filter builds the cascade filter. A child value without its parent is an
// error rather than silently dropped.
func (ff *filterFlags) filter() (company.Filter, error) {
	f := company.Filter{
		Region:     ff.region,
		Department: ff.department,
		Sector:     ff.sector,
		Industry:   ff.industry,
	}
	for _, s := range ff.sizes {
		if s != "" {
			f.Sizes = append(f.Sizes, s)
		}
	}
	if ff.minYear != 0 {
		y := ff.minYear
		f.MinYear = &y
	}
	if ff.maxYear != 0 {
		y := ff.maxYear
		f.MaxYear = &y
	}

	switch {
	case f.Department != "" && f.Region == "":
		return f, fmt.Errorf("--department requires --region")
	case len(f.Sizes) > 0 && f.Department == "":
		return f, fmt.Errorf("--size requires --department")
	case f.Sector != "" && len(f.Sizes) == 0:
		return f, fmt.Errorf("--sector requires at least one --size")
	case f.Industry != "" && f.Sector == "":
		return f, fmt.Errorf("--industry requires --sector")
	case f.MinYear != nil && f.MaxYear != nil && *f.MinYear > *f.MaxYear:
		return f, fmt.Errorf("--min-year is after --max-year")
	}

	return f, nil
}

// searchFilter is filter plus the completeness check a search needs.
func (ff *filterFlags) searchFilter() (company.Filter, error) {
	f, err := ff.filter()
	if err != nil {
		return f, err
	}
	if !f.Complete() {
		return f, fmt.Errorf("%w (use --region, --department, --size and --sector)", company.ErrIncompleteFilter)
	}
	return f, nil
}
