package company

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter is the cascade of selections: region, department, sizes, sector,
// industry, plus an optional creation-year range.
type Filter struct {
	Region     string   `json:"region"`
	Department string   `json:"departement"`
	Sizes      []string `json:"sizes"`
	Sector     string   `json:"secteur_d_activite"`
	Industry   string   `json:"industrie,omitempty"`
	MinYear    *int64   `json:"min_year,omitempty"`
	MaxYear    *int64   `json:"max_year,omitempty"`
}

// Complete reports whether the filter has every value a search requires.
func (f Filter) Complete() bool {
	return f.Region != "" && f.Department != "" && len(f.Sizes) > 0 && f.Sector != ""
}

// where builds the WHERE clause (without the keyword) in cascade order.
// Empty values add no condition. The IN list has one placeholder per size.
func (f Filter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Region != "" {
		conds = append(conds, "REGION = ?")
		args = append(args, f.Region)
	}
	if f.Department != "" {
		conds = append(conds, "DEPARTEMENT = ?")
		args = append(args, f.Department)
	}
	if len(f.Sizes) > 0 {
		conds = append(conds, "SIZE IN ("+placeholders(len(f.Sizes))+")")
		for _, s := range f.Sizes {
			args = append(args, s)
		}
	}
	if f.Sector != "" {
		conds = append(conds, "SECTEUR_D_ACTIVITE = ?")
		args = append(args, f.Sector)
	}
	if f.Industry != "" {
		conds = append(conds, "INDUSTRIE = ?")
		args = append(args, f.Industry)
	}
	if f.MinYear != nil {
		conds = append(conds, "CREATION >= ?")
		args = append(args, *f.MinYear)
	}
	if f.MaxYear != nil {
		conds = append(conds, "CREATION <= ?")
		args = append(args, *f.MaxYear)
	}

	return strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// Query encodes the filter as URL query parameters.
func (f Filter) Query() url.Values {
	v := url.Values{}
	if f.Region != "" {
		v.Set("region", f.Region)
	}
	if f.Department != "" {
		v.Set("department", f.Department)
	}
	for _, s := range f.Sizes {
		v.Add("size", s)
	}
	if f.Sector != "" {
		v.Set("sector", f.Sector)
	}
	if f.Industry != "" {
		v.Set("industry", f.Industry)
	}
	if f.MinYear != nil {
		v.Set("min_year", strconv.FormatInt(*f.MinYear, 10))
	}
	if f.MaxYear != nil {
		v.Set("max_year", strconv.FormatInt(*f.MaxYear, 10))
	}
	return v
}

// ParseFilter decodes a filter from URL query parameters. Blank sizes are
// dropped; malformed years are ignored.
func ParseFilter(v url.Values) Filter {
	f := Filter{
		Region:     strings.TrimSpace(v.Get("region")),
		Department: strings.TrimSpace(v.Get("department")),
		Sector:     strings.TrimSpace(v.Get("sector")),
		Industry:   strings.TrimSpace(v.Get("industry")),
	}
	for _, s := range v["size"] {
		if s = strings.TrimSpace(s); s != "" {
			f.Sizes = append(f.Sizes, s)
		}
	}
	f.MinYear = parseYear(v.Get("min_year"))
	f.MaxYear = parseYear(v.Get("max_year"))

	// A child selection without its parent is meaningless in a cascade.
	if f.Region == "" {
		f.Department = ""
	}
	if f.Department == "" {
		f.Sizes = nil
	}
	if len(f.Sizes) == 0 {
		f.Sector = ""
	}
	if f.Sector == "" {
		f.Industry = ""
	}

	return f
}

func parseYear(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	y, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &y
}
