package company

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ExportColumns are the columns shown in the table and written to CSV.
var ExportColumns = []string{"NOM", "CREATION", "VILLE", "SITE_INTERNET", "LINKEDIN_URL", "COMMENTAIRES"}

// ExportFilename is the suggested download name.
const ExportFilename = "entreprises.csv"

// WriteCSV writes companies as UTF-8 CSV with a header row and no index
// column. Unset values are written as empty fields.
func WriteCSV(w io.Writer, companies []*Company) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, c := range companies {
		creation := ""
		if c.Creation != nil {
			creation = strconv.FormatInt(*c.Creation, 10)
		}
		record := []string{c.Name, creation, c.City, c.Website, c.LinkedInURL, c.CommentText()}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %q: %w", c.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// importColumns are the recognized headers of an import file.
var importColumns = map[string]bool{
	"REGION": true, "DEPARTEMENT": true, "SIZE": true, "SECTEUR_D_ACTIVITE": true,
	"INDUSTRIE": true, "NOM": true, "CREATION": true, "VILLE": true,
	"SITE_INTERNET": true, "LINKEDIN_URL": true, "COMMENTAIRES": true,
	"LON": true, "LAT": true,
}

// ReadCSV parses an import file. The header row names the columns (any order,
// case-insensitive); NOM is required, unknown columns are rejected.
func ReadCSV(r io.Reader) ([]*Company, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if !importColumns[name] {
			return nil, fmt.Errorf("unknown column %q", h)
		}
		idx[name] = i
	}
	if _, ok := idx["NOM"]; !ok {
		return nil, fmt.Errorf("missing NOM column")
	}

	var companies []*Company
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		c := &Company{
			Region:      get("REGION"),
			Department:  get("DEPARTEMENT"),
			Size:        get("SIZE"),
			Sector:      get("SECTEUR_D_ACTIVITE"),
			Industry:    get("INDUSTRIE"),
			Name:        get("NOM"),
			City:        get("VILLE"),
			Website:     get("SITE_INTERNET"),
			LinkedInURL: get("LINKEDIN_URL"),
		}
		if c.Name == "" {
			return nil, fmt.Errorf("line %d: NOM is empty", line)
		}
		if v := get("COMMENTAIRES"); v != "" {
			c.Comment = &v
		}
		if v := get("CREATION"); v != "" {
			y, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid CREATION %q", line, v)
			}
			c.Creation = &y
		}
		if c.Lon, err = parseCoord(get("LON")); err != nil {
			return nil, fmt.Errorf("line %d: invalid LON: %w", line, err)
		}
		if c.Lat, err = parseCoord(get("LAT")); err != nil {
			return nil, fmt.Errorf("line %d: invalid LAT: %w", line, err)
		}

		companies = append(companies, c)
	}

	return companies, nil
}

func parseCoord(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	// Seeds exported from French spreadsheets use a decimal comma.
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
