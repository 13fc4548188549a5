package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/evcraddock/prospector/internal/auth"
	"github.com/evcraddock/prospector/internal/company"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeValues prints one option per line.
func writeValues(w io.Writer, values []string) error {
	if len(values) == 0 {
		_, err := fmt.Fprintln(w, "No values.")
		return err
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}

// writeCompanyTable prints companies as a formatted table.
func writeCompanyTable(out io.Writer, companies []*company.Company) error {
	if len(companies) == 0 {
		_, err := fmt.Fprintln(out, "Aucune entreprise ne correspond aux critères sélectionnés.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "NOM\tCREATION\tVILLE\tSITE_INTERNET\tLINKEDIN_URL\tCOMMENTAIRES"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "---\t--------\t-----\t-------------\t------------\t------------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, c := range companies {
		creation := "-"
		if c.Creation != nil {
			creation = strconv.FormatInt(*c.Creation, 10)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(c.Name, 40), creation, dash(c.City), dash(truncate(c.Website, 40)),
			dash(truncate(c.LinkedInURL, 40)), dash(truncate(c.CommentText(), 40))); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	_, err := fmt.Fprintf(out, "\nTotal: %d entreprises\n", len(companies))
	return err
}

// writeMapView prints the city points and the initial view.
func writeMapView(out io.Writer, view company.MapView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "VILLE\tLAT\tLON\tENTREPRISES"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, p := range view.Points {
		if _, err := fmt.Fprintf(w, "%s\t%.5f\t%.5f\t%s\n", dash(p.City), p.Lat, p.Lon, p.Companies); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	_, err := fmt.Fprintf(out, "\nCenter: %.5f, %.5f (zoom %d)\n", view.CenterLat, view.CenterLon, view.Zoom)
	return err
}

// writeKeyTable prints API keys without their secret part.
func writeKeyTable(out io.Writer, keys []auth.APIKey) error {
	if len(keys) == 0 {
		_, err := fmt.Fprintln(out, "No API keys.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tPREFIX\tCREATED\tLAST USED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s…\t%s\t%s\n",
			k.ID, k.Name, k.KeyPrefix, k.CreatedAt.Format("2006-01-02 15:04"), lastUsed); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// truncate shortens s to max runes, ending with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
