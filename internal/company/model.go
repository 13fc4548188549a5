// Package company provides the company record model, the cascading filter
// queries, map grouping and CSV export.
package company

import (
	"database/sql"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches a comment target.
	ErrNotFound = errors.New("company not found")
	// ErrAmbiguousName is returned when a comment target matches more than one record.
	ErrAmbiguousName = errors.New("company name matches several records")
	// ErrIncompleteFilter is returned when a search lacks required cascade values.
	ErrIncompleteFilter = errors.New("region, department, at least one size and a sector are required")
)

// Company is one row of the company table.
type Company struct {
	Name        string   `json:"nom"`
	Creation    *int64   `json:"creation,omitempty"`
	City        string   `json:"ville"`
	Website     string   `json:"site_internet"`
	LinkedInURL string   `json:"linkedin_url"`
	Comment     *string  `json:"commentaires,omitempty"`
	Size        string   `json:"size"`
	Sector      string   `json:"secteur_d_activite"`
	Industry    string   `json:"industrie"`
	Lon         *float64 `json:"lon,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`

	// Region and Department are only populated by import.
	Region     string `json:"region,omitempty"`
	Department string `json:"departement,omitempty"`
}

// HasCoordinates reports whether the record can be placed on the map.
func (c *Company) HasCoordinates() bool {
	return c.Lat != nil && c.Lon != nil
}

// CommentText returns the comment or "" when unset.
func (c *Company) CommentText() string {
	if c.Comment == nil {
		return ""
	}
	return *c.Comment
}

const searchColumns = `NOM, CREATION, VILLE, SITE_INTERNET, LINKEDIN_URL, COMMENTAIRES, SIZE, SECTEUR_D_ACTIVITE, INDUSTRIE, LON, LAT`

// scanCompany scans a company from a row selected with searchColumns.
func scanCompany(row interface{ Scan(...interface{}) error }) (*Company, error) {
	var c Company
	var creation sql.NullInt64
	var city, website, linkedin, comment, size, sector, industry sql.NullString
	var lon, lat sql.NullFloat64

	err := row.Scan(
		&c.Name, &creation, &city, &website, &linkedin, &comment,
		&size, &sector, &industry, &lon, &lat,
	)
	if err != nil {
		return nil, err
	}

	if creation.Valid {
		c.Creation = &creation.Int64
	}
	if comment.Valid {
		c.Comment = &comment.String
	}
	if lon.Valid {
		c.Lon = &lon.Float64
	}
	if lat.Valid {
		c.Lat = &lat.Float64
	}
	c.City = city.String
	c.Website = website.String
	c.LinkedInURL = linkedin.String
	c.Size = size.String
	c.Sector = sector.String
	c.Industry = industry.String

	return &c, nil
}
