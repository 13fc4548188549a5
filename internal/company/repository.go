package company

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Repository runs the cascading queries and comment updates against one table.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a company repository. The table name must already be
// validated; it is the only token interpolated into statements.
func NewRepository(db *sql.DB, table string) *Repository {
	return &Repository{db: db, table: table}
}

// Cascade columns that can be listed as options.
const (
	colRegion     = "REGION"
	colDepartment = "DEPARTEMENT"
	colSize       = "SIZE"
	colSector     = "SECTEUR_D_ACTIVITE"
	colIndustry   = "INDUSTRIE"
)

// Regions returns every region, ascending.
func (r *Repository) Regions(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, colRegion, Filter{})
}

// Departments returns the departments present under region, ascending.
func (r *Repository) Departments(ctx context.Context, region string) ([]string, error) {
	if region == "" {
		return nil, nil
	}
	return r.distinct(ctx, colDepartment, Filter{Region: region})
}

// Sizes returns every size bucket, ascending. Sizes are not narrowed by
// region or department.
func (r *Repository) Sizes(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, colSize, Filter{})
}

// Sectors returns the sectors present for region, department and any of sizes.
func (r *Repository) Sectors(ctx context.Context, region, department string, sizes []string) ([]string, error) {
	if region == "" || department == "" || len(sizes) == 0 {
		return nil, nil
	}
	return r.distinct(ctx, colSector, Filter{Region: region, Department: department, Sizes: sizes})
}

// Industries returns the industries present under the filter's region,
// department, sizes and sector.
func (r *Repository) Industries(ctx context.Context, f Filter) ([]string, error) {
	if !f.Complete() {
		return nil, nil
	}
	return r.distinct(ctx, colIndustry, Filter{
		Region:     f.Region,
		Department: f.Department,
		Sizes:      f.Sizes,
		Sector:     f.Sector,
	})
}

// Years returns the distinct creation years, ascending.
func (r *Repository) Years(ctx context.Context) (years []int64, err error) {
	query := fmt.Sprintf("SELECT DISTINCT CREATION FROM %s WHERE CREATION IS NOT NULL ORDER BY CREATION ASC", r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing years: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var y int64
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scanning year: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating years: %w", err)
	}

	return years, nil
}

// distinct lists the non-null values of column under filter f, ascending.
func (r *Repository) distinct(ctx context.Context, column string, f Filter) (values []string, err error) {
	where, args := f.where()
	conds := column + " IS NOT NULL"
	if where != "" {
		conds = where + " AND " + conds
	}
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s ORDER BY %s ASC", column, r.table, conds, column)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", strings.ToLower(column), err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", strings.ToLower(column), err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", strings.ToLower(column), err)
	}

	return values, nil
}

// Search returns the companies matching a complete filter, ordered by name.
// Records without coordinates are included.
func (r *Repository) Search(ctx context.Context, f Filter) ([]*Company, error) {
	if !f.Complete() {
		return nil, ErrIncompleteFilter
	}

	where, args := f.where()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY NOM ASC", searchColumns, r.table, where)

	return r.query(ctx, query, args...)
}

// Map runs Search and groups the results by city.
func (r *Repository) Map(ctx context.Context, f Filter) (*MapView, error) {
	companies, err := r.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	view := BuildMap(companies)
	return &view, nil
}

// Get returns the records named name, narrowed to city when it is not empty.
func (r *Repository) Get(ctx context.Context, name, city string) ([]*Company, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE NOM = ?", searchColumns, r.table)
	args := []interface{}{name}
	if city != "" {
		query += " AND VILLE = ?"
		args = append(args, city)
	}
	query += " ORDER BY VILLE ASC"

	return r.query(ctx, query, args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) (companies []*Company, err error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating companies: %w", err)
	}

	return companies, nil
}

// UpdateComment sets the comment on the record named name. Names are not
// unique: when several records share the name, city must pick exactly one of
// them. An empty comment clears the field.
func (r *Repository) UpdateComment(ctx context.Context, name, city, comment string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("company name is required")
	}

	cond := "NOM = ?"
	args := []interface{}{name}
	if city != "" {
		cond += " AND VILLE = ?"
		args = append(args, city)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning comment update: %w", err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback()
	}()

	var n int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.table, cond)
	if err := tx.QueryRowContext(ctx, countSQL, args...).Scan(&n); err != nil {
		return fmt.Errorf("counting %q: %w", name, err)
	}
	switch {
	case n == 0:
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	case n > 1:
		return fmt.Errorf("%w: %q (%d records, pass the city)", ErrAmbiguousName, name, n)
	}

	var value interface{}
	if strings.TrimSpace(comment) != "" {
		value = comment
	}
	updateSQL := fmt.Sprintf("UPDATE %s SET COMMENTAIRES = ? WHERE %s", r.table, cond)
	if _, err := tx.ExecContext(ctx, updateSQL, append([]interface{}{value}, args...)...); err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing comment update: %w", err)
	}
	return nil
}

// Import inserts records into the table in one transaction and returns the
// number inserted. It is meant for seeding a local table.
func (r *Repository) Import(ctx context.Context, companies []*Company) (n int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insertSQL := fmt.Sprintf(`INSERT INTO %s
		(REGION, DEPARTEMENT, SIZE, SECTEUR_D_ACTIVITE, INDUSTRIE, NOM, CREATION, VILLE, SITE_INTERNET, LINKEDIN_URL, COMMENTAIRES, LON, LAT)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table)

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing import: %w", err)
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing statement: %w", cerr)
		}
	}()

	for i, c := range companies {
		if strings.TrimSpace(c.Name) == "" {
			return 0, fmt.Errorf("record %d: NOM is required", i+1)
		}
		_, err := stmt.ExecContext(ctx,
			nullString(c.Region), nullString(c.Department), nullString(c.Size),
			nullString(c.Sector), nullString(c.Industry), c.Name, c.Creation,
			nullString(c.City), nullString(c.Website), nullString(c.LinkedInURL),
			c.Comment, c.Lon, c.Lat,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(companies), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
