package source

import (
	"context"
	"database/sql"
	"fmt"

	"mangatrack/internal/scanlator"
	"mangatrack/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Source, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, impl_name, base_url, active, created_at, updated_at
		FROM sources
		WHERE id = ?
	`, id)

	s, err := scanSource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return s, nil
}

func (r *Repo) List(ctx context.Context) ([]models.Source, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, impl_name, base_url, active, created_at, updated_at
		FROM sources
		ORDER BY impl_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, s models.Source) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO sources (impl_name, base_url, active)
		VALUES (?, ?, ?)
	`, s.ImplName, s.BaseURL, s.Active)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repo) Update(ctx context.Context, s models.Source) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE sources
		SET impl_name = ?, base_url = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, s.ImplName, s.BaseURL, s.Active, s.ID)
	if err != nil {
		return false, fmt.Errorf("update source: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Delete removes the source; its mappings and their chapters go with it via
// the FK cascade.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete source: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*models.Source, error) {
	var s models.Source
	if err := row.Scan(&s.ID, &s.ImplName, &s.BaseURL, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	// display name is derived, never stored, so it cannot drift
	s.Name = scanlator.DisplayName(s.ImplName)
	return &s, nil
}
