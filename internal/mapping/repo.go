package mapping

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mangatrack/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Mapping, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, manga_id, source_id, manga_url, verified, notes, created_at, updated_at
		FROM mappings
		WHERE id = ?
	`, id)

	var m models.Mapping
	if err := row.Scan(&m.ID, &m.MangaID, &m.SourceID, &m.MangaURL, &m.Verified, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &m, nil
}

func (r *Repo) ListByManga(ctx context.Context, mangaID int64) ([]models.Mapping, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, manga_id, source_id, manga_url, verified, notes, created_at, updated_at
		FROM mappings
		WHERE manga_id = ?
		ORDER BY id ASC
	`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var out []models.Mapping
	for rows.Next() {
		var m models.Mapping
		if err := rows.Scan(&m.ID, &m.MangaID, &m.SourceID, &m.MangaURL, &m.Verified, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, m models.Mapping) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO mappings (manga_id, source_id, manga_url, verified, notes)
		VALUES (?, ?, ?, ?, ?)
	`, m.MangaID, m.SourceID, m.MangaURL, m.Verified, m.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("manga %d is already mapped to source %d", m.MangaID, m.SourceID)
		}
		return 0, fmt.Errorf("insert mapping: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repo) Update(ctx context.Context, m models.Mapping) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE mappings
		SET manga_url = ?, verified = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.MangaURL, m.Verified, m.Notes, m.ID)
	if err != nil {
		return false, fmt.Errorf("update mapping: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM mappings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete mapping: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListTracked returns the mappings a tracking job should process: manually
// verified, on an active source, optionally narrowed to one manga and/or one
// source.
func (r *Repo) ListTracked(ctx context.Context, mangaID, sourceID *int64) ([]models.TrackedMapping, error) {
	sqlStr := `
		SELECT mp.id, mg.id, mg.title, s.id, s.impl_name, mp.manga_url
		FROM mappings mp
		JOIN mangas mg ON mg.id = mp.manga_id
		JOIN sources s ON s.id = mp.source_id
		WHERE mp.verified = 1 AND s.active = 1
	`
	var args []any
	if mangaID != nil {
		sqlStr += " AND mp.manga_id = ?"
		args = append(args, *mangaID)
	}
	if sourceID != nil {
		sqlStr += " AND mp.source_id = ?"
		args = append(args, *sourceID)
	}
	sqlStr += " ORDER BY mp.id ASC"

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("tracked query: %w", err)
	}
	defer rows.Close()

	var out []models.TrackedMapping
	for rows.Next() {
		var t models.TrackedMapping
		if err := rows.Scan(&t.MappingID, &t.MangaID, &t.MangaTitle, &t.SourceID, &t.SourceImpl, &t.MangaURL); err != nil {
			return nil, fmt.Errorf("tracked scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
