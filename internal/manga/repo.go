package manga

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mangatrack/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Q      string // keyword search in title/alt titles
	Status string
	Limit  int
	Offset int
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Manga, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, title, alt_titles, cover_url, status, last_checked, created_at, updated_at
		FROM mangas
		WHERE id = ?
	`, id)

	m, err := scanManga(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return m, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Manga, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Manga, 0, q.Limit)
	for rows.Next() {
		m, err := scanManga(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, m models.Manga) (int64, error) {
	altJSON, err := json.Marshal(m.AltTitles)
	if err != nil {
		return 0, fmt.Errorf("marshal alt titles: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO mangas (title, alt_titles, cover_url, status)
		VALUES (?, ?, ?, ?)
	`, m.Title, string(altJSON), m.CoverURL, models.NormalizeStatus(m.Status))
	if err != nil {
		return 0, fmt.Errorf("insert manga: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repo) Update(ctx context.Context, m models.Manga) (bool, error) {
	altJSON, err := json.Marshal(m.AltTitles)
	if err != nil {
		return false, fmt.Errorf("marshal alt titles: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE mangas
		SET title = ?, alt_titles = ?, cover_url = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.Title, string(altJSON), m.CoverURL, models.NormalizeStatus(m.Status), m.ID)
	if err != nil {
		return false, fmt.Errorf("update manga: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Delete removes the manga; its mappings and their chapters go with it via
// the FK cascade.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM mangas WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete manga: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// TouchLastChecked records that the tracker just processed a mapping of this
// manga. This is the only column the tracker writes on the manga row.
func (r *Repo) TouchLastChecked(ctx context.Context, id int64, t time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE mangas SET last_checked = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, t, id)
	if err != nil {
		return fmt.Errorf("touch last_checked: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManga(row rowScanner) (*models.Manga, error) {
	var (
		m           models.Manga
		altJSON     string
		coverURL    sql.NullString
		lastChecked sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.Title, &altJSON, &coverURL, &m.Status, &lastChecked, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.CoverURL = coverURL.String
	if lastChecked.Valid {
		m.LastChecked = &lastChecked.Time
	}
	_ = json.Unmarshal([]byte(altJSON), &m.AltTitles)
	return &m, nil
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT id, title, alt_titles, cover_url, status, last_checked, created_at, updated_at
		FROM mangas
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM mangas`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(alt_titles) LIKE ?)")
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}

	if strings.TrimSpace(q.Status) != "" {
		where = append(where, "LOWER(status) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.Status)))
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY title ASC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
