package chapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mangatrack/internal/scanlator"
	"mangatrack/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// InsertIfNew persists a chapter unless one with the same (mapping, number)
// key already exists. The UNIQUE constraint is the authoritative dedup
// guard: a conflicting insert under a concurrent job is a benign no-op here,
// not an error. Returns whether a row was actually written.
func (r *Repo) InsertIfNew(ctx context.Context, mappingID int64, ch scanlator.Chapter, detectedAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO chapters (mapping_id, chapter_number, title, url, published_at, detected_at, read)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(mapping_id, chapter_number) DO NOTHING
	`, mappingID, ch.Number, ch.Title, ch.URL, ch.PublishedAt, detectedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert chapter: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) ListByMapping(ctx context.Context, mappingID int64) ([]models.Chapter, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, mapping_id, chapter_number, title, url, published_at, detected_at, read
		FROM chapters
		WHERE mapping_id = ?
		ORDER BY CAST(chapter_number AS REAL) ASC, detected_at ASC
	`, mappingID)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()
	return collectChapters(rows)
}

// ListUnread returns unread chapters across all manga, newest detections
// first, with the joined details the UI renders.
func (r *Repo) ListUnread(ctx context.Context, limit, offset int) ([]models.ChapterWithDetails, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.mapping_id, c.chapter_number, c.title, c.url, c.published_at,
		       c.detected_at, c.read, mg.title, s.impl_name
		FROM chapters c
		JOIN mappings mp ON mp.id = c.mapping_id
		JOIN mangas mg ON mg.id = mp.manga_id
		JOIN sources s ON s.id = mp.source_id
		WHERE c.read = 0
		ORDER BY c.detected_at DESC, CAST(c.chapter_number AS REAL) DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unread query: %w", err)
	}
	defer rows.Close()
	return collectDetailed(rows)
}

// ListByManga returns every chapter of a manga across all of its mappings,
// ordered by numeric chapter value.
func (r *Repo) ListByManga(ctx context.Context, mangaID int64) ([]models.ChapterWithDetails, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.mapping_id, c.chapter_number, c.title, c.url, c.published_at,
		       c.detected_at, c.read, mg.title, s.impl_name
		FROM chapters c
		JOIN mappings mp ON mp.id = c.mapping_id
		JOIN mangas mg ON mg.id = mp.manga_id
		JOIN sources s ON s.id = mp.source_id
		WHERE mp.manga_id = ?
		ORDER BY CAST(c.chapter_number AS REAL) ASC, c.detected_at ASC
	`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("by-manga query: %w", err)
	}
	defer rows.Close()
	return collectDetailed(rows)
}

// SetRead flips the read flag. Returns false if the chapter does not exist.
func (r *Repo) SetRead(ctx context.Context, id int64, read bool) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE chapters SET read = ? WHERE id = ?`, read, id)
	if err != nil {
		return false, fmt.Errorf("set read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func collectDetailed(rows *sql.Rows) ([]models.ChapterWithDetails, error) {
	var out []models.ChapterWithDetails
	for rows.Next() {
		var (
			c         models.ChapterWithDetails
			title     sql.NullString
			published sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.MappingID, &c.Number, &title, &c.URL, &published,
			&c.DetectedAt, &c.Read, &c.MangaTitle, &c.SourceImpl); err != nil {
			return nil, fmt.Errorf("detailed scan: %w", err)
		}
		c.Title = title.String
		if published.Valid {
			c.PublishedAt = &published.Time
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func collectChapters(rows *sql.Rows) ([]models.Chapter, error) {
	var out []models.Chapter
	for rows.Next() {
		var (
			c         models.Chapter
			title     sql.NullString
			published sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.MappingID, &c.Number, &title, &c.URL, &published, &c.DetectedAt, &c.Read); err != nil {
			return nil, fmt.Errorf("chapter scan: %w", err)
		}
		c.Title = title.String
		if published.Valid {
			c.PublishedAt = &published.Time
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
