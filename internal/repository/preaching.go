package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/koinonia/koinonia/internal/model"
)

var preachingColumns = []string{
	"id", "title", "youtube_url", "youtube_video_id",
	"description", "preacher_name", "recorded_at", "created_at",
}

// CreatePreaching inserts a preaching. A duplicate youtube_video_id yields ErrVideoIDExists.
func (r *Repository) CreatePreaching(ctx context.Context, p *model.Preaching) error {
	query, args, err := r.builder.
		Insert("preachings").
		Columns(preachingColumns...).
		Values(p.ID, p.Title, p.YouTubeURL, p.YouTubeVideoID, p.Description, p.PreacherName, p.RecordedAt, p.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert preaching: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		if constraint, ok := constraintViolation(err, pgUniqueViolation); ok && constraint == constraintPreachingsVideo {
			return ErrVideoIDExists
		}
		return fmt.Errorf("failed to create preaching: %w", err)
	}
	return nil
}

// GetPreachingByID retrieves a preaching.
func (r *Repository) GetPreachingByID(ctx context.Context, id string) (*model.Preaching, error) {
	query, args, err := r.builder.
		Select(preachingColumns...).
		From("preachings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select preaching: %w", err)
	}

	p, err := scanPreaching(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreachingNotFound
		}
		return nil, fmt.Errorf("failed to get preaching: %w", err)
	}
	return p, nil
}

// ListPreachings returns preachings ordered by recording date, most recent
// first. A non-empty search matches title or description case-insensitively.
func (r *Repository) ListPreachings(ctx context.Context, search string) ([]*model.Preaching, error) {
	query, args, err := buildPreachingList(r.builder, search)
	if err != nil {
		return nil, fmt.Errorf("build list preachings: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list preachings: %w", err)
	}
	defer rows.Close()

	preachings := make([]*model.Preaching, 0)
	for rows.Next() {
		p, err := scanPreaching(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preaching: %w", err)
		}
		preachings = append(preachings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate preachings: %w", err)
	}
	return preachings, nil
}

func buildPreachingList(b sq.StatementBuilderType, search string) (string, []any, error) {
	stmt := b.Select(preachingColumns...).
		From("preachings").
		OrderBy("recorded_at DESC NULLS LAST", "id DESC")

	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		stmt = stmt.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}
	return stmt.ToSql()
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanPreaching(row pgx.Row) (*model.Preaching, error) {
	var p model.Preaching
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.YouTubeURL,
		&p.YouTubeVideoID,
		&p.Description,
		&p.PreacherName,
		&p.RecordedAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
