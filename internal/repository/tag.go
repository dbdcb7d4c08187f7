package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/koinonia/koinonia/internal/model"
)

// UpsertTag inserts a tag or returns the existing tag with the same name.
func (r *Repository) UpsertTag(ctx context.Context, tag *model.Tag) (*model.Tag, error) {
	query := `
		INSERT INTO tags (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`

	var out model.Tag
	if err := r.pool.QueryRow(ctx, query, tag.ID, tag.Name).Scan(&out.ID, &out.Name); err != nil {
		return nil, fmt.Errorf("failed to upsert tag: %w", err)
	}
	return &out, nil
}

// ListTags returns all tags ordered by name.
func (r *Repository) ListTags(ctx context.Context) ([]*model.Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return collectTags(rows)
}

// ListPreachingTags returns the tags attached to a preaching ordered by name.
func (r *Repository) ListPreachingTags(ctx context.Context, preachingID string) ([]*model.Tag, error) {
	query := `
		SELECT t.id, t.name
		FROM preaching_topics pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.preaching_id = $1
		ORDER BY t.name
	`

	rows, err := r.pool.Query(ctx, query, preachingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preaching tags: %w", err)
	}
	return collectTags(rows)
}

// AttachTags creates any missing tags from candidates and links all of them
// to the preaching in one transaction. It returns the attached tags with
// their stored ids. A missing preaching yields ErrPreachingNotFound.
func (r *Repository) AttachTags(ctx context.Context, preachingID string, candidates []*model.Tag) ([]*model.Tag, error) {
	ids := make([]string, 0, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, t := range candidates {
		ids = append(ids, t.ID)
		names = append(names, t.Name)
	}

	var attached []*model.Tag
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		insertTags := `
			INSERT INTO tags (id, name)
			SELECT * FROM unnest($1::text[], $2::text[])
			ON CONFLICT (name) DO NOTHING
		`
		if _, err := tx.Exec(ctx, insertTags, pq.Array(ids), pq.Array(names)); err != nil {
			return fmt.Errorf("failed to create tags: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT id, name FROM tags WHERE name = ANY($1::text[]) ORDER BY name`, pq.Array(names))
		if err != nil {
			return fmt.Errorf("failed to load tags: %w", err)
		}
		attached, err = collectTags(rows)
		if err != nil {
			return err
		}

		tagIDs := make([]string, 0, len(attached))
		for _, t := range attached {
			tagIDs = append(tagIDs, t.ID)
		}

		link := `
			INSERT INTO preaching_topics (preaching_id, tag_id)
			SELECT $1, unnest($2::text[])
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.Exec(ctx, link, preachingID, pq.Array(tagIDs)); err != nil {
			if constraint, ok := constraintViolation(err, pgForeignKeyViolation); ok && constraint == constraintTopicsPreaching {
				return ErrPreachingNotFound
			}
			return fmt.Errorf("failed to attach tags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attached, nil
}

func collectTags(rows pgx.Rows) ([]*model.Tag, error) {
	defer rows.Close()

	tags := make([]*model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}
