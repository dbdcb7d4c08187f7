package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/koinonia/koinonia/internal/model"
)

// CreateCommunity inserts a community. A duplicate pco_group_id yields ErrGroupIDExists.
func (r *Repository) CreateCommunity(ctx context.Context, c *model.Community) error {
	query := `
		INSERT INTO communities (id, name, description, pco_group_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Description, c.PCOGroupID, c.CreatedAt)
	if err != nil {
		if constraint, ok := constraintViolation(err, pgUniqueViolation); ok && constraint == constraintCommunitiesGroup {
			return ErrGroupIDExists
		}
		return fmt.Errorf("failed to create community: %w", err)
	}
	return nil
}

// GetCommunityByID retrieves a community.
func (r *Repository) GetCommunityByID(ctx context.Context, id string) (*model.Community, error) {
	query := `
		SELECT id, name, description, pco_group_id, created_at
		FROM communities
		WHERE id = $1
	`

	var c model.Community
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.PCOGroupID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCommunityNotFound
		}
		return nil, fmt.Errorf("failed to get community: %w", err)
	}
	return &c, nil
}

// ListCommunities returns all communities, newest first.
func (r *Repository) ListCommunities(ctx context.Context) ([]*model.Community, error) {
	query := `
		SELECT id, name, description, pco_group_id, created_at
		FROM communities
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	defer rows.Close()

	communities := make([]*model.Community, 0)
	for rows.Next() {
		var c model.Community
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.PCOGroupID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan community: %w", err)
		}
		communities = append(communities, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate communities: %w", err)
	}
	return communities, nil
}

// AddMember links a user to a community. Adding an existing member is a no-op.
func (r *Repository) AddMember(ctx context.Context, communityID, userID string) error {
	query := `
		INSERT INTO community_memberships (user_id, community_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, userID, communityID); err != nil {
		if constraint, ok := constraintViolation(err, pgForeignKeyViolation); ok {
			switch constraint {
			case constraintMembershipCommunity:
				return ErrCommunityNotFound
			case constraintMembershipUser:
				return ErrUserNotFound
			}
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// ListMembers returns the members of a community ordered by last then first name.
func (r *Repository) ListMembers(ctx context.Context, communityID string) ([]*model.Member, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.phone
		FROM community_memberships cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.community_id = $1
		ORDER BY u.last_name, u.first_name
	`

	rows, err := r.pool.Query(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*model.Member, 0)
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &m.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
