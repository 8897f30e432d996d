package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medifollow/care-api/internal/model"
)

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	query := `
		SELECT id, full_name, email, role, organisation_id
		FROM profiles
		WHERE id = $1
	`
	var profile model.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (r *profileRepository) ListDoctors(ctx context.Context, organisationID *uuid.UUID, page model.Pagination) ([]*model.Profile, error) {
	query := `
		SELECT id, full_name, email, role, organisation_id
		FROM profiles
		WHERE role = $1
	`
	args := []interface{}{model.RoleDoctor}

	if organisationID != nil {
		query += " AND organisation_id = $2"
		args = append(args, *organisationID)
	}

	query += fmt.Sprintf(" ORDER BY full_name ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.Limit(), page.Offset())

	var doctors []*model.Profile
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
