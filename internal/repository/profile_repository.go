package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_bookshop/internal/domain"
)

func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, phone, address, picture_ref, updated_at FROM profiles WHERE user_id = $1`,
		userID).Scan(&p.UserID, &p.Phone, &p.Address, &p.PictureRef, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

// GetOrCreateProfile returns the user's profile, creating an empty one on first access.
func (r *Repository) GetOrCreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, updated_at) VALUES ($1, NOW()) ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return r.GetProfile(ctx, userID)
}

func (r *Repository) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	query := `INSERT INTO profiles (user_id, phone, address, picture_ref, updated_at)
	          VALUES ($1, $2, $3, $4, NOW())
	          ON CONFLICT (user_id) DO UPDATE
	          SET phone = EXCLUDED.phone, address = EXCLUDED.address,
	              picture_ref = EXCLUDED.picture_ref, updated_at = NOW()
	          RETURNING updated_at`

	if err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.Phone, p.Address, p.PictureRef).Scan(&p.UpdatedAt); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
