package repository

import (
	"context"
	"errors"

	"github.com/JulienRioux/slabbers/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

var ErrUsernameTaken = errors.New("username already taken")

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// OwnersByIDs fetches the public fragments of every profile in ids with a
// single query. Ids without a profile row are simply absent from the result.
func (r *ProfileRepository) OwnersByIDs(ctx context.Context, ids []string) ([]model.OwnerProfile, error) {
	if len(ids) == 0 {
		return []model.OwnerProfile{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, username, display_name, avatar_url
		FROM profiles
		WHERE id::text = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := []model.OwnerProfile{}
	for rows.Next() {
		var o model.OwnerProfile
		if err := rows.Scan(&o.ID, &o.Username, &o.DisplayName, &o.AvatarURL); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, username, display_name, avatar_url, created_at, updated_at
		FROM profiles WHERE id::text = $1
	`, id).Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Upsert creates or updates the names of a profile. Empty strings clear the
// column.
func (r *ProfileRepository) Upsert(ctx context.Context, id string, username, displayName *string) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, username, display_name)
		VALUES ($1::text::uuid, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, display_name = EXCLUDED.display_name, updated_at = NOW()
		RETURNING id::text, username, display_name, avatar_url, created_at, updated_at
	`, id, username, displayName).Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) SetAvatar(ctx context.Context, id, avatarURL string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, avatar_url)
		VALUES ($1::text::uuid, $2)
		ON CONFLICT (id) DO UPDATE SET avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
	`, id, avatarURL)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
