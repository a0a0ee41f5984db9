package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valey/valey-go/apperror"
)

const pgForeignKeyViolation = "23503"

// Store provides database access to profile rows.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new profile Store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Select fetches the profile owned by userID.
func (s *Store) Select(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT id, first_name, last_name, avatar_url, phone, company, created_at, updated_at
		FROM profiles
		WHERE id = $1`

	var p Profile
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.AvatarURL, &p.Phone, &p.Company,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("profile not found", err)
		}
		return nil, apperror.NewDatabaseError("failed to fetch profile", err)
	}
	return &p, nil
}

// Update applies a partial update to an existing profile row. Only the
// fields present in the patch are written; updated_at always advances.
// Updating a missing row is NotFound, never an implicit insert.
func (s *Store) Update(ctx context.Context, userID string, patch Patch) (*Profile, error) {
	setClauses, args := buildSetClauses(patch)
	if len(setClauses) == 0 {
		return s.Select(ctx, userID)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, userID)

	query := fmt.Sprintf(`
		UPDATE profiles
		SET %s
		WHERE id = $%d
		RETURNING id, first_name, last_name, avatar_url, phone, company, created_at, updated_at`,
		strings.Join(setClauses, ", "), len(args))

	var p Profile
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.AvatarURL, &p.Phone, &p.Company,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("profile not found", err)
		}
		return nil, apperror.NewDatabaseError("failed to update profile", err)
	}
	return &p, nil
}

// Upsert writes the patch, inserting the row if the user has no profile
// yet. The avatar pipeline uses this so a fresh account can still set an
// avatar before its profile row exists.
func (s *Store) Upsert(ctx context.Context, userID string, patch Patch) (*Profile, error) {
	query := `
		INSERT INTO profiles (id, first_name, last_name, avatar_url, phone, company)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			first_name = COALESCE($7, profiles.first_name),
			last_name  = COALESCE($8, profiles.last_name),
			avatar_url = COALESCE($9, profiles.avatar_url),
			phone      = COALESCE($10, profiles.phone),
			company    = COALESCE($11, profiles.company),
			updated_at = NOW()
		RETURNING id, first_name, last_name, avatar_url, phone, company, created_at, updated_at`

	var p Profile
	err := s.db.QueryRow(ctx, query,
		userID,
		deref(patch.FirstName), deref(patch.LastName), deref(patch.AvatarURL),
		deref(patch.Phone), deref(patch.Company),
		patch.FirstName, patch.LastName, patch.AvatarURL, patch.Phone, patch.Company,
	).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.AvatarURL, &p.Phone, &p.Company,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, apperror.NewNotFoundError("no account for profile", err)
		}
		return nil, apperror.NewDatabaseError("failed to upsert profile", err)
	}
	return &p, nil
}

// SeedProfile creates the initial profile row for a new account. It is
// called from the sign-up flow and is idempotent.
func (s *Store) SeedProfile(ctx context.Context, userID, firstName, lastName string) error {
	query := `
		INSERT INTO profiles (id, first_name, last_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			updated_at = NOW()`

	if _, err := s.db.Exec(ctx, query, userID, firstName, lastName); err != nil {
		return apperror.NewDatabaseError("failed to seed profile", err)
	}
	return nil
}

// buildSetClauses turns the non-nil patch fields into positional SET
// clauses plus their arguments.
func buildSetClauses(patch Patch) ([]string, []interface{}) {
	var setClauses []string
	var args []interface{}
	argID := 1

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, *value)
		argID++
	}

	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	add("avatar_url", patch.AvatarURL)
	add("phone", patch.Phone)
	add("company", patch.Company)

	return setClauses, args
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
