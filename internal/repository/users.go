package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/store"
)

// UsersRepository provides persistence helpers for user accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `
    id,
    name,
    email,
    address,
    role,
    password_hash,
    created_at,
    updated_at
`

// UserCreateParams bundles the fields required to create a user.
type UserCreateParams struct {
	Name         string
	Email        string
	Address      string
	PasswordHash string
	Role         domain.Role
}

// UserListFilters encapsulates search and pagination options for the admin listing.
type UserListFilters struct {
	Name    *string
	Email   *string
	Address *string
	Role    *domain.Role
	Limit   int
	Cursor  *Cursor
}

// UserListResult returns the paginated payload.
type UserListResult struct {
	Items      []domain.UserSummary
	NextCursor *string
}

// Create inserts a new user row. A duplicate email yields domain.ErrAlreadyExists.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (name, email, address, password_hash, role)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING %s
    `, userColumns)

	q := store.QuerierFromCtx(ctx, r.pool)
	row := q.QueryRow(ctx, query, params.Name, params.Email, params.Address, params.PasswordHash, string(params.Role))
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapError(err, "create user")
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	user, err := scanUser(store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return domain.User{}, mapError(err, "get user")
	}
	return user, nil
}

// GetByEmail fetches a user by email, case-insensitively.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1)`, userColumns)
	user, err := scanUser(store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, email))
	if err != nil {
		return domain.User{}, mapError(err, "get user by email")
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *UsersRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := store.QuerierFromCtx(ctx, r.pool).Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
    `, id, hash)
	if err != nil {
		return mapError(err, "update password")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update password: %w", domain.ErrNotFound)
	}
	return nil
}

// List returns users matching the filters, newest first. Store owners carry
// their store's current average rating.
func (r *UsersRepository) List(ctx context.Context, filters UserListFilters) (UserListResult, error) {
	limit := clampLimit(filters.Limit)

	q := psql.Select(
		"u.id", "u.name", "u.email", "u.address", "u.role", "u.created_at",
		"s.id", "s.average_rating",
	).
		From("users u").
		LeftJoin("stores s ON s.owner_id = u.id")

	if filters.Name != nil && strings.TrimSpace(*filters.Name) != "" {
		q = q.Where(sq.ILike{"u.name": "%" + strings.TrimSpace(*filters.Name) + "%"})
	}
	if filters.Email != nil && strings.TrimSpace(*filters.Email) != "" {
		q = q.Where(sq.ILike{"u.email": "%" + strings.TrimSpace(*filters.Email) + "%"})
	}
	if filters.Address != nil && strings.TrimSpace(*filters.Address) != "" {
		q = q.Where(sq.ILike{"u.address": "%" + strings.TrimSpace(*filters.Address) + "%"})
	}
	if filters.Role != nil {
		q = q.Where(sq.Eq{"u.role": string(*filters.Role)})
	}
	if filters.Cursor != nil {
		q = q.Where(sq.Expr("(u.created_at, u.id) < (?, ?)", filters.Cursor.CreatedAt, filters.Cursor.ID))
	}
	q = q.OrderBy("u.created_at DESC", "u.id DESC").Limit(uint64(limit))

	query, args, err := q.ToSql()
	if err != nil {
		return UserListResult{}, fmt.Errorf("build user list query: %w", err)
	}

	rows, err := store.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return UserListResult{}, mapError(err, "list users")
	}
	defer rows.Close()

	items := make([]domain.UserSummary, 0)
	var lastCreated time.Time
	for rows.Next() {
		var (
			u         domain.UserSummary
			role      string
			createdAt time.Time
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &role, &createdAt, &u.OwnedStoreID, &u.OwnedStoreRating); err != nil {
			return UserListResult{}, mapError(err, "scan user")
		}
		u.Role = domain.Role(role)
		lastCreated = createdAt
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return UserListResult{}, mapError(err, "list users")
	}

	var nextCursor *string
	if len(items) == limit {
		token, err := encodeCursor(Cursor{CreatedAt: lastCreated, ID: items[len(items)-1].ID})
		if err != nil {
			return UserListResult{}, err
		}
		nextCursor = &token
	}

	return UserListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Address,
		&role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	user.Role = domain.Role(role)
	return user, nil
}
