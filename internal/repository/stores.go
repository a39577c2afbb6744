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

// StoresRepository provides persistence helpers for store entities.
type StoresRepository struct {
	pool *pgxpool.Pool
}

const storeColumns = `
    id,
    name,
    email,
    address,
    owner_id,
    average_rating,
    rating_count,
    created_at,
    updated_at
`

var storeColumnsPrefixed = []string{
	"s.id", "s.name", "s.email", "s.address", "s.owner_id",
	"s.average_rating", "s.rating_count", "s.created_at", "s.updated_at",
}

// StoreCreateParams bundles the fields required to create a store.
type StoreCreateParams struct {
	Name    string
	Email   string
	Address string
	OwnerID uuid.UUID
}

// StoreListFilters encapsulates search and pagination options. CallerID
// selects whose rating is attached to each store.
type StoreListFilters struct {
	Name     *string
	Address  *string
	CallerID uuid.UUID
	Limit    int
	Cursor   *Cursor
}

// StoreListResult returns the paginated payload.
type StoreListResult struct {
	Items      []domain.StoreWithCallerRating
	NextCursor *string
}

// Create inserts a new store row with an empty aggregate.
func (r *StoresRepository) Create(ctx context.Context, params StoreCreateParams) (domain.Store, error) {
	query := fmt.Sprintf(`
        INSERT INTO stores (name, email, address, owner_id)
        VALUES ($1,$2,$3,$4)
        RETURNING %s
    `, storeColumns)

	row := store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, params.Name, params.Email, params.Address, params.OwnerID)
	st, err := scanStore(row)
	if err != nil {
		return domain.Store{}, mapError(err, "create store")
	}
	return st, nil
}

// GetByID fetches a store by its identifier.
func (r *StoresRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Store, error) {
	query := fmt.Sprintf(`SELECT %s FROM stores WHERE id = $1`, storeColumns)
	st, err := scanStore(store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return domain.Store{}, mapError(err, "get store")
	}
	return st, nil
}

// LockForUpdate takes a row-level exclusive lock on the store for the rest of
// the surrounding transaction and returns its current state. It must be
// called inside TxManager.RunInTx.
func (r *StoresRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (domain.Store, error) {
	if !store.InTx(ctx) {
		return domain.Store{}, fmt.Errorf("lock store: no transaction in context")
	}
	query := fmt.Sprintf(`SELECT %s FROM stores WHERE id = $1 FOR UPDATE`, storeColumns)
	st, err := scanStore(store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return domain.Store{}, mapError(err, "lock store")
	}
	return st, nil
}

// SetAggregate writes the derived rating aggregate onto the store row.
// The mean is divided in numeric from Sum and Count, so the column never
// holds float rounding noise. Only the aggregation service calls this, with
// the store lock held.
func (r *StoresRepository) SetAggregate(ctx context.Context, agg domain.RatingAggregate) error {
	tag, err := store.QuerierFromCtx(ctx, r.pool).Exec(ctx, `
        UPDATE stores
        SET average_rating = $2::numeric / NULLIF($3::int8, 0),
            rating_count = $3,
            updated_at = now()
        WHERE id = $1
    `, agg.StoreID, agg.Sum, agg.Count)
	if err != nil {
		return mapError(err, "set store aggregate")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set store aggregate: %w", domain.ErrStoreNotFound)
	}
	return nil
}

// GetWithCallerRating returns the store plus the caller's own rating, if any.
func (r *StoresRepository) GetWithCallerRating(ctx context.Context, storeID, callerID uuid.UUID) (domain.StoreWithCallerRating, error) {
	query, args, err := selectStoresWithCallerRating(callerID).
		Where(sq.Eq{"s.id": storeID}).
		ToSql()
	if err != nil {
		return domain.StoreWithCallerRating{}, fmt.Errorf("build store query: %w", err)
	}

	item, err := scanStoreWithCallerRating(store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...), callerID)
	if err != nil {
		return domain.StoreWithCallerRating{}, mapError(err, "get store")
	}
	return item, nil
}

// List returns stores that match the provided filters, newest first, each
// with the caller's own rating attached.
func (r *StoresRepository) List(ctx context.Context, filters StoreListFilters) (StoreListResult, error) {
	limit := clampLimit(filters.Limit)

	q := selectStoresWithCallerRating(filters.CallerID)
	if filters.Name != nil && strings.TrimSpace(*filters.Name) != "" {
		q = q.Where(sq.ILike{"s.name": "%" + strings.TrimSpace(*filters.Name) + "%"})
	}
	if filters.Address != nil && strings.TrimSpace(*filters.Address) != "" {
		q = q.Where(sq.ILike{"s.address": "%" + strings.TrimSpace(*filters.Address) + "%"})
	}
	if filters.Cursor != nil {
		q = q.Where(sq.Expr("(s.created_at, s.id) < (?, ?)", filters.Cursor.CreatedAt, filters.Cursor.ID))
	}
	q = q.OrderBy("s.created_at DESC", "s.id DESC").Limit(uint64(limit))

	query, args, err := q.ToSql()
	if err != nil {
		return StoreListResult{}, fmt.Errorf("build store list query: %w", err)
	}

	rows, err := store.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return StoreListResult{}, mapError(err, "list stores")
	}
	defer rows.Close()

	items := make([]domain.StoreWithCallerRating, 0)
	for rows.Next() {
		item, err := scanStoreWithCallerRating(rows, filters.CallerID)
		if err != nil {
			return StoreListResult{}, mapError(err, "scan store")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return StoreListResult{}, mapError(err, "list stores")
	}

	var nextCursor *string
	if len(items) == limit {
		last := items[len(items)-1]
		token, err := encodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return StoreListResult{}, err
		}
		nextCursor = &token
	}

	return StoreListResult{Items: items, NextCursor: nextCursor}, nil
}

func selectStoresWithCallerRating(callerID uuid.UUID) sq.SelectBuilder {
	cols := append([]string{}, storeColumnsPrefixed...)
	cols = append(cols, "r.rating", "r.created_at", "r.updated_at")
	return psql.Select(cols...).
		From("stores s").
		LeftJoin("ratings r ON r.store_id = s.id AND r.user_id = ?", callerID)
}

func scanStore(row pgx.Row) (domain.Store, error) {
	var st domain.Store
	err := row.Scan(
		&st.ID,
		&st.Name,
		&st.Email,
		&st.Address,
		&st.OwnerID,
		&st.AverageRating,
		&st.RatingCount,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return domain.Store{}, err
	}
	return st, nil
}

func scanStoreWithCallerRating(row pgx.Row, callerID uuid.UUID) (domain.StoreWithCallerRating, error) {
	var (
		item      domain.StoreWithCallerRating
		rating    *int
		createdAt *time.Time
		updatedAt *time.Time
	)
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Email,
		&item.Address,
		&item.OwnerID,
		&item.AverageRating,
		&item.RatingCount,
		&item.CreatedAt,
		&item.UpdatedAt,
		&rating,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.StoreWithCallerRating{}, err
	}
	if rating != nil {
		item.CallerRating = &domain.Rating{
			UserID:  callerID,
			StoreID: item.ID,
			Value:   *rating,
		}
		if createdAt != nil {
			item.CallerRating.CreatedAt = *createdAt
		}
		if updatedAt != nil {
			item.CallerRating.UpdatedAt = *updatedAt
		}
	}
	return item, nil
}
