package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/store"
)

// RatingsRepository provides helpers for store ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	StoreID uuid.UUID
	UserID  uuid.UUID
	Value   int
}

// Upsert inserts or updates a rating and indicates whether it was newly created.
// The (user_id, store_id) primary key guarantees a single record per pair.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.Rating, bool, error) {
	const query = `
        INSERT INTO ratings (user_id, store_id, rating)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, store_id)
        DO UPDATE SET rating = EXCLUDED.rating, updated_at = now()
        RETURNING user_id, store_id, rating, created_at, updated_at, (xmax = 0) AS inserted
    `

	var rating domain.Rating
	var inserted bool
	err := store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, params.UserID, params.StoreID, params.Value).Scan(
		&rating.UserID,
		&rating.StoreID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.Rating{}, false, mapError(err, "upsert rating")
	}

	return rating, inserted, nil
}

// Aggregate recomputes the rating mean and count for a store from scratch.
// Average is nil when the store has no ratings.
func (r *RatingsRepository) Aggregate(ctx context.Context, storeID uuid.UUID) (domain.RatingAggregate, error) {
	const query = `
        SELECT COALESCE(SUM(rating), 0)::int8 AS sum,
               COUNT(*)::int8 AS count
        FROM ratings
        WHERE store_id = $1
    `

	agg := domain.RatingAggregate{StoreID: storeID}
	err := store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, storeID).Scan(&agg.Sum, &agg.Count)
	if err != nil {
		return domain.RatingAggregate{}, mapError(err, "aggregate ratings")
	}
	if agg.Count > 0 {
		avg := float64(agg.Sum) / float64(agg.Count)
		agg.Average = &avg
	}
	return agg, nil
}

// Get retrieves a rating for a specific user/store combination.
func (r *RatingsRepository) Get(ctx context.Context, storeID, userID uuid.UUID) (domain.Rating, error) {
	const query = `
        SELECT user_id, store_id, rating, created_at, updated_at
        FROM ratings
        WHERE store_id = $1 AND user_id = $2
    `
	var rating domain.Rating
	err := store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, storeID, userID).Scan(
		&rating.UserID,
		&rating.StoreID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		return domain.Rating{}, mapError(err, "get rating")
	}
	return rating, nil
}

// ListForStore returns every rating of a store with the rater's name and email,
// most recently updated first.
func (r *RatingsRepository) ListForStore(ctx context.Context, storeID uuid.UUID) ([]domain.RaterRating, error) {
	const query = `
        SELECT r.user_id, r.store_id, r.rating, r.created_at, r.updated_at, u.name, u.email
        FROM ratings r
        JOIN users u ON u.id = r.user_id
        WHERE r.store_id = $1
        ORDER BY r.updated_at DESC, r.user_id
    `
	rows, err := store.QuerierFromCtx(ctx, r.pool).Query(ctx, query, storeID)
	if err != nil {
		return nil, mapError(err, "list ratings")
	}
	defer rows.Close()

	results := make([]domain.RaterRating, 0)
	for rows.Next() {
		var item domain.RaterRating
		if err := rows.Scan(
			&item.UserID,
			&item.StoreID,
			&item.Value,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.UserName,
			&item.UserEmail,
		); err != nil {
			return nil, mapError(err, "scan rating")
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list ratings")
	}
	return results, nil
}
