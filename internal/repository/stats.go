package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/store"
)

// StatsRepository serves global counters.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// Counts returns the number of users, stores and ratings. A single statement
// keeps the three numbers on one snapshot.
func (r *StatsRepository) Counts(ctx context.Context) (domain.Counts, error) {
	const query = `
        SELECT (SELECT COUNT(*) FROM users),
               (SELECT COUNT(*) FROM stores),
               (SELECT COUNT(*) FROM ratings)
    `
	var c domain.Counts
	if err := store.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query).Scan(&c.Users, &c.Stores, &c.Ratings); err != nil {
		return domain.Counts{}, mapError(err, "global counts")
	}
	return c, nil
}
