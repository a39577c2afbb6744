// Package aggregation maintains each store's average rating. It is the only
// writer of stores.average_rating and stores.rating_count.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-rating/internal/config"
	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/repository"
	"github.com/Clark-Hu/store-rating/internal/store"
)

// Steps of the rating transaction, in execution order.
const (
	stepLocked     = "locked"
	stepUpserted   = "upserted"
	stepRecomputed = "recomputed"
	stepWritten    = "written"
)

const (
	defaultMaxAttempts = 5
	defaultRetryBase   = 20 * time.Millisecond
)

// Options tunes the rating transaction.
type Options struct {
	// MaxAttempts bounds how many times one submission runs its transaction.
	MaxAttempts int
	// RetryBase is the first backoff interval between attempts.
	RetryBase time.Duration
	// LockTimeout bounds the wait for the store row lock; zero waits until ctx ends.
	LockTimeout time.Duration
	// Isolation is the transaction isolation level. The store row lock already
	// serializes writers, so read committed is sufficient.
	Isolation pgx.TxIsoLevel
	Logger    *zap.Logger
	Metrics   *Metrics
}

// OptionsFromConfig maps the RATING_* settings onto Options.
func OptionsFromConfig(cfg config.Config, logger *zap.Logger, metrics *Metrics) Options {
	return Options{
		MaxAttempts: cfg.RatingMaxAttempts,
		RetryBase:   time.Duration(cfg.RatingRetryBaseMillis) * time.Millisecond,
		LockTimeout: time.Duration(cfg.RatingLockTimeoutMillis) * time.Millisecond,
		Isolation:   ParseIsolation(cfg.RatingIsolation),
		Logger:      logger,
		Metrics:     metrics,
	}
}

// ParseIsolation converts a RATING_ISOLATION value into a pgx isolation level.
func ParseIsolation(value string) pgx.TxIsoLevel {
	if value == config.IsolationSerializable {
		return pgx.Serializable
	}
	return pgx.ReadCommitted
}

// SubmitResult describes a committed rating submission.
type SubmitResult struct {
	Rating    domain.Rating
	Inserted  bool
	Aggregate domain.RatingAggregate
}

// Service runs rating submissions.
type Service struct {
	tx      *store.TxManager
	stores  *repository.StoresRepository
	ratings *repository.RatingsRepository
	opts    Options
	logger  *zap.Logger

	// afterStep runs after each step inside the transaction; a non-nil
	// error aborts it. Tests use it to inject failures.
	afterStep func(ctx context.Context, step string) error
}

// NewService builds a Service on top of the given transaction manager and repositories.
func NewService(tx *store.TxManager, repo *repository.Repository, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.Isolation == "" {
		opts.Isolation = pgx.ReadCommitted
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tx:      tx,
		stores:  repo.Stores,
		ratings: repo.Ratings,
		opts:    opts,
		logger:  logger.Named("aggregation"),
	}
}

// SubmitOrUpdateRating records userID's rating of storeID and recomputes the
// store's average in the same transaction. The first call for a pair inserts
// the rating, later calls overwrite it. Calls for one store are serialized by
// a row lock on the store; calls for different stores do not contend.
//
// Errors wrap domain.ErrValidation, domain.ErrStoreNotFound, domain.ErrForbidden
// (owner rating their own store), domain.ErrTransientConflict (retries
// exhausted), domain.ErrStorageFailure, or the context's error. On any error
// nothing is committed.
func (s *Service) SubmitOrUpdateRating(ctx context.Context, userID, storeID uuid.UUID, value int) (SubmitResult, error) {
	start := time.Now()
	result, err := s.submit(ctx, userID, storeID, value)
	s.opts.Metrics.observe(outcomeOf(result, err), time.Since(start))
	return result, err
}

func (s *Service) submit(ctx context.Context, userID, storeID uuid.UUID, value int) (SubmitResult, error) {
	if err := validateSubmission(userID, storeID, value); err != nil {
		return SubmitResult{}, err
	}

	st, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubmitResult{}, fmt.Errorf("submit rating: %w", domain.ErrStoreNotFound)
		}
		return SubmitResult{}, s.classify(ctx, err, 0)
	}
	if st.OwnerID == userID {
		return SubmitResult{}, fmt.Errorf("submit rating: owner cannot rate own store: %w", domain.ErrForbidden)
	}

	var (
		result   SubmitResult
		attempts int
	)
	operation := func() error {
		attempts++
		res, err := s.attempt(ctx, userID, storeID, value)
		if err == nil {
			result = res
			return nil
		}
		if ctx.Err() != nil || !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.opts.Metrics.retried()
		s.logger.Debug("retrying rating transaction",
			zap.String("store_id", storeID.String()),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, newBackOff(ctx, s.opts.RetryBase, s.opts.MaxAttempts), notify); err != nil {
		return SubmitResult{}, s.classify(ctx, err, attempts)
	}

	s.logger.Debug("rating committed",
		zap.String("store_id", storeID.String()),
		zap.String("user_id", userID.String()),
		zap.Bool("inserted", result.Inserted),
		zap.Int64("rating_count", result.Aggregate.Count),
		zap.Int("attempts", attempts),
	)
	return result, nil
}

// attempt runs the rating transaction once.
func (s *Service) attempt(ctx context.Context, userID, storeID uuid.UUID, value int) (SubmitResult, error) {
	var result SubmitResult
	err := s.tx.RunInTx(ctx, pgx.TxOptions{IsoLevel: s.opts.Isolation}, func(ctx context.Context) error {
		if err := store.SetLockTimeout(ctx, s.opts.LockTimeout); err != nil {
			return err
		}

		if _, err := s.stores.LockForUpdate(ctx, storeID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrStoreNotFound
			}
			return err
		}
		if err := s.step(ctx, stepLocked); err != nil {
			return err
		}

		rating, inserted, err := s.ratings.Upsert(ctx, repository.RatingUpsertParams{
			StoreID: storeID,
			UserID:  userID,
			Value:   value,
		})
		if err != nil {
			return err
		}
		if err := s.step(ctx, stepUpserted); err != nil {
			return err
		}

		agg, err := s.ratings.Aggregate(ctx, storeID)
		if err != nil {
			return err
		}
		if err := s.step(ctx, stepRecomputed); err != nil {
			return err
		}

		if err := s.stores.SetAggregate(ctx, agg); err != nil {
			return err
		}
		if err := s.step(ctx, stepWritten); err != nil {
			return err
		}

		result = SubmitResult{Rating: rating, Inserted: inserted, Aggregate: agg}
		return nil
	})
	return result, err
}

func (s *Service) step(ctx context.Context, name string) error {
	if s.afterStep == nil {
		return nil
	}
	return s.afterStep(ctx, name)
}

// classify maps a failed submission onto the service's error taxonomy.
func (s *Service) classify(ctx context.Context, err error, attempts int) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("submit rating: %w", ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("submit rating: %w", err)
	}
	if isRetryable(err) {
		s.logger.Warn("rating transaction retries exhausted", zap.Int("attempts", attempts), zap.Error(err))
		return fmt.Errorf("submit rating: %w after %d attempts: %w", domain.ErrTransientConflict, attempts, err)
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrForbidden):
		return fmt.Errorf("submit rating: %w", err)
	}
	s.logger.Error("rating transaction failed", zap.Error(err))
	return fmt.Errorf("submit rating: %w: %w", domain.ErrStorageFailure, err)
}

func validateSubmission(userID, storeID uuid.UUID, value int) error {
	var fields []domain.FieldError
	if userID == uuid.Nil {
		fields = append(fields, domain.FieldError{Field: "userId", Message: "is required"})
	}
	if storeID == uuid.Nil {
		fields = append(fields, domain.FieldError{Field: "storeId", Message: "is required"})
	}
	if err := domain.ValidateRating(value); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			fields = append(fields, vErr.Errors...)
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationErrors(fields)
	}
	return nil
}

func outcomeOf(result SubmitResult, err error) string {
	switch {
	case err == nil && result.Inserted:
		return outcomeInserted
	case err == nil:
		return outcomeUpdated
	case errors.Is(err, domain.ErrValidation):
		return outcomeInvalid
	case errors.Is(err, domain.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return outcomeForbidden
	case errors.Is(err, domain.ErrTransientConflict):
		return outcomeConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeError
	}
}
