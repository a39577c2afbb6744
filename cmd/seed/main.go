package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-rating/internal/catalog"
	"github.com/Clark-Hu/store-rating/internal/config"
	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/logging"
	"github.com/Clark-Hu/store-rating/internal/repository"
	"github.com/Clark-Hu/store-rating/internal/store"
)

const (
	demoOwnerName     = "Demo Store Owner Account"
	demoOwnerEmail    = "owner@demo.example.com"
	demoOwnerPassword = "Demo#Owner1"
	demoStoreName     = "Demo Corner Store"
	demoStoreEmail    = "store@demo.example.com"
	demoAddress       = "1 Demo Street"
)

type seedOptions struct {
	adminName     string
	adminEmail    string
	adminPassword string
	adminAddress  string
	demo          bool
	skipMigrate   bool
}

type seedReport struct {
	adminCreated bool
	ownerCreated bool
	storeCreated bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial administrator account",
		Long: `Applies pending migrations and creates the administrator account used to
bootstrap the portal. With --demo it also creates a store owner and a store.
Existing accounts and stores are left untouched, so the command can be re-run.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.adminName, "admin-name", "Portal Administrator Account", "administrator display name (20-60 characters)")
	flags.StringVar(&opts.adminEmail, "admin-email", "admin@example.com", "administrator email")
	flags.StringVar(&opts.adminPassword, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "administrator password (defaults to $SEED_ADMIN_PASSWORD)")
	flags.StringVar(&opts.adminAddress, "admin-address", "", "administrator address")
	flags.BoolVar(&opts.demo, "demo", false, "also create a demo store owner and store")
	flags.BoolVar(&opts.skipMigrate, "skip-migrate", false, "do not apply migrations before seeding")
	return cmd
}

func runSeed(ctx context.Context, opts seedOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger, err := logging.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	if !opts.skipMigrate {
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	repo := repository.New(st)
	report, err := seed(ctx, repo, catalog.NewService(repo, cfg.BcryptCost, logger), opts, logger)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		zap.Bool("admin_created", report.adminCreated),
		zap.Bool("owner_created", report.ownerCreated),
		zap.Bool("store_created", report.storeCreated),
	)
	return nil
}

func seed(ctx context.Context, repo *repository.Repository, svc *catalog.Service, opts seedOptions, logger *zap.Logger) (seedReport, error) {
	var report seedReport

	_, created, err := ensureUser(ctx, repo, svc, catalog.CreateUserInput{
		Name:     opts.adminName,
		Email:    opts.adminEmail,
		Address:  opts.adminAddress,
		Password: opts.adminPassword,
		Role:     domain.RoleAdmin,
	}, logger)
	if err != nil {
		return report, fmt.Errorf("seed admin: %w", err)
	}
	report.adminCreated = created

	if !opts.demo {
		return report, nil
	}

	owner, created, err := ensureUser(ctx, repo, svc, catalog.CreateUserInput{
		Name:     demoOwnerName,
		Email:    demoOwnerEmail,
		Address:  demoAddress,
		Password: demoOwnerPassword,
		Role:     domain.RoleStoreOwner,
	}, logger)
	if err != nil {
		return report, fmt.Errorf("seed demo owner: %w", err)
	}
	report.ownerCreated = created

	_, err = svc.CreateStore(ctx, catalog.CreateStoreInput{
		Name:    demoStoreName,
		Email:   demoStoreEmail,
		Address: demoAddress,
		OwnerID: owner.ID,
	})
	switch {
	case err == nil:
		report.storeCreated = true
	case errors.Is(err, domain.ErrAlreadyExists):
		logger.Info("demo store already exists", zap.String("owner_id", owner.ID.String()))
	default:
		return report, fmt.Errorf("seed demo store: %w", err)
	}
	return report, nil
}

// ensureUser returns the account registered under input.Email, creating it
// when missing.
func ensureUser(ctx context.Context, repo *repository.Repository, svc *catalog.Service, input catalog.CreateUserInput, logger *zap.Logger) (domain.User, bool, error) {
	existing, err := repo.Users.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		if existing.Role != input.Role {
			logger.Warn("existing account has a different role",
				zap.String("email", existing.Email),
				zap.String("role", string(existing.Role)),
				zap.String("wanted", string(input.Role)),
			)
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.User{}, false, err
	}

	user, err := svc.CreateUser(ctx, input)
	if err != nil {
		return domain.User{}, false, err
	}
	logger.Info("account created", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return user, true, nil
}
