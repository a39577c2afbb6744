package store_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/store-rating/internal/config"
	"github.com/Clark-Hu/store-rating/internal/store"
	"github.com/Clark-Hu/store-rating/internal/store/storetest"
)

func TestMain(m *testing.M) {
	os.Exit(storetest.Run(m))
}

func TestNew_ConnectsAndChecksHealth(t *testing.T) {
	pool := storetest.NewPool(t)
	dsn := pool.Config().ConnString()

	ctx := context.Background()
	st, err := store.New(ctx, dsn, store.Options{MaxConns: 4, ConnTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.HealthCheck(ctx))
	assert.NotNil(t, st.Stats())
	// second run is a no-op
	require.NoError(t, st.Migrate(ctx))
}

func TestPoolCollector(t *testing.T) {
	pool := storetest.NewPool(t)
	ctx := context.Background()
	st, err := store.New(ctx, pool.Config().ConnString(), store.Options{MaxConns: 4, ConnTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.HealthCheck(ctx))

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(store.NewPoolCollector(st)))

	families, err := registry.Gather()
	require.NoError(t, err)
	values := make(map[string]float64, len(families))
	for _, family := range families {
		metric := family.GetMetric()[0]
		switch {
		case metric.GetGauge() != nil:
			values[family.GetName()] = metric.GetGauge().GetValue()
		case metric.GetCounter() != nil:
			values[family.GetName()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(4), values["db_pool_max_conns"])
	assert.GreaterOrEqual(t, values["db_pool_total_conns"], float64(1))
	assert.GreaterOrEqual(t, values["db_pool_acquires_total"], float64(1))
	assert.Contains(t, values, "db_pool_idle_conns")
}

func TestPoolCollector_ClosedStoreCollectsNothing(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(store.NewPoolCollector(nil)))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := store.New(context.Background(), "://bad", store.Options{})
	require.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := store.OptionsFromConfig(config.Config{
		DBMaxConns:        12,
		DBMinConns:        3,
		DBMaxIdleSecs:     60,
		DBMaxLifeSecs:     600,
		DBConnTimeoutSecs: 4,
		DBStatementCache:  128,
	}, nil)

	assert.Equal(t, int32(12), opts.MaxConns)
	assert.Equal(t, int32(3), opts.MinConns)
	assert.Equal(t, time.Minute, opts.MaxConnIdleTime)
	assert.Equal(t, 10*time.Minute, opts.MaxConnLifetime)
	assert.Equal(t, 4*time.Second, opts.ConnTimeout)
	assert.Equal(t, 128, opts.StatementCacheCapacity)
}

func TestMigrate_CreatesSchema(t *testing.T) {
	pool := storetest.NewPool(t)

	var count int
	err := pool.QueryRow(context.Background(), `
        SELECT COUNT(*) FROM information_schema.tables
        WHERE table_schema = 'public' AND table_name IN ('users', 'stores', 'ratings')
    `).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunInTx_CommitAndRollback(t *testing.T) {
	pool := storetest.NewPool(t)
	ctx := context.Background()
	_, err := pool.Exec(ctx, `CREATE TABLE tx_probe (v int)`)
	require.NoError(t, err)

	tm := store.NewTxManager(pool)

	err = tm.RunInTx(ctx, pgx.TxOptions{}, func(ctx context.Context) error {
		assert.True(t, store.InTx(ctx))
		_, err := store.QuerierFromCtx(ctx, pool).Exec(ctx, `INSERT INTO tx_probe VALUES (1)`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.RunInTx(ctx, pgx.TxOptions{}, func(ctx context.Context) error {
		if _, err := store.QuerierFromCtx(ctx, pool).Exec(ctx, `INSERT INTO tx_probe VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM tx_probe`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRunInTx_RejectsNesting(t *testing.T) {
	pool := storetest.NewPool(t)
	tm := store.NewTxManager(pool)

	err := tm.RunInTx(context.Background(), pgx.TxOptions{}, func(ctx context.Context) error {
		return tm.RunInTx(ctx, pgx.TxOptions{}, func(context.Context) error { return nil })
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")
}

func TestRunInTx_PanicRollsBack(t *testing.T) {
	pool := storetest.NewPool(t)
	ctx := context.Background()
	_, err := pool.Exec(ctx, `CREATE TABLE tx_panic (v int)`)
	require.NoError(t, err)

	tm := store.NewTxManager(pool)
	assert.Panics(t, func() {
		_ = tm.RunInTx(ctx, pgx.TxOptions{}, func(ctx context.Context) error {
			_, _ = store.QuerierFromCtx(ctx, pool).Exec(ctx, `INSERT INTO tx_panic VALUES (1)`)
			panic("boom")
		})
	})

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM tx_panic`).Scan(&count))
	assert.Equal(t, 0, count)
}
