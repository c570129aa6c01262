package admission

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avgwguard/internal/config"
)

// setupMiniRedis creates a miniredis server for testing.
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr
}

// newTestStore connects a RedisStore to mr with retries disabled.
func newTestStore(t *testing.T, mr *miniredis.Miniredis, table string, opts ...RedisStoreOption) *RedisStore {
	t.Helper()

	cfg := &config.RedisConfig{
		Address:    mr.Addr(),
		MaxRetries: -1,
	}

	store, err := NewRedisStore(cfg, table, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewRedisStore(t *testing.T) {
	mr := setupMiniRedis(t)

	tests := []struct {
		name      string
		cfg       *config.RedisConfig
		table     string
		expectErr bool
	}{
		{
			name: "valid config",
			cfg: &config.RedisConfig{
				Address:    mr.Addr(),
				MaxRetries: -1,
			},
			expectErr: false,
		},
		{
			name: "custom table",
			cfg: &config.RedisConfig{
				Address:    mr.Addr(),
				MaxRetries: -1,
			},
			table:     "custom_list",
			expectErr: false,
		},
		{
			name:      "nil config",
			cfg:       nil,
			expectErr: true,
		},
		{
			name: "connection failed",
			cfg: &config.RedisConfig{
				Address:    "localhost:59999", // nothing listens here
				MaxRetries: -1,
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewRedisStore(tt.cfg, tt.table)

			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, store)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, store)
			if tt.table == "" {
				assert.Equal(t, DefaultTable, store.table)
			} else {
				assert.Equal(t, tt.table, store.table)
			}
			_ = store.Close()
		})
	}
}

func TestRedisStore_InsertRead(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusTrusted))
	require.NoError(t, store.Insert(ctx, "10.0.0.2", StatusBlocked))

	assert.Equal(t, StatusTrusted, store.Read(ctx, "10.0.0.1"))
	assert.Equal(t, StatusBlocked, store.Read(ctx, "10.0.0.2"))
	assert.Equal(t, StatusNone, store.Read(ctx, "10.0.0.3"))

	// The hash holds raw decimal codes under the default table.
	assert.Equal(t, "0", mr.HGet(DefaultTable, "10.0.0.1"))
	assert.Equal(t, "1", mr.HGet(DefaultTable, "10.0.0.2"))
}

func TestRedisStore_Insert_Overwrites(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusTrusted))
	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusBlocked))

	assert.Equal(t, StatusBlocked, store.Read(ctx, "10.0.0.1"))
}

func TestRedisStore_CustomTable(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "edge_list")
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusBlocked))

	assert.Equal(t, "1", mr.HGet("edge_list", "10.0.0.1"))
	assert.False(t, mr.Exists(DefaultTable))
}

func TestRedisStore_Read_NormalizesStoredCodes(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	tests := []struct {
		name   string
		stored string
		want   Status
	}{
		{
			name:   "trusted code",
			stored: "0",
			want:   StatusTrusted,
		},
		{
			name:   "blocked code",
			stored: "1",
			want:   StatusBlocked,
		},
		{
			name:   "explicit none code",
			stored: "-1",
			want:   StatusNone,
		},
		{
			name:   "unknown code collapses to none",
			stored: "7",
			want:   StatusNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr.HSet(DefaultTable, "10.9.9.9", tt.stored)
			assert.Equal(t, tt.want, store.Read(ctx, "10.9.9.9"))
		})
	}
}

func TestRedisStore_Read_UnparseableValueFailsOpen(t *testing.T) {
	mr := setupMiniRedis(t)

	metrics := NewMetricsWithRegisterer("test", prometheus.NewRegistry())
	store := newTestStore(t, mr, "", WithRedisMetrics(metrics))

	mr.HSet(DefaultTable, "10.0.0.1", "not-a-number")

	assert.Equal(t, StatusNone, store.Read(context.Background(), "10.0.0.1"))

	counter, err := metrics.failOpenTotal.GetMetricWithLabelValues(opRead)
	require.NoError(t, err)

	var m io_prometheus_client.Metric
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}

func TestRedisStore_BulkInsert(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	records := []Record{
		{IP: "10.0.0.1", Status: 0},
		{IP: "10.0.0.2", Status: 1},
		{IP: "10.0.0.1", Status: 1}, // duplicate, later entry wins
		{IP: "10.0.0.3", Status: -1},
	}
	require.NoError(t, store.BulkInsert(ctx, records))

	assert.Equal(t, map[string]int8{
		"10.0.0.1": 1,
		"10.0.0.2": 1,
		"10.0.0.3": -1,
	}, store.ReadAll(ctx))
}

func TestRedisStore_BulkInsert_Empty(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")

	require.NoError(t, store.BulkInsert(context.Background(), nil))
	assert.False(t, mr.Exists(DefaultTable))
}

func TestRedisStore_BulkInsert_RawCodesStoredUnnormalized(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	require.NoError(t, store.BulkInsert(ctx, []Record{{IP: "10.0.0.1", Status: 99}}))

	// The raw code passes through storage untouched; only single reads
	// normalize.
	assert.Equal(t, "99", mr.HGet(DefaultTable, "10.0.0.1"))
	assert.Equal(t, map[string]int8{"10.0.0.1": 99}, store.ReadAll(ctx))
	assert.Equal(t, StatusNone, store.Read(ctx, "10.0.0.1"))
}

func TestRedisStore_ReadAll_Empty(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")

	out := store.ReadAll(context.Background())
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRedisStore_ReadAll_UnparseableValueFailsOpen(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusTrusted))
	mr.HSet(DefaultTable, "10.0.0.2", "garbage")

	out := store.ReadAll(ctx)
	require.NotNil(t, out)
	assert.Empty(t, out, "one bad value voids the whole snapshot")
}

func TestRedisStore_WriteFailuresWrapErrStorage(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	mr.SetError("simulated backend failure")

	err := store.Insert(ctx, "10.0.0.1", StatusTrusted)
	assert.ErrorIs(t, err, ErrStorage)

	err = store.BulkInsert(ctx, []Record{{IP: "10.0.0.1", Status: 0}})
	assert.ErrorIs(t, err, ErrStorage)
}

func TestRedisStore_ReadsFailOpenDuringOutage(t *testing.T) {
	mr := setupMiniRedis(t)

	metrics := NewMetricsWithRegisterer("test", prometheus.NewRegistry())
	store := newTestStore(t, mr, "", WithRedisMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusBlocked))

	mr.SetError("simulated backend failure")

	assert.Equal(t, StatusNone, store.Read(ctx, "10.0.0.1"))

	out := store.ReadAll(ctx)
	require.NotNil(t, out)
	assert.Empty(t, out)

	var m io_prometheus_client.Metric

	counter, err := metrics.failOpenTotal.GetMetricWithLabelValues(opRead)
	require.NoError(t, err)
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())

	counter, err = metrics.failOpenTotal.GetMetricWithLabelValues(opReadAll)
	require.NoError(t, err)
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}

func TestRedisStore_ReadsFailOpenWithBreakerOpen(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	mr.SetError("simulated backend failure")

	// Enough consecutive failures to trip the breaker; the API shape
	// must not change once it opens.
	for i := 0; i < 10; i++ {
		assert.Equal(t, StatusNone, store.Read(ctx, "10.0.0.1"))
	}

	out := store.ReadAll(ctx)
	require.NotNil(t, out)
	assert.Empty(t, out)

	err := store.Insert(ctx, "10.0.0.1", StatusTrusted)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestRedisStore_ServerGone(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusTrusted))

	mr.Close()

	assert.Equal(t, StatusNone, store.Read(ctx, "10.0.0.1"))
	assert.Empty(t, store.ReadAll(ctx))
	assert.ErrorIs(t, store.Insert(ctx, "10.0.0.2", StatusBlocked), ErrStorage)
}

func TestRedisStore_OperationMetrics(t *testing.T) {
	mr := setupMiniRedis(t)

	metrics := NewMetricsWithRegisterer("test", prometheus.NewRegistry())
	store := newTestStore(t, mr, "", WithRedisMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "10.0.0.1", StatusTrusted))
	store.Read(ctx, "10.0.0.1")
	store.Read(ctx, "10.0.0.2")

	var m io_prometheus_client.Metric

	counter, err := metrics.operationsTotal.GetMetricWithLabelValues(opInsert, "success")
	require.NoError(t, err)
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())

	counter, err = metrics.operationsTotal.GetMetricWithLabelValues(opRead, "success")
	require.NoError(t, err)
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, float64(2), m.GetCounter().GetValue())

	counter, err = metrics.lookupResults.GetMetricWithLabelValues("trusted")
	require.NoError(t, err)
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())

	counter, err = metrics.lookupResults.GetMetricWithLabelValues("none")
	require.NoError(t, err)
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}

func TestRedisStore_Ping(t *testing.T) {
	mr := setupMiniRedis(t)
	store := newTestStore(t, mr, "")

	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
