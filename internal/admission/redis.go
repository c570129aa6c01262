package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avgwguard/internal/config"
	"github.com/vyrodovalexey/avgwguard/internal/observability"
)

// admissionTracerName is the OTEL tracer used for store operations.
const admissionTracerName = "avgwguard/admission"

// Operation labels shared by metrics, spans, and logs.
const (
	opInsert     = "insert"
	opBulkInsert = "bulk_insert"
	opRead       = "read"
	opReadAll    = "read_all"
)

// RedisStore persists admission statuses in a single Redis hash: one
// field per IP, the raw status code as the field value. All commands
// run through a circuit breaker; an open breaker behaves like any
// other storage failure.
type RedisStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	table   string
	logger  observability.Logger
	metrics *Metrics
}

// RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisLogger sets the logger.
func WithRedisLogger(logger observability.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

// WithRedisMetrics sets the metrics recorder.
func WithRedisMetrics(metrics *Metrics) RedisStoreOption {
	return func(s *RedisStore) {
		s.metrics = metrics
	}
}

// NewRedisStore connects to Redis and verifies the connection with a
// ping before returning. table falls back to DefaultTable when empty.
func NewRedisStore(cfg *config.RedisConfig, table string, opts ...RedisStoreOption) (*RedisStore, error) {
	if cfg == nil {
		return nil, errors.New("redis configuration is required")
	}
	if table == "" {
		table = DefaultTable
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout.Duration(),
		ReadTimeout:  cfg.ReadTimeout.Duration(),
		WriteTimeout: cfg.WriteTimeout.Duration(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	s := &RedisStore{
		client: client,
		table:  table,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "admission-redis",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("admission store circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})

	s.logger.Info("redis admission store initialized",
		observability.String("address", cfg.Address),
		observability.String("table", table),
	)

	return s, nil
}

// startSpan opens a client span for one store operation.
func (s *RedisStore) startSpan(ctx context.Context, name, operation string) (context.Context, trace.Span) {
	return otel.Tracer(admissionTracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", operation),
			attribute.String("admission.table", s.table),
		),
	)
}

// observe records one operation outcome when metrics are configured.
func (s *RedisStore) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordOperation(operation, err, time.Since(start))
	}
}

// failOpen accounts for a swallowed read-side failure.
func (s *RedisStore) failOpen(operation string, span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	if s.metrics != nil {
		s.metrics.RecordFailOpen(operation)
	}
	s.logger.Warn("admission read failed open",
		observability.String("operation", operation),
		observability.Error(err),
	)
}

// Insert upserts the status for one IP.
func (s *RedisStore) Insert(ctx context.Context, ip string, status Status) error {
	ctx, span := s.startSpan(ctx, "admission.Insert", opInsert)
	defer span.End()

	start := time.Now()
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.HSet(ctx, s.table, ip, strconv.Itoa(int(status.Code()))).Err()
	})
	s.observe(opInsert, start, err)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.logger.Error("admission insert failed",
			observability.String("ip", ip),
			observability.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.logger.Debug("admission status stored",
		observability.String("ip", ip),
		observability.String("status", status.String()),
	)
	return nil
}

// BulkInsert upserts all records in a single HSET. An empty batch is a
// no-op because HSET requires at least one field/value pair.
func (s *RedisStore) BulkInsert(ctx context.Context, records []Record) error {
	ctx, span := s.startSpan(ctx, "admission.BulkInsert", opBulkInsert)
	span.SetAttributes(attribute.Int("admission.batch_size", len(records)))
	defer span.End()

	if len(records) == 0 {
		return nil
	}

	// Later pairs overwrite earlier ones for the same field, so
	// duplicate IPs within the batch resolve last-wins on the server.
	pairs := make([]interface{}, 0, len(records)*2)
	for _, r := range records {
		pairs = append(pairs, r.IP, strconv.Itoa(int(r.Status)))
	}

	start := time.Now()
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.HSet(ctx, s.table, pairs...).Err()
	})
	s.observe(opBulkInsert, start, err)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.logger.Error("admission bulk insert failed",
			observability.Int("count", len(records)),
			observability.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.logger.Debug("admission statuses stored",
		observability.Int("count", len(records)),
	)
	return nil
}

// Read reports the status recorded for ip. A missing entry is a clean
// StatusNone; transport failures and unparseable stored values also
// report StatusNone but are counted as fail-open.
func (s *RedisStore) Read(ctx context.Context, ip string) Status {
	ctx, span := s.startSpan(ctx, "admission.Read", opRead)
	defer span.End()

	start := time.Now()
	result, err := s.breaker.Execute(func() (interface{}, error) {
		val, getErr := s.client.HGet(ctx, s.table, ip).Result()
		if errors.Is(getErr, redis.Nil) {
			// A miss is a valid outcome, not a backend failure.
			return nil, nil
		}
		if getErr != nil {
			return nil, getErr
		}
		return val, nil
	})
	s.observe(opRead, start, err)

	status := StatusNone
	switch {
	case err != nil:
		s.failOpen(opRead, span, err)
	case result != nil:
		raw := result.(string)
		code, perr := strconv.ParseInt(raw, 10, 8)
		if perr != nil {
			s.failOpen(opRead, span, fmt.Errorf("unparseable status %q for %s: %w", raw, ip, perr))
		} else {
			status = FromCode(int8(code))
		}
	}

	span.SetAttributes(attribute.String("admission.status", status.String()))
	if s.metrics != nil {
		s.metrics.RecordLookup(status)
	}
	return status
}

// ReadAll reports every recorded mapping as raw codes. Any failure,
// including a single unparseable stored value, reports an empty
// non-nil map.
func (s *RedisStore) ReadAll(ctx context.Context) map[string]int8 {
	ctx, span := s.startSpan(ctx, "admission.ReadAll", opReadAll)
	defer span.End()

	start := time.Now()
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.HGetAll(ctx, s.table).Result()
	})
	s.observe(opReadAll, start, err)

	if err != nil {
		s.failOpen(opReadAll, span, err)
		return map[string]int8{}
	}

	raw := result.(map[string]string)
	statuses := make(map[string]int8, len(raw))
	for ip, val := range raw {
		code, perr := strconv.ParseInt(val, 10, 8)
		if perr != nil {
			s.failOpen(opReadAll, span, fmt.Errorf("unparseable status %q for %s: %w", val, ip, perr))
			return map[string]int8{}
		}
		statuses[ip] = int8(code)
	}

	span.SetAttributes(attribute.Int("admission.count", len(statuses)))
	return statuses
}

// Ping verifies the backend connection, for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	s.logger.Info("redis admission store closing")
	return s.client.Close()
}
