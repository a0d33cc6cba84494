package lock

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-devlock/v1/canonical"
	devlockerrors "github.com/mirkobrombin/go-devlock/v1/errors"
	"github.com/mirkobrombin/go-devlock/v1/metrics"
	"github.com/mirkobrombin/go-devlock/v1/scope"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-devlock/v1/lock")

// Broker derives lock identities and acquires them through a Backend. It
// shares one isolation scope across all requests in the process; the scope
// is created lazily by the first acquisition.
type Broker struct {
	scope   *scope.Manager
	backend Backend
	log     *slog.Logger

	names          *ristretto.Cache
	metricsEnabled bool
	traceEnabled   bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithLogger sets the structured logger used on failure paths.
func WithLogger(l *slog.Logger) BrokerOption {
	return func(b *Broker) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection using the provided registerer.
func WithMetrics(reg prometheus.Registerer) BrokerOption {
	return func(b *Broker) {
		metrics.RegisterLockMetrics(reg)
		b.metricsEnabled = true
	}
}

// WithTracing enables OpenTelemetry spans around acquisitions.
func WithTracing() BrokerOption {
	return func(b *Broker) {
		b.traceEnabled = true
	}
}

// WithNameCache memoizes pool name to identity derivations, skipping
// normalization and hashing for hot pool names. Safe because the derivation
// is a pure function of the name.
func WithNameCache() BrokerOption {
	return func(b *Broker) {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e4,
			MaxCost:     1 << 18,
			BufferItems: 64,
		})
		if err != nil {
			panic(err)
		}
		b.names = cache
	}
}

// NewBroker creates a Broker over the given scope manager and backend.
func NewBroker(m *scope.Manager, backend Backend, opts ...BrokerOption) *Broker {
	b := &Broker{
		scope:   m,
		backend: backend,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AcquirePool blocks until the lock for the named pool is owned, and returns
// a handle the caller must release exactly once. Cancellation and timeouts
// are layered through ctx; with a background context the wait is unbounded.
func (b *Broker) AcquirePool(ctx context.Context, poolName string) (*Handle, error) {
	var span trace.Span
	if b.traceEnabled {
		ctx, span = tracer.Start(ctx, "Broker.AcquirePool",
			trace.WithAttributes(attribute.String("devlock.pool", poolName)))
		defer span.End()
	}
	if err := b.scope.Ensure(); err != nil {
		return nil, err
	}
	identity, err := b.poolIdentity(poolName)
	if err != nil {
		return nil, err
	}
	if b.traceEnabled {
		span.SetAttributes(attribute.String("devlock.identity", identity))
	}
	return b.acquire(ctx, identity)
}

// AcquireInstallation blocks until the driver installation critical section
// is owned. Its identity is fixed and independent of any pool name.
func (b *Broker) AcquireInstallation(ctx context.Context) (*Handle, error) {
	var span trace.Span
	if b.traceEnabled {
		ctx, span = tracer.Start(ctx, "Broker.AcquireInstallation")
		defer span.End()
	}
	if err := b.scope.Ensure(); err != nil {
		return nil, err
	}
	return b.acquire(ctx, InstallationIdentity)
}

// PoolIdentity returns the stable lock identity derived from poolName. The
// result is identical across calls, processes, and Unicode-equivalent
// spellings of the same name.
func (b *Broker) PoolIdentity(poolName string) (string, error) {
	if err := b.scope.Ensure(); err != nil {
		return "", err
	}
	return b.poolIdentity(poolName)
}

func (b *Broker) poolIdentity(poolName string) (string, error) {
	if b.names != nil {
		if v, ok := b.names.Get(poolName); ok {
			if id, ok := v.(string); ok {
				return id, nil
			}
		}
	}
	name, err := canonical.Canonicalize(poolName)
	if err != nil {
		b.log.Error("devlock: canonicalizing pool name failed", "pool", poolName, "error", err)
		return "", err
	}
	sum, err := b.scope.Provider().Digest(name)
	if err != nil {
		b.log.Error("devlock: hashing pool name failed", "pool", poolName, "error", err)
		return "", err
	}
	identity := PoolMutexPrefix + hex.EncodeToString(sum[:])
	if b.names != nil {
		b.names.Set(poolName, identity, int64(len(identity)))
	}
	return identity, nil
}

func (b *Broker) acquire(ctx context.Context, identity string) (*Handle, error) {
	start := time.Now()
	releaser, err := b.backend.Acquire(ctx, identity)
	if err != nil {
		if b.metricsEnabled {
			metrics.AcquireFailures.Inc()
		}
		b.log.Error("devlock: acquiring lock failed", "identity", identity, "error", err)
		return nil, &devlockerrors.LockError{Identity: identity, Err: err}
	}
	if b.metricsEnabled {
		metrics.WaitSeconds.Observe(time.Since(start).Seconds())
		metrics.AcquireCounter.Inc()
		metrics.HeldGauge.Inc()
	}
	h := &Handle{identity: identity, releaser: releaser}
	if b.metricsEnabled {
		h.onRelease = func() {
			metrics.ReleaseCounter.Inc()
			metrics.HeldGauge.Dec()
		}
	}
	return h, nil
}
