package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/centraunit/corekit/logging"
	"github.com/centraunit/corekit/metrics"
)

type loaderState int

const (
	stateIdle loaderState = iota
	stateLoading
	stateLoaded
	stateFailed
	stateShutdown
)

// ServiceLoader resolves the services declared in its collection.
// A loader is single-use: after Load returns it cannot load again.
type ServiceLoader struct {
	mu         sync.Mutex
	collection *ServiceCollection
	state      loaderState
	shared     *sharedLoadingContext
	log        *logging.Logger
	metrics    *metrics.Metrics
}

// Option configures a ServiceLoader.
type Option func(*ServiceLoader)

// WithLogger sets the logger. The default is logging.Default().
func WithLogger(l *logging.Logger) Option {
	return func(sl *ServiceLoader) {
		if l != nil {
			sl.log = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(sl *ServiceLoader) { sl.metrics = m }
}

// NewServiceLoader creates a loader with an empty collection.
func NewServiceLoader(opts ...Option) *ServiceLoader {
	sl := &ServiceLoader{
		collection: NewServiceCollection(),
		log:        logging.Default(),
	}
	for _, opt := range opts {
		opt(sl)
	}
	sl.log = sl.log.WithSource("service-loader")
	return sl
}

// Collection returns the collection to declare services on.
func (l *ServiceLoader) Collection() *ServiceCollection {
	return l.collection
}

// Load resolves every declared service concurrently. It returns once all of
// them are available, or with the first fatal error: *MissingDependencyError,
// *CircularDependencyError, *InitializationError (wrapping factory, boot and
// initializer failures as well as *NilServiceError), *ConcurrentRequireError,
// *UnrequestedResolutionError or ctx.Err().
// external, when not nil, satisfies dependencies that are not declared.
// A nil ctx is treated as context.Background().
func (l *ServiceLoader) Load(ctx context.Context, external ServiceProvider) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l.mu.Lock()
	if l.state != stateIdle {
		err := l.stateError()
		l.mu.Unlock()
		return err
	}
	l.state = stateLoading
	l.mu.Unlock()

	loadID := uuid.NewString()
	log := l.log.WithFields(logrus.Fields{"load_id": loadID})
	start := time.Now()

	shared := newSharedLoadingContext(ctx, l.collection, external, log, l.metrics)
	log.Debug("loading services", logrus.Fields{"count": len(shared.order)})
	shared.beginLoad()
	err := shared.finishLoading()
	l.metrics.ObserveLoad(start)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = stateFailed
		l.metrics.LoadFailed(failureReason(err))
		log.Log(logging.LevelFatal, "service load failed", logrus.Fields{logging.FieldError: err})
		return err
	}
	l.state = stateLoaded
	l.shared = shared
	log.Info("services loaded", logrus.Fields{"count": len(shared.resolved), "duration": time.Since(start)})
	return nil
}

func (l *ServiceLoader) stateError() error {
	if l.state == stateFailed {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrLoadFailed)
	}
	return ErrInvalidState
}

func failureReason(err error) string {
	var (
		cycle   *CircularDependencyError
		missing *MissingDependencyError
		initErr *InitializationError
	)
	switch {
	case errors.As(err, &cycle):
		return metrics.ReasonCycle
	case errors.As(err, &missing):
		return metrics.ReasonMissing
	case errors.As(err, &initErr):
		return metrics.ReasonInitialization
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ReasonCancelled
	default:
		return metrics.ReasonInternal
	}
}

// CreateServiceProvider returns a provider over the resolved services.
// Returns ErrInvalidState before a successful Load.
func (l *ServiceLoader) CreateServiceProvider() (ServiceProvider, error) {
	return l.createServiceProvider(false)
}

// CreateCombinedServiceProvider is like CreateServiceProvider but falls back
// to the external provider passed to Load.
func (l *ServiceLoader) CreateCombinedServiceProvider() (ServiceProvider, error) {
	return l.createServiceProvider(true)
}

func (l *ServiceLoader) createServiceProvider(combined bool) (ServiceProvider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateLoaded {
		return nil, l.stateError()
	}
	return l.shared.createServiceProvider(combined), nil
}

// ResolutionOrder returns the keys in the order their instances became
// available. It is empty before a successful Load.
func (l *ServiceLoader) ResolutionOrder() []ServiceKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shared == nil {
		return nil
	}
	out := make([]ServiceKey, len(l.shared.resolved))
	copy(out, l.shared.resolved)
	return out
}

// Shutdown calls OnShutdown on every resolved Lifecycle service in reverse
// resolution order. All services are visited; failures are returned together
// as *ShutdownError values inside a *multierror.Error.
func (l *ServiceLoader) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	if l.state != stateLoaded {
		err := l.stateError()
		l.mu.Unlock()
		return err
	}
	l.state = stateShutdown
	shared := l.shared
	l.mu.Unlock()

	var result *multierror.Error
	for i := len(shared.resolved) - 1; i >= 0; i-- {
		key := shared.resolved[i]
		svc, ok := shared.instances[key].(Lifecycle)
		if !ok {
			continue
		}
		if err := svc.OnShutdown(ctx); err != nil {
			l.log.Error("service shutdown failed", logrus.Fields{"service": key.String(), logging.FieldError: err})
			result = multierror.Append(result, &ShutdownError{Key: key, Err: err})
		}
	}
	return result.ErrorOrNil()
}
