package filtering

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/centraunit/corekit/logging"
	"github.com/centraunit/corekit/metrics"
)

// Filterable is implemented by objects that carry their own filters.
// GlobalHost merges them with the filters registered on the object's type.
type Filterable interface {
	OperationFilterHost() *Host
}

// HostOption configures a Host or a GlobalHost.
type HostOption func(*hostOptions)

type hostOptions struct {
	log     *logging.Logger
	metrics *metrics.Metrics
	types   *TypeRegistry
}

// WithHostLogger sets the logger used for registration warnings.
func WithHostLogger(l *logging.Logger) HostOption {
	return func(o *hostOptions) { o.log = l }
}

// WithHostMetrics enables dispatch and cache instrumentation.
func WithHostMetrics(m *metrics.Metrics) HostOption {
	return func(o *hostOptions) { o.metrics = m }
}

// WithTypeRegistry shares a type registry between global hosts.
// Ignored by Host.
func WithTypeRegistry(r *TypeRegistry) HostOption {
	return func(o *hostOptions) { o.types = r }
}

func buildOptions(opts []HostOption) hostOptions {
	var o hostOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Default()
	}
	o.log = o.log.WithSource("operation-filtering")
	return o
}

// Host holds filters registered on a single object.
// It is safe for concurrent use.
type Host struct {
	mu        sync.RWMutex
	handlers  map[Operation]*operationHandler
	providers map[Provider][]Filter
	log       *logging.Logger
	metrics   *metrics.Metrics
}

// NewHost returns an empty host.
func NewHost(opts ...HostOption) *Host {
	o := buildOptions(opts)
	return newHost(o.log, o.metrics)
}

func newHost(log *logging.Logger, m *metrics.Metrics) *Host {
	return &Host{
		handlers:  make(map[Operation]*operationHandler),
		providers: make(map[Provider][]Filter),
		log:       log,
		metrics:   m,
	}
}

// AddFilters registers the filters provider currently exposes. A provider
// already registered is reported as a warning and ignored. It reports
// whether the host changed.
func (h *Host) AddFilters(provider Provider) bool {
	if !validProvider(h.log, provider) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.providers[provider]; exists {
		h.log.InvalidArgument(logging.LevelWarning, "duplicate filter provider", providerFields(provider))
		return false
	}
	filters := provider.OperationFilters()
	if !validFilters(h.log, provider, filters) {
		return false
	}
	for _, filter := range filters {
		handler, ok := h.handlers[filter.Operation()]
		if !ok {
			handler = &operationHandler{}
			h.handlers[filter.Operation()] = handler
		}
		handler.add(filter)
	}
	h.providers[provider] = filters
	return true
}

// RemoveFilters unregisters provider. An unknown provider is reported as a
// warning and ignored. It reports whether the host changed.
func (h *Host) RemoveFilters(provider Provider) bool {
	if !validProvider(h.log, provider) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	filters, exists := h.providers[provider]
	if !exists {
		h.log.InvalidArgument(logging.LevelWarning, "missing filter provider", providerFields(provider))
		return false
	}
	for _, filter := range filters {
		if handler, ok := h.handlers[filter.Operation()]; ok {
			handler.remove(filter)
			if !handler.hasFilters() {
				delete(h.handlers, filter.Operation())
			}
		}
	}
	delete(h.providers, provider)
	return true
}

// HasFilters reports whether any filter is registered for op.
func (h *Host) HasFilters(op Operation) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[op]
	return ok && handler.hasFilters()
}

// HasInstanceFilters is HasFilters under the name GlobalHost looks for.
func (h *Host) HasInstanceFilters(op Operation) bool {
	return h.HasFilters(op)
}

// InstanceFilters returns the sorted filters for op. The slice is shared and
// must not be modified.
func (h *Host) InstanceFilters(op Operation) []Filter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if handler, ok := h.handlers[op]; ok {
		return handler.filters
	}
	return nil
}

// Process runs the filters for op, then ctx.Finalize.
func (h *Host) Process(op Operation, ctx Context) {
	h.metrics.Dispatched(string(op))
	processMerged(h.InstanceFilters(op), nil, ctx)
	ctx.Finalize()
}

func validProvider(log *logging.Logger, provider Provider) bool {
	if provider == nil {
		log.InvalidArgument(logging.LevelWarning, "nil filter provider")
		return false
	}
	if !reflect.TypeOf(provider).Comparable() {
		log.InvalidArgument(logging.LevelWarning, "filter provider is not comparable", providerFields(provider))
		return false
	}
	return true
}

// validFilters rejects nil filters and filters that cannot be matched on
// removal.
func validFilters(log *logging.Logger, provider Provider, filters []Filter) bool {
	for i, f := range filters {
		if f == nil {
			log.InvalidArgument(logging.LevelWarning, "nil filter", providerFields(provider))
			return false
		}
		if !reflect.TypeOf(f).Comparable() {
			log.InvalidArgument(logging.LevelWarning, "filter is not comparable", logrus.Fields{
				"provider": fmt.Sprintf("%T", provider),
				"filter":   fmt.Sprintf("%T", f),
				"index":    i,
			})
			return false
		}
	}
	return true
}

func providerFields(provider Provider) logrus.Fields {
	return logrus.Fields{"provider": fmt.Sprintf("%T", provider)}
}
