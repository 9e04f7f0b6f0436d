package filtering

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/centraunit/corekit/logging"
	"github.com/centraunit/corekit/metrics"
)

type cacheKey struct {
	typ TypeID
	op  Operation
}

// GlobalHost holds filters registered on types. A type's effective chain is
// the union of its own filters and those of all its ancestors, stably
// sorted by Order. Chains are derived lazily and cached until the next
// type-level change.
type GlobalHost struct {
	mu         sync.Mutex
	types      *TypeRegistry
	hosts      map[TypeID]*Host
	cache      map[cacheKey][]Filter
	generation uint64
	// typesGen is the registry generation the cache was built against.
	typesGen uint64
	version  atomic.Uint64

	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewGlobalHost returns an empty host. Without WithTypeRegistry it uses a
// private registry.
func NewGlobalHost(opts ...HostOption) *GlobalHost {
	o := buildOptions(opts)
	if o.types == nil {
		o.types = NewTypeRegistry()
	}
	return &GlobalHost{
		types:    o.types,
		hosts:    make(map[TypeID]*Host),
		cache:    make(map[cacheKey][]Filter),
		typesGen: o.types.Generation(),
		log:      o.log,
		metrics:  o.metrics,
	}
}

// Types returns the registry consulted for ancestry.
func (g *GlobalHost) Types() *TypeRegistry {
	return g.types
}

// Version increases on every successful type-level registration change.
func (g *GlobalHost) Version() uint64 {
	return g.version.Load()
}

// DeclareType records the parents of t and drops every cached chain.
func (g *GlobalHost) DeclareType(t TypeID, parents ...TypeID) {
	g.types.Declare(t, parents...)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.invalidate()
}

// AddTypeFilters registers provider on t. It reports whether anything
// changed; duplicates are logged and ignored.
func (g *GlobalHost) AddTypeFilters(t TypeID, provider Provider) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	host, ok := g.hosts[t]
	if !ok {
		host = newHost(g.log.WithFields(logrus.Fields{"type": string(t)}), nil)
		g.hosts[t] = host
	}
	if !host.AddFilters(provider) {
		return false
	}
	g.changed()
	return true
}

// RemoveTypeFilters unregisters provider from t. Unknown providers are
// logged and ignored.
func (g *GlobalHost) RemoveTypeFilters(t TypeID, provider Provider) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	host, ok := g.hosts[t]
	if !ok {
		g.log.InvalidArgument(logging.LevelWarning, "missing filter provider",
			logrus.Fields{"type": string(t), "provider": providerFields(provider)["provider"]})
		return false
	}
	if !host.RemoveFilters(provider) {
		return false
	}
	g.changed()
	return true
}

// TypeFilters returns the effective type-level chain of t for op. The slice
// is shared and must not be modified.
func (g *GlobalHost) TypeFilters(t TypeID, op Operation) []Filter {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.typeFilters(t, op)
}

// HasFilters reports whether instance would see any filter for op.
func (g *GlobalHost) HasFilters(instance any, op Operation) bool {
	if f, ok := instance.(Filterable); ok {
		if h := f.OperationFilterHost(); h != nil && h.HasInstanceFilters(op) {
			return true
		}
	}
	return len(g.TypeFilters(TypeOfValue(instance), op)) != 0
}

// Process dispatches op for instance: its own filters merged with its
// type's chain, then ctx.Finalize. Filters run without any host lock held,
// so they may register or remove filters.
func (g *GlobalHost) Process(instance any, op Operation, ctx Context) {
	typed := g.TypeFilters(TypeOfValue(instance), op)

	var own []Filter
	if f, ok := instance.(Filterable); ok {
		if h := f.OperationFilterHost(); h != nil {
			own = h.InstanceFilters(op)
		}
	}

	g.metrics.Dispatched(string(op))
	processMerged(own, typed, ctx)
	ctx.Finalize()
}

func (g *GlobalHost) typeFilters(t TypeID, op Operation) []Filter {
	if gen := g.types.Generation(); gen != g.typesGen {
		g.invalidate()
		g.typesGen = gen
	}

	key := cacheKey{typ: t, op: op}
	if filters, ok := g.cache[key]; ok {
		g.metrics.CacheHit()
		return filters
	}
	g.metrics.CacheMiss()

	var filters []Filter
	for _, a := range g.types.Ancestors(t) {
		if host, ok := g.hosts[a]; ok {
			filters = append(filters, host.InstanceFilters(op)...)
		}
	}
	sort.SliceStable(filters, func(i, j int) bool {
		return filters[i].Order() < filters[j].Order()
	})
	g.cache[key] = filters
	return filters
}

// changed must be called with g.mu held.
func (g *GlobalHost) changed() {
	g.invalidate()
	g.metrics.SetVersion(g.version.Add(1))
}

func (g *GlobalHost) invalidate() {
	g.generation++
	clear(g.cache)
	g.log.Trace("filter cache cleared", logrus.Fields{"generation": g.generation})
}
