// Package filtering dispatches named operations through ordered chains of
// filters. Filters are registered in bundles (providers) either on a single
// object (Host) or on a type and all of its descendants (GlobalHost).
package filtering

// Operation names a filtered operation.
type Operation string

// Context is threaded through every filter of one dispatch.
type Context interface {
	// Next reports whether the chain should continue.
	Next() bool
	// Finalize runs after the chain, whether or not it was cut short.
	Finalize()
}

// Filter intercepts one operation. Filters run in non-decreasing Order.
// Implementations must be comparable; pointer receivers are the norm.
type Filter interface {
	Operation() Operation
	Order() int
	Process(ctx Context)
}

// Provider supplies a bundle of filters. The list is read once, at
// registration. The provider value itself is the registration identity and
// must be comparable.
type Provider interface {
	OperationFilters() []Filter
}

// FuncFilter adapts a function to Filter.
type FuncFilter struct {
	op    Operation
	order int
	fn    func(ctx Context)
}

// NewFilter returns a filter calling fn for operation op.
func NewFilter(op Operation, order int, fn func(ctx Context)) *FuncFilter {
	return &FuncFilter{op: op, order: order, fn: fn}
}

// NewTypedFilter returns a filter that only processes contexts of type C.
// Other contexts pass through untouched.
func NewTypedFilter[C Context](op Operation, order int, fn func(ctx C)) *FuncFilter {
	return NewFilter(op, order, func(ctx Context) {
		if typed, ok := ctx.(C); ok {
			fn(typed)
		}
	})
}

func (f *FuncFilter) Operation() Operation { return f.op }
func (f *FuncFilter) Order() int           { return f.order }
func (f *FuncFilter) Process(ctx Context)  { f.fn(ctx) }

// FilterSet is a fixed bundle of filters.
type FilterSet struct {
	filters []Filter
}

// NewFilterSet returns a provider exposing filters.
func NewFilterSet(filters ...Filter) *FilterSet {
	return &FilterSet{filters: filters}
}

func (s *FilterSet) OperationFilters() []Filter {
	out := make([]Filter, len(s.filters))
	copy(out, s.filters)
	return out
}

// DefaultContext implements the cancellation protocol. The zero value is
// active; embed it in operation-specific contexts and set OnFinalize to the
// step that completes the operation.
type DefaultContext struct {
	// OnFinalize is invoked by Finalize unless the chain was cancelled with
	// a negative result.
	OnFinalize func()

	cancelled bool
	rejected  bool
}

// NewDefaultContext returns an active context completing with finalize.
func NewDefaultContext(finalize func()) *DefaultContext {
	return &DefaultContext{OnFinalize: finalize}
}

// Cancel stops the chain. executeResult decides whether Finalize still
// completes the operation.
func (c *DefaultContext) Cancel(executeResult bool) {
	c.cancelled = true
	c.rejected = !executeResult
}

// Cancelled reports whether Cancel was called.
func (c *DefaultContext) Cancelled() bool {
	return c.cancelled
}

// ExecuteResult reports whether the operation will complete on Finalize.
func (c *DefaultContext) ExecuteResult() bool {
	return !c.rejected
}

func (c *DefaultContext) Next() bool {
	return !c.cancelled
}

func (c *DefaultContext) Finalize() {
	if c.rejected || c.OnFinalize == nil {
		return
	}
	c.OnFinalize()
}
