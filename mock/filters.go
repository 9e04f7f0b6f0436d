package mock

import (
	"sync"

	"github.com/centraunit/corekit/filtering"
)

// Trace records the names of filters as they run.
type Trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *Trace) Add(step string) {
	t.mu.Lock()
	t.steps = append(t.steps, step)
	t.mu.Unlock()
}

func (t *Trace) Steps() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

// RecordingFilter appends its name to a Trace and optionally cancels.
type RecordingFilter struct {
	Name   string
	Op     filtering.Operation
	Rank   int
	Trace  *Trace
	Cancel *bool
}

func (f *RecordingFilter) Operation() filtering.Operation { return f.Op }
func (f *RecordingFilter) Order() int                     { return f.Rank }

func (f *RecordingFilter) Process(ctx filtering.Context) {
	f.Trace.Add(f.Name)
	if f.Cancel == nil {
		return
	}
	if c, ok := ctx.(*OperationContext); ok {
		c.Cancel(*f.Cancel)
	}
}

// CancelWith returns a pointer usable as RecordingFilter.Cancel.
func CancelWith(executeResult bool) *bool {
	return &executeResult
}

// OperationContext is a context whose completion step records "finalize".
type OperationContext struct {
	filtering.DefaultContext
	Payload   string
	Finalized bool
}

func NewOperationContext(trace *Trace, payload string) *OperationContext {
	ctx := &OperationContext{Payload: payload}
	ctx.OnFinalize = func() {
		ctx.Finalized = true
		if trace != nil {
			trace.Add("finalize")
		}
	}
	return ctx
}

// Entity carries its own filters and a fixed filter type.
type Entity struct {
	Type filtering.TypeID
	host *filtering.Host
}

func NewEntity(t filtering.TypeID, opts ...filtering.HostOption) *Entity {
	return &Entity{Type: t, host: filtering.NewHost(opts...)}
}

func (e *Entity) FilterType() filtering.TypeID         { return e.Type }
func (e *Entity) OperationFilterHost() *filtering.Host { return e.host }
