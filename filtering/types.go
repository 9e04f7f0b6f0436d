package filtering

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// TypeID identifies a filterable type in a TypeRegistry.
type TypeID string

// Typed lets a value pick its own TypeID instead of the one derived from
// its Go type.
type Typed interface {
	FilterType() TypeID
}

// TypeOf returns the TypeID of T. Pointer types share the id of their
// element type.
func TypeOf[T any]() TypeID {
	return typeID(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeOfValue returns the TypeID of v, honouring Typed.
func TypeOfValue(v any) TypeID {
	if typed, ok := v.(Typed); ok {
		return typed.FilterType()
	}
	if v == nil {
		return ""
	}
	return typeID(reflect.TypeOf(v))
}

var typeIDCache sync.Map

func typeID(t reflect.Type) TypeID {
	if cached, ok := typeIDCache.Load(t); ok {
		return cached.(TypeID)
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	var id TypeID
	if base.PkgPath() != "" && base.Name() != "" {
		id = TypeID(base.PkgPath() + "." + base.Name())
	} else {
		id = TypeID(base.String())
	}
	typeIDCache.Store(t, id)
	return id
}

// TypeRegistry records explicit is-a edges between types. A type may have
// several parents. Hosts sharing a registry notice declarations made
// through any of them by watching Generation.
type TypeRegistry struct {
	mu         sync.RWMutex
	parents    map[TypeID][]TypeID
	generation atomic.Uint64
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{parents: make(map[TypeID][]TypeID)}
}

// Declare sets the direct parents of t, replacing earlier declarations.
func (r *TypeRegistry) Declare(t TypeID, parents ...TypeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parents[t] = append([]TypeID(nil), parents...)
	r.generation.Add(1)
}

// Generation increases on every Declare.
func (r *TypeRegistry) Generation() uint64 {
	return r.generation.Load()
}

// Parents returns the direct parents of t.
func (r *TypeRegistry) Parents(t TypeID) []TypeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TypeID(nil), r.parents[t]...)
}

// Ancestors returns t followed by every type it derives from, depth first
// in declaration order. Each type appears once even when reachable through
// several parents.
func (r *TypeRegistry) Ancestors(t TypeID) []TypeID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []TypeID
	seen := make(map[TypeID]struct{})
	var walk func(TypeID)
	walk = func(cur TypeID) {
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
		for _, p := range r.parents[cur] {
			walk(p)
		}
	}
	walk(t)
	return out
}

// IsA reports whether t is ancestor or derives from it.
func (r *TypeRegistry) IsA(t, ancestor TypeID) bool {
	for _, a := range r.Ancestors(t) {
		if a == ancestor {
			return true
		}
	}
	return false
}
