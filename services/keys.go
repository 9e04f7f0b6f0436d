package services

import (
	"reflect"
	"sync"
)

// ServiceKey identifies a service either by a type token or by name.
// Keys are comparable and are used directly as map keys.
type ServiceKey struct {
	typ  reflect.Type
	name string
}

var typeStringCache sync.Map

// TypeKey returns the key for the static type T. For interface types the key
// names the interface, not the implementation.
func TypeKey[T any]() ServiceKey {
	return ServiceKey{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// TypeKeyOf returns the key for t.
func TypeKeyOf(t reflect.Type) ServiceKey {
	return ServiceKey{typ: t}
}

// NamedKey returns the key for a named service.
func NamedKey(name string) ServiceKey {
	return ServiceKey{name: name}
}

// IsNamed reports whether the key was built with NamedKey.
func (k ServiceKey) IsNamed() bool {
	return k.typ == nil && k.name != ""
}

// IsZero reports whether the key identifies nothing.
func (k ServiceKey) IsZero() bool {
	return k.typ == nil && k.name == ""
}

// Name returns the service name of a named key.
func (k ServiceKey) Name() string {
	return k.name
}

// Type returns the type token of a type key, or nil for named keys.
func (k ServiceKey) Type() reflect.Type {
	return k.typ
}

func (k ServiceKey) String() string {
	switch {
	case k.typ != nil:
		return "type:" + typeString(k.typ)
	case k.name != "":
		return "name:" + k.name
	default:
		return "<empty>"
	}
}

func typeString(t reflect.Type) string {
	if cached, ok := typeStringCache.Load(t); ok {
		return cached.(string)
	}
	s := t.String()
	typeStringCache.Store(t, s)
	return s
}

func keyStrings(keys []ServiceKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
