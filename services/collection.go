package services

import (
	"fmt"
	"reflect"
)

// ServiceCollection is the ordered registry of service declarations and
// initializers handed to a ServiceLoader. It performs no resolution.
type ServiceCollection struct {
	services     []ServiceInfo
	initializers []ServiceInitializerInfo
}

// NewServiceCollection returns an empty collection.
func NewServiceCollection() *ServiceCollection {
	return &ServiceCollection{}
}

// AddService declares the service at key.
func (c *ServiceCollection) AddService(key ServiceKey, factory Factory) {
	c.services = append(c.services, ServiceInfo{Key: key, Factory: factory})
}

// AddNamedService declares a service under name.
func (c *ServiceCollection) AddNamedService(name string, factory Factory) {
	c.AddService(NamedKey(name), factory)
}

// AddInitializer adds an initializer for key. Initializers for the same key
// run in the order they were added.
func (c *ServiceCollection) AddInitializer(key ServiceKey, initializer Initializer) {
	c.initializers = append(c.initializers, ServiceInitializerInfo{Key: key, Initializer: initializer})
}

// AddNamedInitializer adds an initializer for the named service.
func (c *ServiceCollection) AddNamedInitializer(name string, initializer Initializer) {
	c.AddInitializer(NamedKey(name), initializer)
}

// Services returns the declarations in registration order.
func (c *ServiceCollection) Services() []ServiceInfo {
	out := make([]ServiceInfo, len(c.services))
	copy(out, c.services)
	return out
}

// Initializers returns the initializers in registration order.
func (c *ServiceCollection) Initializers() []ServiceInitializerInfo {
	out := make([]ServiceInitializerInfo, len(c.initializers))
	copy(out, c.initializers)
	return out
}

// AddTypedService declares a service keyed by TypeKey[T].
func AddTypedService[T any](c *ServiceCollection, factory func(ctx *FactoryContext) (T, error)) {
	c.AddService(TypeKey[T](), func(ctx *FactoryContext) (any, error) {
		instance, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		return instance, nil
	})
}

// AddDefaultService declares *T keyed by TypeKey[*T], built with new(T).
func AddDefaultService[T any](c *ServiceCollection) {
	c.AddService(TypeKey[*T](), func(*FactoryContext) (any, error) {
		return new(T), nil
	})
}

// AddDefaultNamedService declares a new(T) instance under name.
func AddDefaultNamedService[T any](c *ServiceCollection, name string) {
	c.AddNamedService(name, func(*FactoryContext) (any, error) {
		return new(T), nil
	})
}

// AddTypedInitializer adds an initializer for the service keyed by TypeKey[T].
func AddTypedInitializer[T any](c *ServiceCollection, initializer func(instance T, ctx *FactoryContext) error) {
	key := TypeKey[T]()
	c.AddInitializer(key, func(instance any, ctx *FactoryContext) error {
		typed, ok := instance.(T)
		if !ok {
			return &TypeMismatchError{Key: key, Expected: typeString(key.Type()), Got: fmt.Sprintf("%T", instance)}
		}
		return initializer(typed, ctx)
	})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
