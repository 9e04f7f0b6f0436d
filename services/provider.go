package services

import "fmt"

type serviceProvider struct {
	instances map[ServiceKey]any
}

func (p *serviceProvider) GetService(key ServiceKey) any {
	return p.instances[key]
}

func (p *serviceProvider) HasService(key ServiceKey) bool {
	_, ok := p.instances[key]
	return ok
}

func (p *serviceProvider) RequireService(key ServiceKey) (any, error) {
	instance, ok := p.instances[key]
	if !ok {
		return nil, &ServiceNotFoundError{Key: key}
	}
	return instance, nil
}

// combinedServiceProvider falls back to parent for keys not resolved locally.
type combinedServiceProvider struct {
	instances map[ServiceKey]any
	parent    ServiceProvider
}

func (p *combinedServiceProvider) GetService(key ServiceKey) any {
	if instance, ok := p.instances[key]; ok {
		return instance
	}
	return p.parent.GetService(key)
}

func (p *combinedServiceProvider) HasService(key ServiceKey) bool {
	_, ok := p.instances[key]
	return ok || p.parent.HasService(key)
}

func (p *combinedServiceProvider) RequireService(key ServiceKey) (any, error) {
	if instance, ok := p.instances[key]; ok {
		return instance, nil
	}
	return p.parent.RequireService(key)
}

// StaticProvider is a map-backed ServiceProvider, typically passed to
// ServiceLoader.Load as the external provider.
type StaticProvider struct {
	instances map[ServiceKey]any
}

// NewStaticProvider returns an empty StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{instances: make(map[ServiceKey]any)}
}

// Set stores instance under key. It returns the provider for chaining.
func (p *StaticProvider) Set(key ServiceKey, instance any) *StaticProvider {
	p.instances[key] = instance
	return p
}

func (p *StaticProvider) GetService(key ServiceKey) any {
	return p.instances[key]
}

func (p *StaticProvider) HasService(key ServiceKey) bool {
	_, ok := p.instances[key]
	return ok
}

func (p *StaticProvider) RequireService(key ServiceKey) (any, error) {
	instance, ok := p.instances[key]
	if !ok {
		return nil, &ServiceNotFoundError{Key: key}
	}
	return instance, nil
}

// Get returns the service keyed by TypeKey[T] if present.
func Get[T any](p ServiceProvider) (T, bool) {
	typed, ok := p.GetService(TypeKey[T]()).(T)
	return typed, ok
}

// Resolve returns the service keyed by TypeKey[T].
// Returns ServiceNotFoundError if the service is absent.
func Resolve[T any](p ServiceProvider) (T, error) {
	return resolveTyped[T](p, TypeKey[T]())
}

// ResolveNamed returns the named service asserted to T.
func ResolveNamed[T any](p ServiceProvider, name string) (T, error) {
	return resolveTyped[T](p, NamedKey(name))
}

func resolveTyped[T any](p ServiceProvider, key ServiceKey) (T, error) {
	var zero T
	instance, err := p.RequireService(key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Expected: typeString(TypeKey[T]().Type()), Got: fmt.Sprintf("%T", instance)}
	}
	return typed, nil
}
