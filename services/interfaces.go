// Package services resolves a declarative collection of service factories into
// live instances. Factories run concurrently and may wait on each other's
// instances; the loader detects missing and circular dependencies.
package services

import "context"

// Factory produces a service instance. It may call ctx.RequireService to wait
// for another service, one request at a time.
type Factory func(ctx *FactoryContext) (any, error)

// Initializer runs after a factory produced instance and before the instance
// becomes visible to dependants.
type Initializer func(instance any, ctx *FactoryContext) error

// ServiceInfo declares a service.
type ServiceInfo struct {
	Key     ServiceKey
	Factory Factory
}

// ServiceInitializerInfo declares an initializer for the service at Key.
type ServiceInitializerInfo struct {
	Key         ServiceKey
	Initializer Initializer
}

// Lifecycle defines the interface for services that require initialization and cleanup.
type Lifecycle interface {
	// OnBoot is called after the factory returned the instance and before
	// any initializer runs. It may require further services through ctx.
	OnBoot(ctx *FactoryContext) error

	// OnShutdown is called by ServiceLoader.Shutdown.
	// It should clean up any resources held by the service.
	OnShutdown(ctx context.Context) error
}

// ServiceProvider is a synchronous, read-only view over service instances.
type ServiceProvider interface {
	// GetService returns the instance for key, or nil.
	GetService(key ServiceKey) any

	// HasService reports whether an instance exists for key.
	HasService(key ServiceKey) bool

	// RequireService returns the instance for key or a *ServiceNotFoundError.
	RequireService(key ServiceKey) (any, error)
}
