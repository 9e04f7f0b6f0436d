package services

import (
	"context"
	"fmt"

	"github.com/centraunit/corekit/logging"
)

// FactoryContext is passed to factories, initializers and OnBoot hooks.
// It extends the load's context.Context with dependency resolution for a
// single service. The embedded context is cancelled when the load ends.
type FactoryContext struct {
	context.Context
	lc *loadingContext
}

// Key returns the key of the service being built.
func (c *FactoryContext) Key() ServiceKey {
	return c.lc.info.Key
}

// Logger returns the load logger scoped to this service.
func (c *FactoryContext) Logger() *logging.Logger {
	return c.lc.log
}

// RequireService waits until the service at key is available and returns it.
// Only one request may be outstanding per context; a concurrent second request
// aborts the load with a *ConcurrentRequireError.
func (c *FactoryContext) RequireService(key ServiceKey) (any, error) {
	return c.lc.requireService(key)
}

// Require waits for the service keyed by TypeKey[T].
func Require[T any](ctx *FactoryContext) (T, error) {
	return requireTyped[T](ctx, TypeKey[T]())
}

// RequireNamed waits for the named service and asserts it to T.
func RequireNamed[T any](ctx *FactoryContext, name string) (T, error) {
	return requireTyped[T](ctx, NamedKey(name))
}

func requireTyped[T any](ctx *FactoryContext, key ServiceKey) (T, error) {
	var zero T
	instance, err := ctx.RequireService(key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Key:      key,
			Expected: typeString(TypeKey[T]().Type()),
			Got:      fmt.Sprintf("%T", instance),
		}
	}
	return typed, nil
}
