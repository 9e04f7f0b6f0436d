package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/centraunit/corekit/services"
)

// Core interfaces
type Database interface {
	Connect() error
	IsConnected() bool
}

type Cache interface {
	Get(key string) interface{}
	DB() Database
}

// ShutdownRecorder collects the order in which services were shut down.
type ShutdownRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *ShutdownRecorder) record(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *ShutdownRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// Mock implementations
type MockDB struct {
	isConnected bool
	Booted      int
	Recorder    *ShutdownRecorder
}

func (m *MockDB) Connect() error {
	return nil
}

func (m *MockDB) OnBoot(ctx *services.FactoryContext) error {
	m.isConnected = true
	m.Booted++
	return nil
}

func (m *MockDB) OnShutdown(ctx context.Context) error {
	m.isConnected = false
	m.Recorder.record("db")
	return nil
}

func (m *MockDB) IsConnected() bool {
	return m.isConnected
}

type MockCache struct {
	db       Database
	Recorder *ShutdownRecorder
}

func (m *MockCache) Get(key string) interface{} {
	return nil
}

func (m *MockCache) DB() Database {
	return m.db
}

func (m *MockCache) OnBoot(ctx *services.FactoryContext) error {
	return nil
}

func (m *MockCache) OnShutdown(ctx context.Context) error {
	m.Recorder.record("cache")
	return nil
}

// NewCacheFactory returns a factory that waits for the Database service.
func NewCacheFactory(recorder *ShutdownRecorder) func(ctx *services.FactoryContext) (Cache, error) {
	return func(ctx *services.FactoryContext) (Cache, error) {
		db, err := services.Require[Database](ctx)
		if err != nil {
			return nil, err
		}
		return &MockCache{db: db, Recorder: recorder}, nil
	}
}

// NewDatabaseFactory returns a factory producing a fresh MockDB.
func NewDatabaseFactory(recorder *ShutdownRecorder) func(ctx *services.FactoryContext) (Database, error) {
	return func(ctx *services.FactoryContext) (Database, error) {
		return &MockDB{Recorder: recorder}, nil
	}
}

// FailingDB fails its boot when ShouldFail is set.
type FailingDB struct {
	MockDB
	ShouldFail bool
}

func (f *FailingDB) OnBoot(ctx *services.FactoryContext) error {
	if f.ShouldFail {
		return fmt.Errorf("simulated boot failure")
	}
	return f.MockDB.OnBoot(ctx)
}

// FailingShutdown reports an error from OnShutdown.
type FailingShutdown struct {
	Recorder *ShutdownRecorder
}

func (f *FailingShutdown) OnBoot(ctx *services.FactoryContext) error { return nil }

func (f *FailingShutdown) OnShutdown(ctx context.Context) error {
	f.Recorder.record("failing")
	return fmt.Errorf("simulated shutdown failure")
}

// Circular dependency test types
type CircularService1 interface {
	GetService2() CircularService2
}

type CircularService2 interface {
	GetService1() CircularService1
}

type CircularImpl1 struct {
	svc2 CircularService2
}

func (i *CircularImpl1) GetService2() CircularService2 { return i.svc2 }

type CircularImpl2 struct {
	svc1 CircularService1
}

func (i *CircularImpl2) GetService1() CircularService1 { return i.svc1 }

// AddCircularServices declares two services that require each other.
func AddCircularServices(c *services.ServiceCollection) {
	services.AddTypedService(c, func(ctx *services.FactoryContext) (CircularService1, error) {
		svc2, err := services.Require[CircularService2](ctx)
		if err != nil {
			return nil, err
		}
		return &CircularImpl1{svc2: svc2}, nil
	})
	services.AddTypedService(c, func(ctx *services.FactoryContext) (CircularService2, error) {
		svc1, err := services.Require[CircularService1](ctx)
		if err != nil {
			return nil, err
		}
		return &CircularImpl2{svc1: svc1}, nil
	})
}

// Deep dependency chain: DeepService1 -> DeepService2 -> DeepService3
type DeepService3 interface {
	GetValue() string
}

type DeepService2 interface {
	GetService3() DeepService3
}

type DeepService1 interface {
	GetService2() DeepService2
}

type DeepImpl3 struct {
	Value string
}

func (d *DeepImpl3) GetValue() string {
	return d.Value
}

type DeepImpl2 struct {
	svc3 DeepService3
}

func (d *DeepImpl2) GetService3() DeepService3 {
	return d.svc3
}

type DeepImpl1 struct {
	svc2 DeepService2
}

func (d *DeepImpl1) GetService2() DeepService2 {
	return d.svc2
}

// AddDeepServices declares the deep chain. When reversed is set, the most
// dependent service is declared first.
func AddDeepServices(c *services.ServiceCollection, value string, reversed bool) {
	add3 := func() {
		services.AddTypedService(c, func(ctx *services.FactoryContext) (DeepService3, error) {
			return &DeepImpl3{Value: value}, nil
		})
	}
	add2 := func() {
		services.AddTypedService(c, func(ctx *services.FactoryContext) (DeepService2, error) {
			svc3, err := services.Require[DeepService3](ctx)
			if err != nil {
				return nil, err
			}
			return &DeepImpl2{svc3: svc3}, nil
		})
	}
	add1 := func() {
		services.AddTypedService(c, func(ctx *services.FactoryContext) (DeepService1, error) {
			svc2, err := services.Require[DeepService2](ctx)
			if err != nil {
				return nil, err
			}
			return &DeepImpl1{svc2: svc2}, nil
		})
	}
	if reversed {
		add1()
		add2()
		add3()
		return
	}
	add3()
	add2()
	add1()
}

// SingletonTestService is a zero-configuration service for AddDefaultService.
type SingletonTestService struct {
	initialized  bool
	Initializers []string
}

func (s *SingletonTestService) OnBoot(ctx *services.FactoryContext) error {
	s.initialized = true
	return nil
}

func (s *SingletonTestService) OnShutdown(ctx context.Context) error {
	return nil
}

func (s *SingletonTestService) IsInitialized() bool {
	return s.initialized
}

// ComplexService depends on both Database and Cache.
type ComplexService struct {
	DB    Database
	Cache Cache
}

func NewComplexService(ctx *services.FactoryContext) (*ComplexService, error) {
	db, err := services.Require[Database](ctx)
	if err != nil {
		return nil, err
	}
	cache, err := services.Require[Cache](ctx)
	if err != nil {
		return nil, err
	}
	return &ComplexService{DB: db, Cache: cache}, nil
}
