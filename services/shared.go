package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/centraunit/corekit/logging"
	"github.com/centraunit/corekit/metrics"
)

type eventKind int

const (
	eventRequire eventKind = iota
	eventDone
	eventFailed
)

// event is sent by a service goroutine to the coordinator.
type event struct {
	kind     eventKind
	lc       *loadingContext
	dep      ServiceKey
	instance any
	err      error
	reply    chan requireResult
}

type requireResult struct {
	instance any
	err      error
}

// sharedLoadingContext owns all state of one Load call. Every field below
// events is read and written by the coordinator goroutine only.
type sharedLoadingContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan event
	done    chan struct{}
	log     *logging.Logger
	metrics *metrics.Metrics

	external     ServiceProvider
	services     map[ServiceKey]ServiceInfo
	order        []ServiceKey
	initializers map[ServiceKey][]ServiceInitializerInfo
	initOrder    []ServiceKey
	contexts     []*loadingContext
	inFlight     map[*loadingContext]struct{}
	blocked      map[ServiceKey]ServiceKey
	waiting      map[ServiceKey][]*loadingContext
	instances    map[ServiceKey]any
	resolved     []ServiceKey
}

func newSharedLoadingContext(ctx context.Context, collection *ServiceCollection, external ServiceProvider, log *logging.Logger, m *metrics.Metrics) *sharedLoadingContext {
	ctx, cancel := context.WithCancel(ctx)
	s := &sharedLoadingContext{
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan event),
		done:         make(chan struct{}),
		log:          log,
		metrics:      m,
		external:     external,
		services:     make(map[ServiceKey]ServiceInfo),
		initializers: make(map[ServiceKey][]ServiceInitializerInfo),
		inFlight:     make(map[*loadingContext]struct{}),
		blocked:      make(map[ServiceKey]ServiceKey),
		waiting:      make(map[ServiceKey][]*loadingContext),
		instances:    make(map[ServiceKey]any),
	}

	for _, info := range collection.Services() {
		if _, exists := s.services[info.Key]; exists {
			log.Warn("duplicate service declaration, last factory wins", logrus.Fields{"service": info.Key.String()})
		} else {
			s.order = append(s.order, info.Key)
		}
		s.services[info.Key] = info
	}
	for _, init := range collection.Initializers() {
		if _, exists := s.initializers[init.Key]; !exists {
			s.initOrder = append(s.initOrder, init.Key)
		}
		s.initializers[init.Key] = append(s.initializers[init.Key], init)
	}
	return s
}

// beginLoad warns about orphaned initializers and starts one goroutine per
// declared service.
func (s *sharedLoadingContext) beginLoad() {
	for _, key := range s.initOrder {
		if _, ok := s.services[key]; !ok {
			s.log.Warn("service initializer present without service", logrus.Fields{"service": key.String()})
		}
	}

	for _, key := range s.order {
		lc := &loadingContext{
			shared:       s,
			info:         s.services[key],
			initializers: s.initializers[key],
			log:          s.log.WithFields(logrus.Fields{"service": key.String()}),
		}
		lc.fctx = &FactoryContext{Context: s.ctx, lc: lc}
		s.contexts = append(s.contexts, lc)
		s.inFlight[lc] = struct{}{}
	}
	for _, lc := range s.contexts {
		go lc.load()
	}
}

// finishLoading processes events until every service resolved or the load
// fails. Cycle detection runs after every event.
func (s *sharedLoadingContext) finishLoading() error {
	defer func() {
		close(s.done)
		s.cancel()
	}()

	for len(s.inFlight) > 0 {
		select {
		case ev := <-s.events:
			if err := s.handle(ev); err != nil {
				return err
			}
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
		if err := s.detectCircularDependency(); err != nil {
			return err
		}
	}
	return nil
}

func (s *sharedLoadingContext) handle(ev event) error {
	switch ev.kind {
	case eventRequire:
		return s.require(ev.lc, ev.dep, ev.reply)
	case eventDone:
		return s.provide(ev.lc, ev.instance)
	default:
		return ev.err
	}
}

func (s *sharedLoadingContext) require(lc *loadingContext, dep ServiceKey, reply chan requireResult) error {
	if instance, ok := s.instances[dep]; ok {
		reply <- requireResult{instance: instance}
		return nil
	}
	if _, declared := s.services[dep]; !declared {
		if s.external != nil {
			if instance := s.external.GetService(dep); instance != nil {
				reply <- requireResult{instance: instance}
				return nil
			}
		}
		return &MissingDependencyError{Service: lc.info.Key, Dependency: dep}
	}
	s.blocked[lc.info.Key] = dep
	s.waiting[dep] = append(s.waiting[dep], lc)
	lc.pending = reply
	return nil
}

func (s *sharedLoadingContext) provide(lc *loadingContext, instance any) error {
	key := lc.info.Key
	delete(s.inFlight, lc)
	s.instances[key] = instance
	s.resolved = append(s.resolved, key)
	s.metrics.ServiceLoaded()
	s.log.Debug("service resolved", logrus.Fields{"service": key.String()})

	waiters := s.waiting[key]
	delete(s.waiting, key)
	for _, waiter := range waiters {
		delete(s.blocked, waiter.info.Key)
		if err := waiter.dependencyResolved(instance); err != nil {
			return err
		}
	}
	return nil
}

// detectCircularDependency fails when every unfinished service waits on a
// dependency. Such a waiting graph must contain a cycle, which is rebuilt by
// following blocked edges from the first unfinished service in declaration
// order.
func (s *sharedLoadingContext) detectCircularDependency() error {
	if len(s.inFlight) == 0 {
		return nil
	}
	for lc := range s.inFlight {
		if _, ok := s.blocked[lc.info.Key]; !ok {
			return nil
		}
	}

	var start ServiceKey
	for _, lc := range s.contexts {
		if _, ok := s.inFlight[lc]; ok {
			start = lc.info.Key
			break
		}
	}

	seen := make(map[ServiceKey]int)
	var chain []ServiceKey
	current := start
	for {
		if idx, ok := seen[current]; ok {
			return &CircularDependencyError{Cycle: chain[idx:]}
		}
		seen[current] = len(chain)
		chain = append(chain, current)
		next, ok := s.blocked[current]
		if !ok {
			return fmt.Errorf("%w: broken wait chain at %s", ErrLoadAborted, current)
		}
		current = next
	}
}

// send delivers ev to the coordinator. It reports false once the load ended.
func (s *sharedLoadingContext) send(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *sharedLoadingContext) createServiceProvider(combined bool) ServiceProvider {
	if combined && s.external != nil {
		return &combinedServiceProvider{instances: s.instances, parent: s.external}
	}
	return &serviceProvider{instances: s.instances}
}

// loadingContext drives a single service: factory, OnBoot, initializers.
type loadingContext struct {
	shared       *sharedLoadingContext
	info         ServiceInfo
	initializers []ServiceInitializerInfo
	log          *logging.Logger
	fctx         *FactoryContext

	requesting atomic.Bool
	// pending is owned by the coordinator.
	pending chan requireResult
}

func (lc *loadingContext) load() {
	defer func() {
		if r := recover(); r != nil {
			lc.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	instance, err := lc.info.Factory(lc.fctx)
	if err != nil {
		lc.fail(err)
		return
	}
	if isNil(instance) {
		lc.fail(&NilServiceError{Key: lc.info.Key})
		return
	}
	if booter, ok := instance.(Lifecycle); ok {
		if err := booter.OnBoot(lc.fctx); err != nil {
			lc.fail(err)
			return
		}
	}
	for _, init := range lc.initializers {
		if err := init.Initializer(instance, lc.fctx); err != nil {
			lc.fail(err)
			return
		}
	}
	lc.shared.send(event{kind: eventDone, lc: lc, instance: instance})
}

func (lc *loadingContext) fail(err error) {
	lc.shared.send(event{kind: eventFailed, lc: lc, err: &InitializationError{Key: lc.info.Key, Err: err}})
}

func (lc *loadingContext) requireService(key ServiceKey) (any, error) {
	if !lc.requesting.CompareAndSwap(false, true) {
		err := &ConcurrentRequireError{Key: lc.info.Key}
		lc.shared.send(event{kind: eventFailed, lc: lc, err: err})
		return nil, err
	}
	defer lc.requesting.Store(false)

	reply := make(chan requireResult, 1)
	if !lc.shared.send(event{kind: eventRequire, lc: lc, dep: key, reply: reply}) {
		return nil, ErrLoadAborted
	}
	select {
	case r := <-reply:
		return r.instance, r.err
	case <-lc.shared.done:
		return nil, ErrLoadAborted
	}
}

// dependencyResolved runs on the coordinator.
func (lc *loadingContext) dependencyResolved(instance any) error {
	if lc.pending == nil {
		return &UnrequestedResolutionError{Key: lc.info.Key}
	}
	lc.pending <- requireResult{instance: instance}
	lc.pending = nil
	return nil
}
