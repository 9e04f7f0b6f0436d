package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/centraunit/corekit/logging"
	"github.com/centraunit/corekit/mock"
	"github.com/centraunit/corekit/services"
)

type LoaderTestSuite struct {
	suite.Suite
	hook   *test.Hook
	loader *services.ServiceLoader
}

func (s *LoaderTestSuite) SetupTest() {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	s.hook = hook
	s.loader = services.NewServiceLoader(services.WithLogger(logging.FromLogrus(base)))
}

func (s *LoaderTestSuite) load() error {
	return s.loader.Load(context.Background(), nil)
}

func (s *LoaderTestSuite) provider() services.ServiceProvider {
	p, err := s.loader.CreateServiceProvider()
	s.Require().NoError(err)
	return p
}

type counter struct {
	name string
	dep  any
}

func (s *LoaderTestSuite) TestIndependentServices() {
	c := s.loader.Collection()
	produced := make(map[string]*counter)
	for _, name := range []string{"a", "b", "c", "d"} {
		inst := &counter{name: name}
		produced[name] = inst
		c.AddNamedService(name, func(*services.FactoryContext) (any, error) {
			return inst, nil
		})
	}

	s.NoError(s.load())

	p := s.provider()
	for name, inst := range produced {
		got, err := p.RequireService(services.NamedKey(name))
		s.NoError(err)
		s.Same(inst, got)
		s.True(p.HasService(services.NamedKey(name)))
	}
	s.Len(s.loader.ResolutionOrder(), 4)
}

func (s *LoaderTestSuite) TestNilContextLoads() {
	s.loader.Collection().AddNamedService("svc", func(ctx *services.FactoryContext) (any, error) {
		return ctx.Err() == nil, nil
	})

	var ctx context.Context
	s.NotPanics(func() {
		s.NoError(s.loader.Load(ctx, nil))
	})

	got, err := services.ResolveNamed[bool](s.provider(), "svc")
	s.NoError(err)
	s.True(got)
}

func (s *LoaderTestSuite) TestAcyclicChains() {
	s.Run("DeclaredLeafFirst", func() {
		s.SetupTest()
		mock.AddDeepServices(s.loader.Collection(), "deep", false)
		s.NoError(s.load())

		svc1, err := services.Resolve[mock.DeepService1](s.provider())
		s.NoError(err)
		s.Equal("deep", svc1.GetService2().GetService3().GetValue())
	})

	s.Run("DeclaredRootFirst", func() {
		s.SetupTest()
		mock.AddDeepServices(s.loader.Collection(), "reversed", true)
		s.NoError(s.load())

		svc1, err := services.Resolve[mock.DeepService1](s.provider())
		s.NoError(err)
		s.Equal("reversed", svc1.GetService2().GetService3().GetValue())

		order := s.loader.ResolutionOrder()
		s.Equal([]services.ServiceKey{
			services.TypeKey[mock.DeepService3](),
			services.TypeKey[mock.DeepService2](),
			services.TypeKey[mock.DeepService1](),
		}, order)
	})

	s.Run("Diamond", func() {
		s.SetupTest()
		c := s.loader.Collection()
		c.AddNamedService("top", func(ctx *services.FactoryContext) (any, error) {
			left, err := ctx.RequireService(services.NamedKey("left"))
			if err != nil {
				return nil, err
			}
			right, err := ctx.RequireService(services.NamedKey("right"))
			if err != nil {
				return nil, err
			}
			return []any{left, right}, nil
		})
		for _, side := range []string{"left", "right"} {
			side := side
			c.AddNamedService(side, func(ctx *services.FactoryContext) (any, error) {
				bottom, err := ctx.RequireService(services.NamedKey("bottom"))
				if err != nil {
					return nil, err
				}
				return &counter{name: side, dep: bottom}, nil
			})
		}
		c.AddNamedService("bottom", func(*services.FactoryContext) (any, error) {
			return &counter{name: "bottom"}, nil
		})

		s.NoError(s.load())
		p := s.provider()
		bottom := p.GetService(services.NamedKey("bottom"))
		top := p.GetService(services.NamedKey("top")).([]any)
		s.Same(bottom, top[0].(*counter).dep)
		s.Same(bottom, top[1].(*counter).dep)
	})
}

func (s *LoaderTestSuite) TestDatabaseCacheScenario() {
	c := s.loader.Collection()
	services.AddTypedService(c, mock.NewCacheFactory(nil))
	services.AddTypedService(c, mock.NewDatabaseFactory(nil))

	s.NoError(s.load())

	p := s.provider()
	cache, err := services.Resolve[mock.Cache](p)
	s.NoError(err)
	db, err := services.Resolve[mock.Database](p)
	s.NoError(err)
	s.Same(db, cache.DB())
	s.True(db.IsConnected(), "Database should be booted")
}

func (s *LoaderTestSuite) TestComplexDependencyResolution() {
	c := s.loader.Collection()
	services.AddTypedService(c, mock.NewComplexService)
	services.AddTypedService(c, mock.NewCacheFactory(nil))
	services.AddTypedService(c, mock.NewDatabaseFactory(nil))

	s.NoError(s.load())

	complex, err := services.Resolve[*mock.ComplexService](s.provider())
	s.NoError(err)
	s.NotNil(complex.DB)
	s.NotNil(complex.Cache)
	s.Same(complex.DB, complex.Cache.DB())
}

func (s *LoaderTestSuite) TestInitializers() {
	s.Run("RunInOrderBeforeDependantsSeeInstance", func() {
		s.SetupTest()
		c := s.loader.Collection()
		c.AddNamedService("user", func(ctx *services.FactoryContext) (any, error) {
			cfg, err := services.RequireNamed[*mock.SingletonTestService](ctx, "config")
			if err != nil {
				return nil, err
			}
			return append([]string(nil), cfg.Initializers...), nil
		})
		services.AddDefaultNamedService[mock.SingletonTestService](c, "config")
		for _, step := range []string{"first", "second"} {
			step := step
			c.AddNamedInitializer("config", func(instance any, ctx *services.FactoryContext) error {
				svc := instance.(*mock.SingletonTestService)
				s.True(svc.IsInitialized(), "OnBoot must run before initializers")
				svc.Initializers = append(svc.Initializers, step)
				return nil
			})
		}

		s.NoError(s.load())
		seen := s.provider().GetService(services.NamedKey("user"))
		s.Equal([]string{"first", "second"}, seen)
	})

	s.Run("TypedInitializer", func() {
		s.SetupTest()
		c := s.loader.Collection()
		services.AddDefaultService[mock.SingletonTestService](c)
		services.AddTypedInitializer(c, func(svc *mock.SingletonTestService, ctx *services.FactoryContext) error {
			s.Equal(services.TypeKey[*mock.SingletonTestService](), ctx.Key())
			svc.Initializers = append(svc.Initializers, "typed")
			return nil
		})

		s.NoError(s.load())
		svc, err := services.Resolve[*mock.SingletonTestService](s.provider())
		s.NoError(err)
		s.True(svc.IsInitialized())
		s.Equal([]string{"typed"}, svc.Initializers)
	})

	s.Run("WithoutServiceWarns", func() {
		s.SetupTest()
		c := s.loader.Collection()
		c.AddNamedInitializer("ghost", func(any, *services.FactoryContext) error { return nil })
		c.AddNamedService("real", func(*services.FactoryContext) (any, error) { return 1, nil })

		s.NoError(s.load())

		var warned bool
		for _, entry := range s.hook.AllEntries() {
			if entry.Level == logrus.WarnLevel && entry.Message == "service initializer present without service" {
				warned = true
				s.Equal("name:ghost", entry.Data["service"])
			}
		}
		s.True(warned)
	})
}

func (s *LoaderTestSuite) TestExternalProvider() {
	external := services.NewStaticProvider().
		Set(services.NamedKey("clock"), "wall-clock").
		Set(services.NamedKey("unused"), 42)

	c := s.loader.Collection()
	c.AddNamedService("scheduler", func(ctx *services.FactoryContext) (any, error) {
		clock, err := ctx.RequireService(services.NamedKey("clock"))
		if err != nil {
			return nil, err
		}
		return &counter{name: "scheduler", dep: clock}, nil
	})

	s.NoError(s.loader.Load(context.Background(), external))

	local := s.provider()
	s.Equal("wall-clock", local.GetService(services.NamedKey("scheduler")).(*counter).dep)
	s.False(local.HasService(services.NamedKey("clock")))
	s.Nil(local.GetService(services.NamedKey("clock")))
	_, err := local.RequireService(services.NamedKey("clock"))
	var notFound *services.ServiceNotFoundError
	s.True(errors.As(err, &notFound))

	combined, err := s.loader.CreateCombinedServiceProvider()
	s.NoError(err)
	s.True(combined.HasService(services.NamedKey("clock")))
	s.True(combined.HasService(services.NamedKey("scheduler")))
	s.Equal(42, combined.GetService(services.NamedKey("unused")))
	v, err := combined.RequireService(services.NamedKey("clock"))
	s.NoError(err)
	s.Equal("wall-clock", v)
	_, err = combined.RequireService(services.NamedKey("nothing"))
	s.True(errors.As(err, &notFound))
}

func (s *LoaderTestSuite) TestCombinedWithoutExternal() {
	s.loader.Collection().AddNamedService("only", func(*services.FactoryContext) (any, error) { return "x", nil })
	s.NoError(s.load())

	combined, err := s.loader.CreateCombinedServiceProvider()
	s.NoError(err)
	s.Equal("x", combined.GetService(services.NamedKey("only")))
	s.False(combined.HasService(services.NamedKey("other")))
}

func (s *LoaderTestSuite) TestDuplicateDeclaration() {
	c := s.loader.Collection()
	c.AddNamedService("svc", func(*services.FactoryContext) (any, error) { return "first", nil })
	c.AddNamedService("svc", func(*services.FactoryContext) (any, error) { return "second", nil })

	s.NoError(s.load())
	s.Equal("second", s.provider().GetService(services.NamedKey("svc")))
	s.Len(s.loader.ResolutionOrder(), 1)
	s.Equal(logrus.WarnLevel, s.findEntry("duplicate service declaration, last factory wins").Level)
}

func (s *LoaderTestSuite) findEntry(message string) *logrus.Entry {
	for _, entry := range s.hook.AllEntries() {
		if entry.Message == message {
			return entry
		}
	}
	s.FailNow("log entry not found", message)
	return nil
}

func (s *LoaderTestSuite) TestShutdown() {
	s.Run("ReverseResolutionOrder", func() {
		s.SetupTest()
		recorder := &mock.ShutdownRecorder{}
		c := s.loader.Collection()
		services.AddTypedService(c, mock.NewCacheFactory(recorder))
		services.AddTypedService(c, mock.NewDatabaseFactory(recorder))

		s.NoError(s.load())
		db, err := services.Resolve[mock.Database](s.provider())
		s.NoError(err)

		s.NoError(s.loader.Shutdown(context.Background()))
		s.Equal([]string{"cache", "db"}, recorder.Names())
		s.False(db.IsConnected())

		s.ErrorIs(s.loader.Shutdown(context.Background()), services.ErrInvalidState)
		_, err = s.loader.CreateServiceProvider()
		s.ErrorIs(err, services.ErrInvalidState)
	})

	s.Run("FailuresAggregated", func() {
		s.SetupTest()
		recorder := &mock.ShutdownRecorder{}
		c := s.loader.Collection()
		c.AddNamedService("failing", func(*services.FactoryContext) (any, error) {
			return &mock.FailingShutdown{Recorder: recorder}, nil
		})
		services.AddTypedService(c, mock.NewDatabaseFactory(recorder))

		s.NoError(s.load())
		err := s.loader.Shutdown(context.Background())
		s.Error(err)

		var shutdownErr *services.ShutdownError
		s.True(errors.As(err, &shutdownErr))
		s.Equal(services.NamedKey("failing"), shutdownErr.Key)
		s.ElementsMatch([]string{"failing", "db"}, recorder.Names())
	})

	s.Run("BeforeLoad", func() {
		s.SetupTest()
		s.ErrorIs(s.loader.Shutdown(context.Background()), services.ErrInvalidState)
	})
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}
