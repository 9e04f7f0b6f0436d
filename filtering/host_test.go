package filtering_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/centraunit/corekit/filtering"
	"github.com/centraunit/corekit/logging"
	"github.com/centraunit/corekit/mock"
)

const (
	opSave   filtering.Operation = "save"
	opDelete filtering.Operation = "delete"
)

type HostTestSuite struct {
	suite.Suite
	hook  *test.Hook
	log   *logging.Logger
	trace *mock.Trace
	host  *filtering.Host
}

func (s *HostTestSuite) SetupTest() {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.TraceLevel)
	s.hook = hook
	s.log = logging.FromLogrus(base)
	s.trace = &mock.Trace{}
	s.host = filtering.NewHost(filtering.WithHostLogger(s.log))
}

func (s *HostTestSuite) filter(name string, op filtering.Operation, order int) *mock.RecordingFilter {
	return &mock.RecordingFilter{Name: name, Op: op, Rank: order, Trace: s.trace}
}

func (s *HostTestSuite) warnings() []string {
	var out []string
	for _, e := range s.hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}

func (s *HostTestSuite) TestOrderedChainThenFinalize() {
	s.True(s.host.AddFilters(filtering.NewFilterSet(
		s.filter("F1", opSave, 0),
		s.filter("F2", opSave, 10),
	)))
	s.True(s.host.AddFilters(filtering.NewFilterSet(s.filter("F3", opSave, -5))))

	ctx := mock.NewOperationContext(s.trace, "x")
	s.host.Process(opSave, ctx)

	s.Equal([]string{"F3", "F1", "F2", "finalize"}, s.trace.Steps())
	s.True(ctx.Finalized)
}

func (s *HostTestSuite) TestEqualOrderKeepsInsertionOrder() {
	s.host.AddFilters(filtering.NewFilterSet(s.filter("A", opSave, 1), s.filter("B", opSave, 1)))
	s.host.AddFilters(filtering.NewFilterSet(s.filter("C", opSave, 1), s.filter("D", opSave, 0)))

	s.host.Process(opSave, mock.NewOperationContext(s.trace, ""))
	s.Equal([]string{"D", "A", "B", "C", "finalize"}, s.trace.Steps())
}

func (s *HostTestSuite) TestCancel() {
	s.Run("NegativeResultSkipsFinalize", func() {
		s.SetupTest()
		stop := s.filter("stop", opSave, 0)
		stop.Cancel = mock.CancelWith(false)
		s.host.AddFilters(filtering.NewFilterSet(stop, s.filter("after", opSave, 1)))

		ctx := mock.NewOperationContext(s.trace, "")
		s.host.Process(opSave, ctx)

		s.Equal([]string{"stop"}, s.trace.Steps())
		s.False(ctx.Finalized)
		s.False(ctx.ExecuteResult())
		s.True(ctx.Cancelled())
	})

	s.Run("PositiveResultStillFinalizes", func() {
		s.SetupTest()
		stop := s.filter("stop", opSave, 0)
		stop.Cancel = mock.CancelWith(true)
		s.host.AddFilters(filtering.NewFilterSet(stop, s.filter("after", opSave, 1)))

		ctx := mock.NewOperationContext(s.trace, "")
		s.host.Process(opSave, ctx)

		s.Equal([]string{"stop", "finalize"}, s.trace.Steps())
		s.True(ctx.Finalized)
	})
}

func (s *HostTestSuite) TestNoFiltersStillFinalizes() {
	ctx := mock.NewOperationContext(s.trace, "")
	s.False(s.host.HasFilters(opSave))
	s.host.Process(opSave, ctx)
	s.Equal([]string{"finalize"}, s.trace.Steps())
}

func (s *HostTestSuite) TestOperationsAreIndependent() {
	s.host.AddFilters(filtering.NewFilterSet(s.filter("save", opSave, 0), s.filter("delete", opDelete, 0)))

	s.host.Process(opDelete, mock.NewOperationContext(s.trace, ""))
	s.Equal([]string{"delete", "finalize"}, s.trace.Steps())
	s.True(s.host.HasInstanceFilters(opSave))
	s.Len(s.host.InstanceFilters(opDelete), 1)
}

func (s *HostTestSuite) TestDuplicateProviderIsIgnored() {
	set := filtering.NewFilterSet(s.filter("F", opSave, 0))
	s.True(s.host.AddFilters(set))
	s.False(s.host.AddFilters(set))

	s.Len(s.host.InstanceFilters(opSave), 1)
	s.Equal([]string{"duplicate filter provider"}, s.warnings())
}

func (s *HostTestSuite) TestRemoveFilters() {
	set := filtering.NewFilterSet(s.filter("F", opSave, 0), s.filter("G", opDelete, 0))
	keep := filtering.NewFilterSet(s.filter("K", opSave, 3))
	s.host.AddFilters(set)
	s.host.AddFilters(keep)

	s.True(s.host.RemoveFilters(set))
	s.False(s.host.HasFilters(opDelete))
	s.True(s.host.HasFilters(opSave))

	s.host.Process(opSave, mock.NewOperationContext(s.trace, ""))
	s.Equal([]string{"K", "finalize"}, s.trace.Steps())
}

func (s *HostTestSuite) TestRemoveUnknownProviderWarns() {
	s.False(s.host.RemoveFilters(filtering.NewFilterSet()))
	s.Equal([]string{"missing filter provider"}, s.warnings())
}

type valueProvider struct {
	filters []filtering.Filter
}

func (p valueProvider) OperationFilters() []filtering.Filter { return p.filters }

func (s *HostTestSuite) TestInvalidProviders() {
	s.False(s.host.AddFilters(nil))
	s.False(s.host.AddFilters(valueProvider{}))
	s.Equal([]string{"nil filter provider", "filter provider is not comparable"}, s.warnings())
}

type taggedFilter struct {
	tags []string
}

func (taggedFilter) Operation() filtering.Operation { return opSave }
func (taggedFilter) Order() int                     { return 0 }
func (taggedFilter) Process(filtering.Context)      {}

func (s *HostTestSuite) TestInvalidFilters() {
	s.Run("NotComparable", func() {
		s.SetupTest()
		set := filtering.NewFilterSet(s.filter("ok", opSave, 0), taggedFilter{tags: []string{"x"}})

		s.False(s.host.AddFilters(set))
		s.False(s.host.HasFilters(opSave))
		s.NotPanics(func() {
			s.False(s.host.RemoveFilters(set))
		})
		s.Equal([]string{"filter is not comparable", "missing filter provider"}, s.warnings())
	})

	s.Run("Nil", func() {
		s.SetupTest()
		s.False(s.host.AddFilters(filtering.NewFilterSet(nil)))
		s.False(s.host.HasFilters(opSave))
		s.Equal([]string{"nil filter"}, s.warnings())
	})
}

func (s *HostTestSuite) TestSnapshotSurvivesMutation() {
	set := filtering.NewFilterSet(s.filter("F", opSave, 0))
	s.host.AddFilters(set)
	snapshot := s.host.InstanceFilters(opSave)

	s.host.AddFilters(filtering.NewFilterSet(s.filter("E", opSave, -1)))
	s.host.RemoveFilters(set)

	s.Len(snapshot, 1)
	s.Equal("F", snapshot[0].(*mock.RecordingFilter).Name)
}

func (s *HostTestSuite) TestFilterMayMutateHostDuringDispatch() {
	late := filtering.NewFilterSet(s.filter("late", opSave, 5))
	s.host.AddFilters(filtering.NewFilterSet(filtering.NewFilter(opSave, 0, func(filtering.Context) {
		s.trace.Add("adder")
		s.host.AddFilters(late)
	})))

	s.host.Process(opSave, mock.NewOperationContext(s.trace, ""))
	s.Equal([]string{"adder", "finalize"}, s.trace.Steps())
	s.True(s.host.HasFilters(opSave))
	s.Len(s.host.InstanceFilters(opSave), 2)
}

func (s *HostTestSuite) TestTypedFilter() {
	var payload string
	s.host.AddFilters(filtering.NewFilterSet(
		filtering.NewTypedFilter(opSave, 0, func(ctx *mock.OperationContext) {
			payload = ctx.Payload
		}),
	))

	s.host.Process(opSave, mock.NewOperationContext(nil, "hello"))
	s.Equal("hello", payload)

	s.NotPanics(func() {
		s.host.Process(opSave, filtering.NewDefaultContext(nil))
	})
}

func (s *HostTestSuite) TestZeroDefaultContext() {
	var ctx filtering.DefaultContext
	s.True(ctx.Next())
	s.True(ctx.ExecuteResult())
	s.NotPanics(ctx.Finalize)

	ctx.Cancel(true)
	s.False(ctx.Next())
	s.True(ctx.ExecuteResult())
}

func TestHostTestSuite(t *testing.T) {
	suite.Run(t, new(HostTestSuite))
}
