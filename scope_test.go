package scoped_test

import (
	"errors"
	"testing"

	"github.com/centraunit/scoped"
	"github.com/centraunit/scoped/mock"
	"github.com/stretchr/testify/suite"
)

type ScopeTestSuite struct {
	suite.Suite
	root *scoped.Scope
}

func (s *ScopeTestSuite) SetupTest() {
	root, err := scoped.NewScope("root")
	s.Require().NoError(err)
	s.root = root
}

func (s *ScopeTestSuite) TestSelfRegistration() {
	self, err := s.root.Require("root")
	s.NoError(err)
	s.Same(s.root, self)

	app := &mock.App{Title: "demo"}
	scope, err := scoped.MakeScope("app", app)
	s.NoError(err)
	s.Same(scope, app.Scope())

	resolved, err := scope.Require("app")
	s.NoError(err)
	s.Same(app, resolved)
	s.Same(app, scope.Target())
}

func (s *ScopeTestSuite) TestRescopingIsIdempotent() {
	app := &mock.App{}
	first, err := scoped.MakeScope("app", app)
	s.NoError(err)

	second, err := scoped.MakeScope("other", app, scoped.WithServices(scoped.ServiceMap{
		"db": {scoped.NewFactory(mock.NewDatabase)},
	}))
	s.NoError(err)
	s.Same(first, second)
	s.Equal("app", second.Name())
	s.False(second.Has("db"))

	again, err := scoped.MakeScope("again", first)
	s.NoError(err)
	s.Same(first, again)
}

func (s *ScopeTestSuite) TestRequireResolutionMiss() {
	v, err := s.root.Require("missing")
	s.NoError(err)
	s.Nil(v)

	all, err := s.root.GetServices("missing")
	s.NoError(err)
	s.Empty(all)
}

func (s *ScopeTestSuite) TestRequireLastRegisteredWins() {
	for _, v := range []string{"a", "b", "c"} {
		s.NoError(s.root.Register("letters", scoped.NewStatic(v)))
	}

	last, err := s.root.Require("letters")
	s.NoError(err)
	s.Equal("c", last)

	all, err := s.root.GetServices("letters")
	s.NoError(err)
	s.Equal([]any{"a", "b", "c"}, all)
}

func (s *ScopeTestSuite) TestSingletonAndTransient() {
	singletons := &mock.Counter{}
	transients := &mock.Counter{}
	s.NoError(s.root.Register("singleton", scoped.NewFactory(singletons.Factory())))
	s.NoError(s.root.Register("transient", scoped.NewFactory(transients.Factory(), scoped.Transient())))

	a, err := s.root.Require("singleton")
	s.NoError(err)
	b, err := s.root.Require("singleton")
	s.NoError(err)
	s.Same(a, b)
	s.EqualValues(1, singletons.Count())

	c, err := s.root.Require("transient")
	s.NoError(err)
	d, err := s.root.Require("transient")
	s.NoError(err)
	s.NotSame(c, d)
	s.EqualValues(2, transients.Count())
}

func (s *ScopeTestSuite) TestGetServicesMixesLifetimes() {
	counter := &mock.Counter{}
	s.NoError(s.root.Register("db", scoped.NewFactory(counter.Factory())))
	s.NoError(s.root.Register("db", scoped.NewFactory(counter.Factory(), scoped.Transient())))

	first, err := s.root.GetServices("db")
	s.NoError(err)
	s.Len(first, 2)
	second, err := s.root.GetServices("db")
	s.NoError(err)

	s.Same(first[0], second[0])
	s.NotSame(first[1], second[1])
	s.EqualValues(3, counter.Count())
}

func (s *ScopeTestSuite) TestSingletonsArePerScope() {
	d := scoped.NewFactory((&mock.Counter{}).Factory())
	services := scoped.ServiceMap{"db": {d}}

	one, err := scoped.NewScope("one", scoped.WithServices(services))
	s.NoError(err)
	two, err := scoped.NewScope("two", scoped.WithServices(services))
	s.NoError(err)

	a, err := one.Require("db")
	s.NoError(err)
	b, err := two.Require("db")
	s.NoError(err)
	s.NotSame(a, b)

	child, err := one.MakeSubScope("child", nil)
	s.NoError(err)
	c, err := child.Require("db")
	s.NoError(err)
	s.NotSame(a, c, "unpinned singletons are owned by the scope that resolves them")
}

func (s *ScopeTestSuite) TestSubScopeCopiesServiceMap() {
	shared := scoped.NewStatic(&mock.Database{DSN: "shared"})
	s.NoError(s.root.Register("db", shared))

	child, err := s.root.MakeSubScope("child", nil)
	s.NoError(err)
	s.Same(s.root, child.Parent())

	s.NoError(s.root.Register("root-only", scoped.NewStatic(1)))
	s.NoError(child.Register("child-only", scoped.NewStatic(2)))

	s.False(child.Has("root-only"))
	s.False(s.root.Has("child-only"))
	s.Same(shared, child.Services()["db"][0])

	parent, err := child.Require("root")
	s.NoError(err)
	s.Same(s.root, parent)
}

func (s *ScopeTestSuite) TestRegisterNil() {
	err := s.root.Register("nil", nil)
	var nilErr *scoped.NilDescriptorError
	s.True(errors.As(err, &nilErr))
	s.Equal("nil", nilErr.Service)
}

func (s *ScopeTestSuite) TestInitializeRunsOnCreation() {
	var initialized []string
	hook := func(scope *scoped.Scope) error {
		initialized = append(initialized, scope.Name())
		return nil
	}

	outer, err := scoped.NewScope("outer", scoped.WithServices(scoped.ServiceMap{
		"everywhere": {scoped.NewStatic(1, scoped.OnInit(hook))},
		"pinned":     {scoped.NewStatic(2, scoped.OnInit(hook), scoped.InScope("outer"))},
	}))
	s.NoError(err)
	s.True(outer.Initialized())
	s.ElementsMatch([]string{"outer", "outer"}, initialized)

	initialized = nil
	_, err = outer.MakeSubScope("inner", nil)
	s.NoError(err)
	s.Equal([]string{"inner"}, initialized, "pinned descriptors only initialize in their own scope")
}

func (s *ScopeTestSuite) TestInitializeIsIncremental() {
	runs := 0
	hook := func(*scoped.Scope) error {
		runs++
		return nil
	}

	s.False(s.root.Initialized())
	s.NoError(s.root.Register("early", scoped.NewStatic(1, scoped.OnInit(hook))))
	s.Equal(0, runs)

	s.NoError(s.root.Initialize())
	s.Equal(1, runs)
	s.NoError(s.root.Initialize())
	s.Equal(1, runs)

	s.NoError(s.root.Register("late", scoped.NewStatic(2, scoped.OnInit(hook))))
	s.Equal(2, runs)

	s.NoError(s.root.Register("elsewhere", scoped.NewStatic(3, scoped.OnInit(hook), scoped.InScope("other"))))
	s.Equal(2, runs)
}

func (s *ScopeTestSuite) TestInitHookRegistersMore() {
	runs := 0
	inner := func(*scoped.Scope) error {
		runs++
		return nil
	}
	outer := func(scope *scoped.Scope) error {
		return scope.Register("added", scoped.NewStatic(1, scoped.OnInit(inner)))
	}

	_, err := scoped.NewScope("root", scoped.WithServices(scoped.ServiceMap{
		"registrar": {scoped.NewStatic(0, scoped.OnInit(outer))},
	}))
	s.NoError(err)
	s.Equal(1, runs)
}

func (s *ScopeTestSuite) TestInitHookError() {
	boom := errors.New("boom")
	_, err := scoped.NewScope("root", scoped.WithServices(scoped.ServiceMap{
		"broken": {scoped.NewStatic(1, scoped.OnInit(func(*scoped.Scope) error { return boom }))},
	}))

	var initErr *scoped.InitializationError
	s.True(errors.As(err, &initErr))
	s.Equal("broken", initErr.Service)
	s.ErrorIs(err, boom)
}

func (s *ScopeTestSuite) TestInitializeRetriesAfterHookError() {
	boom := errors.New("boom")
	failing := true
	runsA, runsB := 0, 0

	s.NoError(s.root.Register("a", scoped.NewStatic(1, scoped.OnInit(func(*scoped.Scope) error {
		runsA++
		if failing {
			return boom
		}
		return nil
	}))))
	s.NoError(s.root.Register("b", scoped.NewStatic(2, scoped.OnInit(func(*scoped.Scope) error {
		runsB++
		return nil
	}))))

	s.ErrorIs(s.root.Initialize(), boom)
	s.False(s.root.Initialized())
	s.Equal(1, runsA)
	s.Equal(0, runsB)

	failing = false
	s.NoError(s.root.Initialize())
	s.True(s.root.Initialized())
	s.Equal(2, runsA)
	s.Equal(1, runsB)

	s.NoError(s.root.Initialize())
	s.Equal(2, runsA)
	s.Equal(1, runsB)
}

func (s *ScopeTestSuite) TestRegisterRetriesAfterHookError() {
	s.NoError(s.root.Initialize())

	boom := errors.New("boom")
	failing := true
	runs := 0
	s.ErrorIs(s.root.Register("late", scoped.NewStatic(1, scoped.OnInit(func(*scoped.Scope) error {
		runs++
		if failing {
			return boom
		}
		return nil
	}))), boom)
	s.Equal(1, runs)

	failing = false
	s.NoError(s.root.Initialize())
	s.Equal(2, runs)
}

func (s *ScopeTestSuite) TestFailedMakeScopeLeavesTargetUnscoped() {
	boom := errors.New("boom")
	app := &mock.App{}

	scope, err := scoped.MakeScope("app", app, scoped.WithServices(scoped.ServiceMap{
		"broken": {scoped.NewStatic(1, scoped.OnInit(func(*scoped.Scope) error { return boom }))},
	}))
	s.ErrorIs(err, boom)
	s.Nil(scope)
	s.Nil(app.Scope())

	scope, err = scoped.MakeScope("app2", app, scoped.WithServices(scoped.ServiceMap{
		"db": {scoped.NewFactory(mock.NewDatabase)},
	}))
	s.Require().NoError(err)
	s.Same(scope, app.Scope())
	s.True(scope.Initialized())
	s.Equal("app2", scope.Name())
	s.True(scope.Has("db"))
}

func (s *ScopeTestSuite) TestTypedNilTargetIsRejected() {
	var app *mock.App

	scope, err := scoped.MakeScope("app", app)
	s.Nil(scope)
	var nilErr *scoped.NilTargetError
	s.Require().True(errors.As(err, &nilErr), "got %v", err)
	s.Equal("app", nilErr.Scope)
	s.Equal("*mock.App", nilErr.Type)

	_, err = s.root.MakeSubScope("child", (*mock.Bus)(nil))
	s.True(errors.As(err, &nilErr))
}

func (s *ScopeTestSuite) TestEventHandlersOnScope() {
	var got []any
	handler := func(args ...any) { got = append(got, args...) }

	scope, err := scoped.NewScope("root", scoped.WithServices(scoped.ServiceMap{
		"listener": {scoped.NewStatic(1, scoped.OnEvent("ready", handler))},
	}))
	s.NoError(err)

	scope.Emit("ready", "a", 1)
	scope.Emit("unknown", "ignored")
	s.Equal([]any{"a", 1}, got)
}

func (s *ScopeTestSuite) TestEventHandlersOnHostEmitter() {
	fired := 0
	bus := &mock.Bus{}
	scope, err := scoped.MakeScope("bus", bus, scoped.WithServices(scoped.ServiceMap{
		"listener": {scoped.NewStatic(1,
			scoped.OnEvent("tick", func(...any) { fired++ }),
			scoped.OnEvent("tick", func(...any) { fired += 10 }),
		)},
	}))
	s.NoError(err)

	scope.Emit("tick")
	s.Equal(0, fired)
	bus.Fire("tick")
	s.Equal(11, fired)
}

func TestScopeSuite(t *testing.T) {
	suite.Run(t, new(ScopeTestSuite))
}
