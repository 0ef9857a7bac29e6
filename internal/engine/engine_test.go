package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/spacesd/internal/engine"
	"github.com/vk/spacesd/internal/graph"
	"github.com/vk/spacesd/internal/model"
	"github.com/vk/spacesd/internal/provider"
	"github.com/vk/spacesd/internal/registry"
	"github.com/vk/spacesd/internal/scheduler"
	"github.com/vk/spacesd/internal/testutil"
)

// fixture bundles everything one engine run needs.
type fixture struct {
	graph *graph.Graph
	plan  *scheduler.Plan
	reg   *registry.Registry
	fakes map[string]*testutil.FakeProvider
}

// newFixture wires the canonical test project against fake providers.
func newFixture(t *testing.T, fakes map[string]*testutil.FakeProvider) *fixture {
	t.Helper()

	venvTest := testutil.Def(t, "virtualenv test", "", map[string]string{"path": "[env test]:workspace/venv"})
	venvTest.Uses = []model.ResourceID{testutil.MustID(t, "virtualenv")}

	defs := []*model.Definition{
		testutil.Def(t, "virtualenv", "Venv", map[string]string{"path": "/opt/venv"}),
		testutil.Def(t, "package paramiko", "Pip", map[string]string{"name": "paramiko"}),
		testutil.Def(t, "env test", "Env", map[string]string{"workspace": "/srv/ws"}),
		venvTest,
		testutil.Def(t, "repo test", "Git",
			map[string]string{"path": "[env test]:workspace/src", "origin": "https://example.com/test.git"},
			"virtualenv test"),
		testutil.Def(t, "package pytest", "Pip", map[string]string{"name": "pytest"}, "virtualenv test"),
		testutil.Def(t, "project test", "Space", nil,
			"repo test", "package paramiko", "package pytest", "env test", "virtualenv test"),
	}

	reg := testutil.NewRegistry(t, fakes)
	g, err := graph.Build(context.Background(), defs, testutil.MustID(t, "project test"), reg)
	require.NoError(t, err)
	plan, err := scheduler.Schedule(g)
	require.NoError(t, err)

	return &fixture{graph: g, plan: plan, reg: reg, fakes: fakes}
}

func defaultFakes() map[string]*testutil.FakeProvider {
	return map[string]*testutil.FakeProvider{
		"Venv":  {},
		"Pip":   {},
		"Env":   {},
		"Git":   {},
		"Space": {},
	}
}

// collect drains the report channel into a slice.
func collect(ch <-chan engine.Report) []engine.Report {
	var reports []engine.Report
	for r := range ch {
		reports = append(reports, r)
	}
	return reports
}

func reportFor(t *testing.T, reports []engine.Report, id string) engine.Report {
	t.Helper()
	want := testutil.MustID(t, id)
	for _, r := range reports {
		if r.ID == want {
			return r
		}
	}
	t.Fatalf("no report for %s", id)
	return engine.Report{}
}

func TestRun_AppliesEveryNodeOnce(t *testing.T) {
	fx := newFixture(t, defaultFakes())
	eng := engine.New(fx.graph, fx.plan, fx.reg, engine.Options{Workers: 1})

	reports := collect(eng.Run(context.Background()))
	require.Len(t, reports, 7)
	for _, r := range reports {
		assert.Equal(t, engine.Applied, r.Status, "node %s", r.ID.Bracket())
		assert.NoError(t, r.Err)
	}

	// One invocation per node, no more.
	total := 0
	for _, fake := range fx.fakes {
		total += fake.CallCount()
	}
	assert.Equal(t, 7, total)
}

func TestRun_EmitsReportsInPlanOrder(t *testing.T) {
	fx := newFixture(t, defaultFakes())
	eng := engine.New(fx.graph, fx.plan, fx.reg, engine.Options{Workers: 4})

	reports := collect(eng.Run(context.Background()))
	require.Len(t, reports, len(fx.plan.Order))
	for i, r := range reports {
		assert.Equal(t, fx.plan.Order[i], r.ID)
	}
}

func TestRun_SecondPassIsAlreadySatisfied(t *testing.T) {
	// Fakes that apply on first sight and report satisfied afterwards,
	// mimicking an idempotent provider probing real system state.
	var mu sync.Mutex
	ensured := make(map[string]bool)
	stateful := func(key string) func(context.Context, map[string]string) (*provider.Result, error) {
		return func(_ context.Context, attrs map[string]string) (*provider.Result, error) {
			mu.Lock()
			defer mu.Unlock()
			id := key + "/" + attrs["path"] + attrs["name"] + attrs["workspace"]
			if ensured[id] {
				return &provider.Result{Outcome: provider.AlreadySatisfied, Detail: "present"}, nil
			}
			ensured[id] = true
			return &provider.Result{Outcome: provider.Applied, Detail: "installed"}, nil
		}
	}
	fakes := map[string]*testutil.FakeProvider{
		"Venv":  {Fn: stateful("venv")},
		"Pip":   {Fn: stateful("pip")},
		"Env":   {Fn: stateful("env")},
		"Git":   {Fn: stateful("git")},
		"Space": {Fn: stateful("space")},
	}
	fx := newFixture(t, fakes)

	first := collect(engine.New(fx.graph, fx.plan, fx.reg, engine.Options{Workers: 2}).Run(context.Background()))
	for _, r := range first {
		assert.Equal(t, engine.Applied, r.Status, "node %s", r.ID.Bracket())
	}

	second := collect(engine.New(fx.graph, fx.plan, fx.reg, engine.Options{Workers: 2}).Run(context.Background()))
	for _, r := range second {
		assert.Equal(t, engine.AlreadySatisfied, r.Status, "node %s", r.ID.Bracket())
		assert.Equal(t, "present", r.Detail)
	}
}

func TestRun_SubstitutesReferencesBeforeInvocation(t *testing.T) {
	fx := newFixture(t, defaultFakes())
	eng := engine.New(fx.graph, fx.plan, fx.reg, engine.Options{Workers: 1})
	collect(eng.Run(context.Background()))

	venvCalls := fx.fakes["Venv"].Calls()
	require.Len(t, venvCalls, 2)
	// Plan order: [virtualenv] first, then [virtualenv test] with the
	// reference to [env test]:workspace expanded.
	assert.Equal(t, "/opt/venv", venvCalls[0]["path"])
	assert.Equal(t, "/srv/ws/venv", venvCalls[1]["path"])

	gitCalls := fx.fakes["Git"].Calls()
	require.Len(t, gitCalls, 1)
	assert.Equal(t, "/srv/ws/src", gitCalls[0]["path"])
}

func TestRun_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("SPACES_WS", "/home/ci")

	defs := []*model.Definition{
		testutil.Def(t, "virtualenv", "Venv", map[string]string{"path": "$SPACES_WS/venv"}),
	}
	fake := &testutil.FakeProvider{}
	reg := testutil.NewRegistry(t, map[string]*testutil.FakeProvider{"Venv": fake})
	g, err := graph.Build(context.Background(), defs, testutil.MustID(t, "virtualenv"), reg)
	require.NoError(t, err)
	plan, err := scheduler.Schedule(g)
	require.NoError(t, err)

	collect(engine.New(g, plan, reg, engine.Options{}).Run(context.Background()))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/home/ci/venv", calls[0]["path"])
}

func TestRun_FailurePropagation(t *testing.T) {
	fakes := defaultFakes()
	fakes["Venv"] = &testutil.FakeProvider{Err: errors.New("virtualenv binary not found")}
	fx := newFixture(t, fakes)

	reports := collect(engine.New(fx.graph, fx.plan, fx.reg, engine.Options{Workers: 2}).Run(context.Background()))
	require.Len(t, reports, 7)

	failed := reportFor(t, reports, "virtualenv")
	assert.Equal(t, engine.Failed, failed.Status)
	assert.EqualError(t, failed.Err, "virtualenv binary not found")

	// Independent siblings still run.
	assert.Equal(t, engine.Applied, reportFor(t, reports, "package paramiko").Status)
	assert.Equal(t, engine.Applied, reportFor(t, reports, "env test").Status)

	// Direct and transitive dependents are skipped, never invoked.
	venvTest := reportFor(t, reports, "virtualenv test")
	assert.Equal(t, engine.Skipped, venvTest.Status)
	assert.Equal(t, "dependency [virtualenv] failed", venvTest.Detail)

	assert.Equal(t, "dependency [virtualenv test] skipped", reportFor(t, reports, "package pytest").Detail)
	assert.Equal(t, "dependency [virtualenv test] skipped", reportFor(t, reports, "repo test").Detail)
	for _, id := range []string{"repo test", "package pytest", "project test"} {
		assert.Equal(t, engine.Skipped, reportFor(t, reports, id).Status, "node %s", id)
	}
	assert.Zero(t, fx.fakes["Git"].CallCount())
	assert.Zero(t, fx.fakes["Space"].CallCount())
}

func TestRun_ProviderTimeout(t *testing.T) {
	defs := []*model.Definition{
		testutil.Def(t, "package paramiko", "Pip", map[string]string{"name": "paramiko"}),
	}
	fake := &testutil.FakeProvider{Delay: 500 * time.Millisecond}
	reg := testutil.NewRegistry(t, map[string]*testutil.FakeProvider{"Pip": fake})
	g, err := graph.Build(context.Background(), defs, testutil.MustID(t, "package paramiko"), reg)
	require.NoError(t, err)
	plan, err := scheduler.Schedule(g)
	require.NoError(t, err)

	eng := engine.New(g, plan, reg, engine.Options{Timeout: 10 * time.Millisecond})
	reports := collect(eng.Run(context.Background()))
	require.Len(t, reports, 1)
	assert.Equal(t, engine.Failed, reports[0].Status)
	assert.Equal(t, engine.ReasonTimeout, reports[0].Detail)
	assert.Error(t, reports[0].Err)
}

func TestRun_CancelledContextSkipsEverything(t *testing.T) {
	fx := newFixture(t, defaultFakes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := collect(engine.New(fx.graph, fx.plan, fx.reg, engine.Options{Workers: 2}).Run(ctx))
	require.Len(t, reports, 7)
	for _, r := range reports {
		assert.Equal(t, engine.Skipped, r.Status, "node %s", r.ID.Bracket())
		assert.Equal(t, engine.ReasonAborted, r.Detail)
	}
	for name, fake := range fx.fakes {
		assert.Zero(t, fake.CallCount(), "provider %s", name)
	}
}

func TestRun_DistinctRunIDs(t *testing.T) {
	fx := newFixture(t, defaultFakes())
	a := engine.New(fx.graph, fx.plan, fx.reg, engine.Options{})
	b := engine.New(fx.graph, fx.plan, fx.reg, engine.Options{})
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "applied", engine.Applied.String())
	assert.Equal(t, "already-satisfied", engine.AlreadySatisfied.String())
	assert.Equal(t, "skipped", engine.Skipped.String())
	assert.Equal(t, "failed", engine.Failed.String())
}
