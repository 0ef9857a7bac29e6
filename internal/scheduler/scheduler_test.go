package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/spacesd/internal/graph"
	"github.com/vk/spacesd/internal/model"
	"github.com/vk/spacesd/internal/scheduler"
	"github.com/vk/spacesd/internal/testutil"
)

// buildSpace assembles the canonical test project: a virtualenv with a
// dependent interpreter environment, two packages, a repository checkout,
// and a project resource tying everything together.
func buildSpace(t *testing.T) *graph.Graph {
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

	g, err := graph.Build(context.Background(), defs, testutil.MustID(t, "project test"), nil)
	require.NoError(t, err)
	return g
}

func ids(t *testing.T, names ...string) []model.ResourceID {
	t.Helper()
	out := make([]model.ResourceID, len(names))
	for i, n := range names {
		out[i] = testutil.MustID(t, n)
	}
	return out
}

func TestSchedule_WaveGrouping(t *testing.T) {
	plan, err := scheduler.Schedule(buildSpace(t))
	require.NoError(t, err)

	assert.Equal(t, [][]model.ResourceID{
		ids(t, "env test", "package paramiko", "virtualenv"),
		ids(t, "virtualenv test"),
		ids(t, "package pytest", "repo test"),
		ids(t, "project test"),
	}, plan.Steps())

	assert.Equal(t, ids(t,
		"env test", "package paramiko", "virtualenv",
		"virtualenv test",
		"package pytest", "repo test",
		"project test",
	), plan.Order)
}

func TestSchedule_DependenciesPrecedeDependents(t *testing.T) {
	g := buildSpace(t)
	plan, err := scheduler.Schedule(g)
	require.NoError(t, err)

	position := make(map[model.ResourceID]int, len(plan.Order))
	for i, id := range plan.Order {
		position[id] = i
	}
	for _, id := range g.IDs() {
		for _, dep := range g.Deps(id) {
			assert.Less(t, position[dep], position[id],
				"%s must run before %s", dep.Bracket(), id.Bracket())
		}
	}
}

func TestSchedule_Deterministic(t *testing.T) {
	first, err := scheduler.Schedule(buildSpace(t))
	require.NoError(t, err)
	second, err := scheduler.Schedule(buildSpace(t))
	require.NoError(t, err)

	assert.Equal(t, first.Order, second.Order)
	assert.Equal(t, first.Steps(), second.Steps())
}

func TestSchedule_SingleNode(t *testing.T) {
	defs := []*model.Definition{testutil.Def(t, "env test", "Env", nil)}
	g, err := graph.Build(context.Background(), defs, testutil.MustID(t, "env test"), nil)
	require.NoError(t, err)

	plan, err := scheduler.Schedule(g)
	require.NoError(t, err)
	assert.Equal(t, ids(t, "env test"), plan.Order)
	assert.Equal(t, [][]model.ResourceID{ids(t, "env test")}, plan.Steps())
}
