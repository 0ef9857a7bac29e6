package session_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/spacesd/internal/engine"
	"github.com/vk/spacesd/internal/provider"
	"github.com/vk/spacesd/internal/session"
	"github.com/vk/spacesd/internal/spacefile"
	"github.com/vk/spacesd/internal/testutil"
)

const testSpace = `
[virtualenv]
_provider: Venv
path: /opt/venv

[package paramiko]
_provider: Pip
name: paramiko

[env test]
_provider: Env
workspace: /srv/ws

[virtualenv test]
_use: [virtualenv]
path: [env test]:workspace/venv

[repo test]
_provider: Git
path: [env test]:workspace/src
origin: https://example.com/test.git

[package pytest]
_provider: Pip
name: pytest

[repo test] requires [virtualenv test]
[package pytest] requires [virtualenv test]

[project test]
_provider: Space

[project test] requires [repo test], [package paramiko], [package pytest], [env test], [virtualenv test]
`

// conn pairs a request reader with a response buffer.
type conn struct {
	io.Reader
	*bytes.Buffer
}

func (c *conn) Read(p []byte) (int, error) { return c.Reader.Read(p) }

func newConn(request string) *conn {
	return &conn{Reader: strings.NewReader(request), Buffer: &bytes.Buffer{}}
}

func (c *conn) lines() []string {
	out := strings.TrimRight(c.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func newHandler(t *testing.T, fakes map[string]*testutil.FakeProvider) *session.Handler {
	t.Helper()
	defs, err := spacefile.Parse(strings.NewReader(testSpace))
	require.NoError(t, err)
	reg := testutil.NewRegistry(t, fakes)
	return session.NewHandler(defs, testutil.MustID(t, "project test"), reg, engine.Options{Workers: 2})
}

func allFakes() map[string]*testutil.FakeProvider {
	return map[string]*testutil.FakeProvider{
		"Venv":  {},
		"Pip":   {},
		"Env":   {},
		"Git":   {},
		"Space": {},
	}
}

func TestServe_ProvideHappyPath(t *testing.T) {
	handler := newHandler(t, allFakes())
	c := newConn("PROVIDE\n")
	require.NoError(t, handler.Serve(context.Background(), c))

	lines := c.lines()
	// 1 plan header + 4 step lines + 7 CMD/STDOUT pairs + END.
	require.Len(t, lines, 1+4+14+1)

	assert.True(t, strings.HasPrefix(lines[0], "DESC provisioning plan "))
	assert.True(t, strings.HasSuffix(lines[0], " for [project test]"))

	assert.Equal(t, "DESC step 1: [env test], [package paramiko], [virtualenv]", lines[1])
	assert.Equal(t, "DESC step 2: [virtualenv test]", lines[2])
	assert.Equal(t, "DESC step 3: [package pytest], [repo test]", lines[3])
	assert.Equal(t, "DESC step 4: [project test]", lines[4])

	assert.Equal(t, "CMD ensure [env test] via Env", lines[5])
	assert.Equal(t, "STDOUT applied [ok]", lines[6])
	assert.Equal(t, "CMD ensure [virtualenv test] via Venv", lines[11])
	assert.Equal(t, "CMD ensure [project test] via Space", lines[17])

	assert.Equal(t, "END", lines[len(lines)-1])
}

func TestServe_ReportsProviderDetail(t *testing.T) {
	fakes := allFakes()
	fakes["Env"].Result = &provider.Result{Outcome: provider.Applied, Detail: "exported workspace"}
	handler := newHandler(t, fakes)
	c := newConn("PROVIDE\n")
	require.NoError(t, handler.Serve(context.Background(), c))

	assert.Contains(t, c.String(), "STDOUT exported workspace [ok]")
}

func TestServe_FailureTagsLines(t *testing.T) {
	fakes := allFakes()
	fakes["Git"] = &testutil.FakeProvider{Err: errors.New("clone failed: remote unreachable")}
	handler := newHandler(t, fakes)
	c := newConn("PROVIDE\n")
	require.NoError(t, handler.Serve(context.Background(), c))

	output := c.String()
	assert.Contains(t, output, "STDOUT clone failed: remote unreachable [failed]")
	assert.Contains(t, output, "STDOUT dependency [repo test] failed [skipped]")
	// The run still completes and closes the exchange.
	assert.True(t, strings.HasSuffix(strings.TrimRight(output, "\n"), "END"))
}

func TestServe_UnsupportedRequest(t *testing.T) {
	handler := newHandler(t, allFakes())
	c := newConn("REVERT\n")
	require.NoError(t, handler.Serve(context.Background(), c))

	assert.Equal(t, []string{"ERR unsupported request: REVERT"}, c.lines())
}

func TestServe_GraphErrorsBecomeErrLines(t *testing.T) {
	defs, err := spacefile.Parse(strings.NewReader("[project test]\n_provider: Space\nsrc: [repo missing]:path\n"))
	require.NoError(t, err)
	reg := testutil.NewRegistry(t, map[string]*testutil.FakeProvider{"Space": {}})
	handler := session.NewHandler(defs, testutil.MustID(t, "project test"), reg, engine.Options{})

	c := newConn("PROVIDE\n")
	require.NoError(t, handler.Serve(context.Background(), c))
	assert.Equal(t,
		[]string{"ERR unknown resource [repo missing] referenced by [project test]"},
		c.lines())
}

func TestServe_EmptyConnection(t *testing.T) {
	handler := newHandler(t, allFakes())
	c := newConn("")
	require.NoError(t, handler.Serve(context.Background(), c))
	assert.Empty(t, c.lines())
}

func TestServe_EachRequestIsAFreshRun(t *testing.T) {
	handler := newHandler(t, allFakes())

	first := newConn("PROVIDE\n")
	require.NoError(t, handler.Serve(context.Background(), first))
	second := newConn("PROVIDE\n")
	require.NoError(t, handler.Serve(context.Background(), second))

	planLine := func(c *conn) string { return c.lines()[0] }
	assert.NotEqual(t, planLine(first), planLine(second), "run identifiers must differ")
}
