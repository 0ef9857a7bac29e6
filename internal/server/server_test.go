package server_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/spacesd/internal/engine"
	"github.com/vk/spacesd/internal/server"
	"github.com/vk/spacesd/internal/session"
	"github.com/vk/spacesd/internal/spacefile"
	"github.com/vk/spacesd/internal/testutil"
)

func newTestHandler(t *testing.T) *session.Handler {
	t.Helper()
	defs, err := spacefile.Parse(strings.NewReader("[project demo]\n_provider: Space\n"))
	require.NoError(t, err)
	reg := testutil.NewRegistry(t, map[string]*testutil.FakeProvider{"Space": {}})
	return session.NewHandler(defs, testutil.MustID(t, "project demo"), reg, engine.Options{})
}

func TestListenAndServe_InvalidAddress(t *testing.T) {
	srv := server.New("definitely-not-an-address", newTestHandler(t))
	err := srv.ListenAndServe(context.Background())
	assert.Error(t, err)
}

func TestListenAndServe_StopsOnContextCancel(t *testing.T) {
	srv := server.New("127.0.0.1:0", newTestHandler(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}
