package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	accept  bool
	updates []bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !f.accept {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"user":{"id":"u-1","username":"budi","role":"customer"}}`))
	})
	mux.HandleFunc("/api/users/presence", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IsOnline bool `json:"is_online"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.updates = append(f.updates, body.IsOnline)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (f *fakeAPI) snapshot() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.updates...)
}

func isolateClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HEARTBEAT_SERVER_URL", "HEARTBEAT_TOKEN", "HEARTBEAT_INTERVAL", "HEARTBEAT_REQUEST_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestResolve_FlagsOverrideEnv(t *testing.T) {
	isolateClientEnv(t)
	t.Setenv("HEARTBEAT_SERVER_URL", "http://env:8080/")
	t.Setenv("HEARTBEAT_TOKEN", "env-token")

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--token", "flag-token", "--interval", "10s"}))

	cfg, err := resolve(cmd, &options{token: "flag-token", interval: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "http://env:8080", cfg.ServerURL)

	withServer := newRootCmd()
	require.NoError(t, withServer.Flags().Parse([]string{"--server", "http://flag:9090//"}))
	flagCfg, err := resolve(withServer, &options{server: "http://flag:9090//"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag:9090", flagCfg.ServerURL)
	assert.Equal(t, "flag-token", cfg.Token)
	assert.Equal(t, 10*time.Second, cfg.Interval)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestRun_HeartbeatsThenOfflineOnCancel(t *testing.T) {
	isolateClientEnv(t)
	api := &fakeAPI{accept: true}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--server", srv.URL, "--token", "abc", "--interval", "20ms", "--log-level", "error"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return len(api.snapshot()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("heartbeat command did not exit")
	}

	updates := api.snapshot()
	require.NotEmpty(t, updates)
	assert.False(t, updates[len(updates)-1], "last assertion is offline")
	for _, u := range updates[:len(updates)-1] {
		assert.True(t, u)
	}
}

func TestRun_RejectedIdentityExits(t *testing.T) {
	isolateClientEnv(t)
	api := &fakeAPI{accept: false}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--server", srv.URL, "--token", "bad", "--log-level", "error"})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errRejected)
	assert.Empty(t, api.snapshot(), "a rejected client never touches presence")
}
