package heartbeat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wans112/web-toko/internal/domain"
)

type presenceHit struct {
	method string
	cookie string
	online bool
}

func newTestServer(t *testing.T, identityStatus int, hits chan<- presenceHit) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(IdentityPath, func(w http.ResponseWriter, r *http.Request) {
		if identityStatus != http.StatusOK {
			w.WriteHeader(identityStatus)
			_, _ = w.Write([]byte(`{"success":false}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user":    domain.Identity{ID: "u-1", Username: "budi", Role: domain.RoleCustomer},
		})
	})
	mux.HandleFunc(PresencePath, func(w http.ResponseWriter, r *http.Request) {
		var body presenceRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		cookie, _ := r.Cookie("token")
		hit := presenceHit{method: r.Method, online: body.IsOnline}
		if cookie != nil {
			hit.cookie = cookie.Value
		}
		hits <- hit
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_CheckIdentity(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		token   string
		wantErr error
	}{
		{name: "approved", status: http.StatusOK, token: "abc"},
		{name: "unauthorized", status: http.StatusUnauthorized, token: "abc", wantErr: ErrRejected},
		{name: "no token", status: http.StatusOK, token: "", wantErr: ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, make(chan presenceHit, 1))
			client, err := NewHTTPClient(HTTPClientConfig{ServerURL: srv.URL, Token: tt.token})
			require.NoError(t, err)

			identity, err := client.CheckIdentity(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u-1", identity.ID)
			assert.Equal(t, domain.RoleCustomer, identity.Role)
		})
	}
}

func TestHTTPClient_CheckIdentityServerError(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, make(chan presenceHit, 1))
	client, err := NewHTTPClient(HTTPClientConfig{ServerURL: srv.URL, Token: "abc"})
	require.NoError(t, err)

	_, err = client.CheckIdentity(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestHTTPClient_SetPresence(t *testing.T) {
	hits := make(chan presenceHit, 1)
	srv := newTestServer(t, http.StatusOK, hits)
	client, err := NewHTTPClient(HTTPClientConfig{ServerURL: srv.URL, Token: "abc"})
	require.NoError(t, err)

	require.NoError(t, client.SetPresence(context.Background(), true))

	hit := <-hits
	assert.Equal(t, http.MethodPatch, hit.method)
	assert.Equal(t, "abc", hit.cookie)
	assert.True(t, hit.online)
}

func TestHTTPClient_BeaconFlush(t *testing.T) {
	hits := make(chan presenceHit, 1)
	srv := newTestServer(t, http.StatusOK, hits)
	client, err := NewHTTPClient(HTTPClientConfig{ServerURL: srv.URL, Token: "abc", BeaconTimeout: time.Second})
	require.NoError(t, err)

	client.Beacon(false)

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer flushCancel()
	require.NoError(t, client.Flush(flushCtx))

	hit := <-hits
	assert.False(t, hit.online)
	assert.Equal(t, http.MethodPatch, hit.method)
}

func TestNewHTTPClient_RequiresServer(t *testing.T) {
	_, err := NewHTTPClient(HTTPClientConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
