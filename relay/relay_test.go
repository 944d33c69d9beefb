/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-apiconsole/httpclient"
	"github.com/acronis/go-apiconsole/log/logtest"
	"github.com/acronis/go-apiconsole/restapi"
	"github.com/acronis/go-apiconsole/testutil"
)

type upstreamRequest struct {
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Query   string      `json:"query"`
	Headers http.Header `json:"headers"`
	Body    string      `json:"body"`
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(rw).Encode(upstreamRequest{
			Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Headers: r.Header, Body: string(body),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRouter(t *testing.T, cfg *Config, opts Opts) chi.Router {
	t.Helper()
	h, err := NewWithOpts(cfg, logtest.NewLogger(io.Discard), opts)
	require.NoError(t, err)
	router := chi.NewRouter()
	h.Routes(router)
	return router
}

func TestHandler_Forward(t *testing.T) {
	upstream := newUpstream(t)

	cfg := NewDefaultConfig()
	cfg.InjectHeaders = map[string]string{"X-Tenant": "acme"}
	router := newRouter(t, cfg, Opts{})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/users?limit=10", strings.NewReader(`{"name":"bob"}`))
	req.Header.Set(httpclient.OriginalBaseURLHeader, upstream.URL)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Token-Name", "token-name")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header().Get("Access-Control-Allow-Headers"), "X-Original-Base-Url")

	var got upstreamRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "/v2/users", got.Path)
	require.Equal(t, "limit=10", got.Query)
	require.Equal(t, `{"name":"bob"}`, got.Body)
	require.Equal(t, "acme", got.Headers.Get("X-Tenant"))
	require.Equal(t, "token-name", got.Headers.Get("X-API-Token-Name"))
	require.Empty(t, got.Headers.Get(httpclient.OriginalBaseURLHeader))
	require.NotEmpty(t, got.Headers.Get("X-Forwarded-For"))
}

func TestHandler_TargetWithBasePath(t *testing.T) {
	upstream := newUpstream(t)
	router := newRouter(t, NewDefaultConfig(), Opts{})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(httpclient.OriginalBaseURLHeader, upstream.URL+"/base")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var got upstreamRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "/base/users", got.Path)
}

func TestHandler_Preflight(t *testing.T) {
	var forwarded atomic.Bool
	upstream := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		forwarded.Store(true)
	}))
	defer upstream.Close()
	router := newRouter(t, NewDefaultConfig(), Opts{})

	for _, target := range []string{"", upstream.URL} {
		req := httptest.NewRequest(http.MethodOptions, "/api/anything", nil)
		if target != "" {
			req.Header.Set(httpclient.OriginalBaseURLHeader, target)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code, "target %q", target)
		require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, strings.Join(DefaultAllowedHeaders, ", "), resp.Header().Get("Access-Control-Allow-Headers"))
		require.Contains(t, resp.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	}
	require.False(t, forwarded.Load())
}

func TestHandler_Errors(t *testing.T) {
	upstream := newUpstream(t)
	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	tests := []struct {
		name        string
		allowed     []string
		target      string
		wantCode    int
		wantErrCode string
	}{
		{name: "missing target", target: "", wantCode: http.StatusBadRequest, wantErrCode: restapi.ErrCodeInvalidRequest},
		{name: "relative target", target: "/just/path", wantCode: http.StatusBadRequest, wantErrCode: restapi.ErrCodeInvalidRequest},
		{name: "unsupported scheme", target: "ftp://example.com", wantCode: http.StatusBadRequest, wantErrCode: restapi.ErrCodeInvalidRequest},
		{
			name:        "host is not allowed",
			allowed:     []string{"*.example.com"},
			target:      upstream.URL,
			wantCode:    http.StatusForbidden,
			wantErrCode: restapi.ErrCodeForbidden,
		},
		{
			name:        "unreachable target",
			allowed:     []string{"127.0.0.1:*"},
			target:      "http://127.0.0.1:1",
			wantCode:    http.StatusBadGateway,
			wantErrCode: restapi.ErrCodeBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.AllowedTargets = tt.allowed
			router := newRouter(t, cfg, Opts{})

			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.target != "" {
				req.Header.Set(httpclient.OriginalBaseURLHeader, tt.target)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
			testutil.RequireErrorInRecorder(t, resp, tt.wantCode, ErrDomain, tt.wantErrCode)
		})
	}

	t.Run("allowed host", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.AllowedTargets = []string{"*.example.com", upstreamURL.Hostname() + ":*"}
		router := newRouter(t, cfg, Opts{})

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			req.Header.Set(httpclient.OriginalBaseURLHeader, upstream.URL)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			require.Equal(t, http.StatusCreated, resp.Code)
		}
	})
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestHandler_TransportError(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	h, err := NewWithOpts(NewDefaultConfig(), logRecorder, Opts{Transport: failingTransport{}})
	require.NoError(t, err)
	router := chi.NewRouter()
	h.Routes(router)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/1", nil)
	req.Header.Set(httpclient.OriginalBaseURLHeader, "http://upstream.example.com")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	testutil.RequireErrorInRecorder(t, resp, http.StatusBadGateway, ErrDomain, restapi.ErrCodeBadGateway)
	entry, found := logRecorder.FindEntry("relay proxy error")
	require.True(t, found)
	require.Contains(t, entry.Text, "relay proxy error")
}

func TestNew_InvalidCacheSize(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.DecisionsCacheSize = 0
	_, err := New(cfg, logtest.NewLogger(io.Discard))
	require.Error(t, err)
}
