package learn_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhhjonson/courseselector/learn"
)

var testCreds = learn.Credentials{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	TenantID:     "tenant-id",
}

func newTokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func writeToken(t *testing.T, w http.ResponseWriter, token string) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   3599,
	})
	if err != nil {
		t.Errorf("failed to encode token: %v", err)
	}
}

func TestCredentialsTokenURL(t *testing.T) {
	assert.Equal(t,
		"https://login.microsoftonline.com/tenant-id/oauth2/v2.0/token",
		testCreds.TokenURL())
}

func TestAccessToken_Success(t *testing.T) {
	calls := 0
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		_, _, hasBasic := r.BasicAuth()
		assert.False(t, hasBasic, "credentials must be sent in the form body")

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, learn.DefaultScope, r.PostForm.Get("scope"))
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		writeToken(t, w, "token-abc")
	})

	p := learn.NewTokenProvider(testCreds, learn.WithTokenURL(srv.URL))

	token, ok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-abc", token)

	// No caching: a second call hits the endpoint again.
	_, _, err = p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestAccessToken_CustomScope(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "api://catalog/.default", r.PostForm.Get("scope"))
		writeToken(t, w, "scoped")
	})

	p := learn.NewTokenProvider(testCreds,
		learn.WithTokenURL(srv.URL),
		learn.WithScope("api://catalog/.default"),
		learn.WithHTTPClient(srv.Client()))

	token, ok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "scoped", token)
}

func TestAccessToken_Unauthorized(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"bad secret"}`))
	})

	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{})

	p := learn.NewTokenProvider(testCreds, learn.WithTokenURL(srv.URL), learn.WithLogger(logger))

	token, ok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"status"=401`)
	assert.True(t, strings.Contains(lines[0], "bad secret"), "log should carry the response body: %s", lines[0])
}

func TestAccessToken_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tokenURL := srv.URL
	srv.Close()

	p := learn.NewTokenProvider(testCreds, learn.WithTokenURL(tokenURL))

	token, ok, err := p.AccessToken(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)
}
