package proxyclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateUser(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/harness/create_user", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("user_id"))
		fmt.Fprint(w, `{"error":null}`)
	})

	c := New(srv.URL)
	require.NoError(t, c.CreateUser("alice", "alice-alias", 25.0))
}

func TestCreateKey(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/harness/create_key", r.URL.Path)
		fmt.Fprint(w, `{"key":"sk-abc","hash":"deadbeef"}`)
	})

	c := New(srv.URL)
	key, err := c.CreateKey("alice", "instance-1", 5.0)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", key.Key)
	assert.Equal(t, "deadbeef", key.Hash)
}

func TestQueryBalance(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user_usage":1.5,"key_usage":0.25}`)
	})

	c := New(srv.URL)
	bal, err := c.QueryBalance("alice", "sk-abc")
	require.NoError(t, err)
	require.NotNil(t, bal.UserUsage)
	require.NotNil(t, bal.KeyUsage)
	assert.Equal(t, 1.5, *bal.UserUsage)
	assert.Equal(t, 0.25, *bal.KeyUsage)
}

func TestGetReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := New(srv.URL)
	_, err := c.QueryBalance("alice", "sk-abc")
	assert.Error(t, err)
}

func TestHealthSupportsV1(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"compat":["v1","v0"]}`)
	})

	c := New(srv.URL)
	h, err := c.Health()
	require.NoError(t, err)
	assert.True(t, h.SupportsV1())
}

func TestHealthDoesNotSupportV1(t *testing.T) {
	h := Health{Compat: []string{"v0"}}
	assert.False(t, h.SupportsV1())
}
