package mc2000_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbench/chopper/generichttp"
	"github.com/lightbench/chopper/mc2000"
	"github.com/lightbench/chopper/server"
	"github.com/lightbench/chopper/server/middleware/locker"
)

func generichttpPost(path string) generichttp.MethodPath {
	return generichttp.MethodPath{Method: http.MethodPost, Path: path}
}

func newTestServer(t *testing.T, dev mc2000.Chopper) *httptest.Server {
	w := mc2000.NewHTTPWrapper(dev)
	r := chi.NewRouter()
	w.RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSetThenGetInternalFrequency(t *testing.T) {
	srv := newTestServer(t, mc2000.NewMockMC2000("", false))

	body, _ := json.Marshal(server.IntT{Int: 440})
	resp, err := http.Post(srv.URL+"/internal-frequency", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/internal-frequency")
	require.NoError(t, err)
	defer resp.Body.Close()
	var it server.IntT
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&it))
	assert.Equal(t, 440, it.Int)
}

func TestHTTPOutOfDomainSetIs500(t *testing.T) {
	srv := newTestServer(t, mc2000.NewMockMC2000("", false))
	body, _ := json.Marshal(server.IntT{Int: 9999})
	resp, err := http.Post(srv.URL+"/internal-frequency", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHTTPStatusSnapshot(t *testing.T) {
	dev := mc2000.NewMockMC2000("", false)
	require.NoError(t, dev.SetBladeType("MC1F60"))
	srv := newTestServer(t, dev)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var s mc2000.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, "MC1F60", s.BladeType)
	assert.Equal(t, 100, s.InternalFrequency)
}

func TestHTTPIdentification(t *testing.T) {
	srv := newTestServer(t, mc2000.NewMockMC2000("", false))
	resp, err := http.Get(srv.URL + "/id")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st server.StrT
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Contains(t, st.Str, "MC2000")
}

func TestHTTPRawOnRealControllerOnly(t *testing.T) {
	// the mock has no serial link, so /raw must not be routed for it
	mockWrap := mc2000.NewHTTPWrapper(mc2000.NewMockMC2000("", false))
	_, ok := mockWrap.RT()[generichttpPost("/raw")]
	assert.False(t, ok)

	realWrap := mc2000.NewHTTPWrapper(mc2000.NewFromConn(mc2000.NewSimulator()))
	_, ok = realWrap.RT()[generichttpPost("/raw")]
	assert.True(t, ok)
}

func TestLockedNodeReturns423(t *testing.T) {
	w := mc2000.NewHTTPWrapper(mc2000.NewMockMC2000("", false))
	lock := locker.New()
	locker.Inject(w, lock)
	r := chi.NewRouter()
	r.Use(lock.Check)
	w.RT().Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	body, _ := json.Marshal(server.BoolT{Bool: true})
	resp, err := http.Post(srv.URL+"/lock", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/internal-frequency")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	// the lock route itself stays reachable so the node can be unlocked
	body, _ = json.Marshal(server.BoolT{Bool: false})
	resp, err = http.Post(srv.URL+"/lock", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/internal-frequency")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
