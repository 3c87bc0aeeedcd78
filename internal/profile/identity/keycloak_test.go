package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beneficiary/internal/sentinel"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/platform/circuit"
	"beneficiary/pkg/testutil"
)

type staticResolver map[id.UserID]string

func (r staticResolver) SSOID(_ context.Context, userID id.UserID) (string, error) {
	if s, ok := r[userID]; ok {
		return s, nil
	}
	return "", sentinel.ErrNotFound
}

type fakeKeycloak struct {
	tokenCalls atomic.Int32
	putCalls   atomic.Int32

	mu        sync.Mutex
	putStatus int
	lastBody  map[string]string
	lastAuth  string
	lastPath  string
}

func (f *fakeKeycloak) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putStatus = status
}

func (f *fakeKeycloak) last() (auth, path string, body map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth, f.lastPath, f.lastBody
}

func (f *fakeKeycloak) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /realms/beneficiary/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_id") != "profile-sync" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "svc-token", "expires_in": 300})
	})
	mux.HandleFunc("PUT /admin/realms/beneficiary/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.putCalls.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastAuth = r.Header.Get("Authorization")
		f.lastPath = r.URL.Path
		f.lastBody = map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		status := f.putStatus
		if status == 0 {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	})
	return mux
}

func newClient(t *testing.T, srv *httptest.Server, resolver SSOResolver, opts ...Option) *Keycloak {
	t.Helper()
	k, err := NewKeycloak(Config{
		BaseURL:      srv.URL + "/",
		Realm:        "beneficiary",
		ClientID:     "profile-sync",
		ClientSecret: "secret",
		HTTPClient:   srv.Client(),
	}, resolver, opts...)
	require.NoError(t, err)
	return k
}

func strPtr(s string) *string { return &s }

func TestUpdateNames(t *testing.T) {
	ctx := context.Background()
	userID := testutil.TestIDs.UserID1
	resolver := staticResolver{userID: "kc-123"}

	t.Run("puts names with a cached service token", func(t *testing.T) {
		fake := &fakeKeycloak{}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		k := newClient(t, srv, resolver)

		require.NoError(t, k.UpdateNames(ctx, userID, strPtr("Asha"), nil))
		require.NoError(t, k.UpdateNames(ctx, userID, strPtr("Asha"), strPtr("Patil")))

		assert.Equal(t, int32(1), fake.tokenCalls.Load())
		assert.Equal(t, int32(2), fake.putCalls.Load())
		auth, path, body := fake.last()
		assert.Equal(t, "Bearer svc-token", auth)
		assert.Equal(t, "/admin/realms/beneficiary/users/kc-123", path)
		assert.Equal(t, map[string]string{"firstName": "Asha", "lastName": "Patil"}, body)
	})

	t.Run("nothing to update", func(t *testing.T) {
		fake := &fakeKeycloak{}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		require.NoError(t, newClient(t, srv, resolver).UpdateNames(ctx, userID, nil, nil))
		assert.Zero(t, fake.putCalls.Load())
	})

	t.Run("unlinked user is skipped", func(t *testing.T) {
		fake := &fakeKeycloak{}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		err := newClient(t, srv, resolver).UpdateNames(ctx, testutil.TestIDs.UserID2, strPtr("A"), nil)
		require.NoError(t, err)
		assert.Zero(t, fake.putCalls.Load())
	})

	t.Run("unauthorized drops the cached token", func(t *testing.T) {
		fake := &fakeKeycloak{putStatus: http.StatusUnauthorized}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		k := newClient(t, srv, resolver)

		assert.Error(t, k.UpdateNames(ctx, userID, strPtr("A"), nil))
		fake.setStatus(http.StatusNoContent)
		assert.NoError(t, k.UpdateNames(ctx, userID, strPtr("A"), nil))
		assert.Equal(t, int32(2), fake.tokenCalls.Load())
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		fake := &fakeKeycloak{putStatus: http.StatusBadGateway}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		k := newClient(t, srv, resolver, WithBreaker(circuit.New("keycloak", circuit.WithFailureThreshold(2))))

		assert.Error(t, k.UpdateNames(ctx, userID, strPtr("A"), nil))
		assert.Error(t, k.UpdateNames(ctx, userID, strPtr("A"), nil))
		err := k.UpdateNames(ctx, userID, strPtr("A"), nil)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, int32(2), fake.putCalls.Load(), "open circuit makes no call")
	})
}

func TestNewKeycloakValidation(t *testing.T) {
	_, err := NewKeycloak(Config{Realm: "r", ClientID: "c"}, staticResolver{})
	assert.Error(t, err)
	_, err = NewKeycloak(Config{BaseURL: "http://kc", Realm: "r", ClientID: "c"}, nil)
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	assert.NoError(t, Disabled{}.UpdateNames(context.Background(), testutil.TestIDs.UserID1, strPtr("A"), nil))
}
