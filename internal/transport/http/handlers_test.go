package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"vericred/internal/cache"
	"vericred/internal/platform/health"
	"vericred/internal/ratelimit"
	"vericred/internal/ratelimit/store"
	"vericred/internal/revocation"
	"vericred/internal/syncengine"
	"vericred/internal/syncengine/mocks"
	"vericred/pkg/vc"
)

type fixture struct {
	client *mocks.MockChainClient
	store  *cache.Memory
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockChainClient(ctrl)
	memStore := cache.NewMemory()

	engine, err := syncengine.New(client, memStore)
	require.NoError(t, err)

	h := NewHandler(engine, memStore, slog.Default())
	return &fixture{
		client: client,
		store:  memStore,
		router: NewRouter(h, health.New(), slog.Default(), nil, nil),
	}
}

func seedCredential(t *testing.T, memStore *cache.Memory, vcID string, revoked bool) {
	t.Helper()
	now := time.Now()
	require.NoError(t, memStore.Set(context.Background(), &cache.CachedCredential{
		VCID:       vcID,
		Credential: vc.Credential{ID: vcID},
		RevocationStatus: cache.RevocationStatus{
			IsRevoked: revoked,
			CheckedAt: now,
		},
		Metadata: cache.Metadata{
			CachedAt:  now,
			ExpiresAt: now.Add(time.Hour),
		},
	}))
}

func validRevocationList() *revocation.List {
	return &revocation.List{
		MerkleRoot:       strings.Repeat("ab", 32),
		Bitmap:           []byte{0x05},
		TotalCredentials: 8,
		RevokedCount:     2,
		UpdatedAt:        time.Now().UTC(),
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestCredentialStatusEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credentials/vc:missing/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seedCredential(t, f.store, "vc:123", true)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credentials/vc:123/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		VCID             string `json:"vc_id"`
		RevocationStatus struct {
			IsRevoked bool `json:"is_revoked"`
		} `json:"revocation_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "vc:123", body.VCID)
	assert.True(t, body.RevocationStatus.IsRevoked)
}

func TestCredentialSyncEndpointInsertsAndAnswers(t *testing.T) {
	f := newFixture(t)
	f.client.EXPECT().GetCredential(gomock.Any(), "vc:new").
		Return(&vc.Credential{ID: "vc:new", Issuer: "did:vericred:issuer"}, nil)
	f.client.EXPECT().IsCredentialRevoked(gomock.Any(), "vc:new").Return(false, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credentials/vc:new/sync", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	entry, err := f.store.Get(context.Background(), "vc:new")
	require.NoError(t, err)
	assert.False(t, entry.RevocationStatus.IsRevoked)
}

func TestSyncEndpointRunsPass(t *testing.T) {
	f := newFixture(t)
	f.client.EXPECT().GetRevocationList(gomock.Any()).Return(validRevocationList(), nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var result syncengine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.True(t, result.RevocationListUpdated)
}

func TestSyncEndpointAnswersConflictWhileRunning(t *testing.T) {
	f := newFixture(t)

	release := make(chan struct{})
	started := make(chan struct{})
	f.client.EXPECT().GetRevocationList(gomock.Any()).DoAndReturn(
		func(context.Context) (*revocation.List, error) {
			close(started)
			<-release
			return validRevocationList(), nil
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/sync", nil))
	}()
	<-started

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	wg.Wait()
}

func TestRevocationListEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revocation-list", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	list := validRevocationList()
	require.NoError(t, f.store.SetRevocationList(context.Background(), list))

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revocation-list", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		MerkleRoot string           `json:"merkle_root"`
		Stats      revocation.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, list.MerkleRoot, body.MerkleRoot)
	assert.Equal(t, 2, body.Stats.RevokedCount)
}

func TestValidateEndpoint(t *testing.T) {
	f := newFixture(t)
	seedCredential(t, f.store, "vc:bad", false)
	f.client.EXPECT().VerifyCredential(gomock.Any(), "vc:bad").
		Return(&vc.VerificationResult{Verified: false, Errors: []string{"revoked on chain"}}, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credentials/validate", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Invalid []string `json:"invalid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"vc:bad"}, body.Invalid)
}

func TestCredentialEndpointsAreRateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockChainClient(ctrl)
	memStore := cache.NewMemory()
	seedCredential(t, memStore, "vc:123", false)

	engine, err := syncengine.New(client, memStore)
	require.NoError(t, err)

	limiter, err := ratelimit.New(ratelimit.Config{
		MaxRequests:   1,
		Window:        time.Hour,
		BurstCapacity: 1,
	}, store.NewMemory())
	require.NoError(t, err)
	t.Cleanup(limiter.Stop)

	tiers, err := ratelimit.NewMultiTier(
		ratelimit.Tier{Name: "global", Limiter: mustLimiter(t, 1000)},
		ratelimit.Tier{Name: "verifier", Limiter: mustLimiter(t, 1000)},
		ratelimit.Tier{Name: "credential", Limiter: limiter},
	)
	require.NoError(t, err)

	h := NewHandler(engine, memStore, slog.Default())
	router := NewRouter(h, health.New(), slog.Default(), tiers, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credentials/vc:123/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credentials/vc:123/status", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Operational endpoints stay reachable while the verifier is throttled.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func mustLimiter(t *testing.T, maxRequests int) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.New(ratelimit.Config{
		MaxRequests:   maxRequests,
		Window:        time.Hour,
		BurstCapacity: float64(maxRequests),
	}, store.NewMemory())
	require.NoError(t, err)
	t.Cleanup(l.Stop)
	return l
}
