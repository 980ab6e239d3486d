package syncengine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"vericred/internal/cache"
	"vericred/internal/revocation"
	"vericred/internal/syncengine/mocks"
	dErrors "vericred/pkg/domain-errors"
	"vericred/pkg/vc"
)

// fakeClient is a func-field ChainClient for tests that need scripted
// per-credential behavior; nil fields return zero values.
type fakeClient struct {
	getCredential       func(ctx context.Context, vcID string) (*vc.Credential, error)
	isCredentialRevoked func(ctx context.Context, vcID string) (bool, error)
	getRevocationList   func(ctx context.Context) (*revocation.List, error)
	verifyCredential    func(ctx context.Context, vcID string) (*vc.VerificationResult, error)
}

func (f *fakeClient) GetCredential(ctx context.Context, vcID string) (*vc.Credential, error) {
	if f.getCredential == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no credential scripted")
	}
	return f.getCredential(ctx, vcID)
}

func (f *fakeClient) IsCredentialRevoked(ctx context.Context, vcID string) (bool, error) {
	if f.isCredentialRevoked == nil {
		return false, nil
	}
	return f.isCredentialRevoked(ctx, vcID)
}

func (f *fakeClient) GetRevocationList(ctx context.Context) (*revocation.List, error) {
	if f.getRevocationList == nil {
		return testList(8), nil
	}
	return f.getRevocationList(ctx)
}

func (f *fakeClient) VerifyCredential(ctx context.Context, vcID string) (*vc.VerificationResult, error) {
	if f.verifyCredential == nil {
		return &vc.VerificationResult{Verified: true}, nil
	}
	return f.verifyCredential(ctx, vcID)
}

func testList(total int, revoked ...int) *revocation.List {
	data := make([]byte, (total+7)/8)
	for _, i := range revoked {
		data[i>>3] |= 1 << (i & 7)
	}
	return &revocation.List{
		MerkleRoot:       strings.Repeat("ab", 32),
		Bitmap:           data,
		TotalCredentials: total,
		RevokedCount:     len(revoked),
		UpdatedAt:        time.Now(),
	}
}

func seedEntry(t *testing.T, store cache.Store, vcID string, revoked bool, cachedAt time.Time) {
	t.Helper()
	err := store.Set(context.Background(), &cache.CachedCredential{
		VCID:       vcID,
		Credential: vc.Credential{ID: vcID, Issuer: "did:vericred:issuer"},
		IssuerDID:  "did:vericred:issuer",
		RevocationStatus: cache.RevocationStatus{
			IsRevoked: revoked,
			CheckedAt: cachedAt,
		},
		Metadata: cache.Metadata{
			CachedAt:  cachedAt,
			ExpiresAt: cachedAt.Add(24 * time.Hour),
		},
	})
	require.NoError(t, err)
}

func TestSyncUpdatesRevocationList(t *testing.T) {
	store := cache.NewMemory()
	list := testList(16, 3, 9)
	client := &fakeClient{
		getRevocationList: func(context.Context) (*revocation.List, error) { return list, nil },
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	result := engine.Sync(context.Background())

	assert.True(t, result.Success)
	assert.True(t, result.RevocationListUpdated)
	assert.Empty(t, result.Errors)
	assert.False(t, result.LastSyncTime.IsZero())

	cached, err := store.RevocationList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, list.MerkleRoot, cached.MerkleRoot)
	assert.Equal(t, list.Bitmap, cached.Bitmap)

	last, err := store.LastSyncTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.LastSyncTime, last)
}

func TestSyncPartialFailure(t *testing.T) {
	store := cache.NewMemory()
	now := time.Now()
	seedEntry(t, store, "vc:a", false, now)
	seedEntry(t, store, "vc:b", false, now)
	seedEntry(t, store, "vc:c", false, now)

	client := &fakeClient{
		isCredentialRevoked: func(_ context.Context, vcID string) (bool, error) {
			switch vcID {
			case "vc:a":
				return true, nil
			case "vc:b":
				return false, dErrors.New(dErrors.CodeNetwork, "connection reset")
			default:
				return false, nil
			}
		},
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	result := engine.Sync(context.Background())

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorTypeNetwork, result.Errors[0].Type)
	assert.Equal(t, "vc:b", result.Errors[0].VCID)
	assert.True(t, result.Errors[0].Recoverable)

	// The failing credential does not stop its siblings.
	assert.Equal(t, 2, result.CredentialsSynced)
	require.NotNil(t, result.Stats)
	assert.Equal(t, 3, result.Stats.CredentialsChecked)
	assert.Equal(t, 1, result.Stats.CredentialsUpdated)

	a, err := store.Get(context.Background(), "vc:a")
	require.NoError(t, err)
	assert.True(t, a.RevocationStatus.IsRevoked)
	assert.Equal(t, strings.Repeat("ab", 32), a.RevocationStatus.MerkleRoot)

	b, err := store.Get(context.Background(), "vc:b")
	require.NoError(t, err)
	assert.False(t, b.RevocationStatus.IsRevoked)

	// The attempt timestamp moves even though the pass failed.
	last, err := store.LastSyncTime(context.Background())
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestSyncRejectsOverlappingPass(t *testing.T) {
	store := cache.NewMemory()
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	client := &fakeClient{
		getRevocationList: func(context.Context) (*revocation.List, error) {
			startedOnce.Do(func() { close(started) })
			<-release
			return testList(8), nil
		},
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Sync(context.Background())
	}()
	<-started

	result := engine.Sync(context.Background())
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorTypeUnknown, result.Errors[0].Type)
	assert.Equal(t, "Sync already in progress", result.Errors[0].Message)
	assert.Nil(t, result.Stats)

	close(release)
	wg.Wait()

	// The guard resets once the first pass drains.
	assert.True(t, engine.Sync(context.Background()).Success)
}

func TestForceSyncOverridesGuard(t *testing.T) {
	store := cache.NewMemory()
	engine, err := New(&fakeClient{}, store)
	require.NoError(t, err)

	engine.state.Store(stateSyncing)

	blocked := engine.Sync(context.Background())
	require.Len(t, blocked.Errors, 1)
	assert.Equal(t, "Sync already in progress", blocked.Errors[0].Message)

	forced := engine.ForceSync(context.Background())
	assert.True(t, forced.Success)
}

func TestSyncListFetchFailureContinuesPass(t *testing.T) {
	store := cache.NewMemory()
	seedEntry(t, store, "vc:a", false, time.Now())

	client := &fakeClient{
		getRevocationList: func(context.Context) (*revocation.List, error) {
			return nil, dErrors.New(dErrors.CodeNetwork, "chain unreachable")
		},
		isCredentialRevoked: func(context.Context, string) (bool, error) { return true, nil },
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	result := engine.Sync(context.Background())

	assert.False(t, result.Success)
	assert.False(t, result.RevocationListUpdated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorTypeRevocation, result.Errors[0].Type)

	// Per-credential reconciliation still ran; no root to stamp, though.
	assert.Equal(t, 1, result.CredentialsSynced)
	a, err := store.Get(context.Background(), "vc:a")
	require.NoError(t, err)
	assert.True(t, a.RevocationStatus.IsRevoked)
	assert.Empty(t, a.RevocationStatus.MerkleRoot)
}

func TestSyncRejectsInvalidList(t *testing.T) {
	store := cache.NewMemory()
	bad := testList(16)
	bad.Bitmap = bad.Bitmap[:1] // wrong length for the declared total
	client := &fakeClient{
		getRevocationList: func(context.Context) (*revocation.List, error) { return bad, nil },
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	result := engine.Sync(context.Background())

	assert.False(t, result.Success)
	assert.False(t, result.RevocationListUpdated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorTypeRevocation, result.Errors[0].Type)

	_, err = store.RevocationList(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSyncCredentialStatusInsertsMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := cache.NewMemory()

	fixed := time.Now().UTC().Truncate(time.Second)
	issued := fixed.Add(-time.Hour)

	client := mocks.NewMockChainClient(ctrl)
	client.EXPECT().GetCredential(gomock.Any(), "vc:new").Return(&vc.Credential{
		ID:       "vc:new",
		Issuer:   "did:vericred:issuer",
		Holder:   "did:vericred:holder",
		IssuedAt: &issued,
	}, nil)
	client.EXPECT().IsCredentialRevoked(gomock.Any(), "vc:new").Return(true, nil)

	engine, err := New(client, store)
	require.NoError(t, err)
	engine.now = func() time.Time { return fixed }

	require.NoError(t, engine.SyncCredentialStatus(context.Background(), "vc:new"))

	entry, err := store.Get(context.Background(), "vc:new")
	require.NoError(t, err)
	assert.Equal(t, vc.DID("did:vericred:holder"), entry.HolderDID)
	assert.True(t, entry.RevocationStatus.IsRevoked)
	assert.Equal(t, fixed, entry.RevocationStatus.CheckedAt)
	assert.Equal(t, fixed, entry.Metadata.CachedAt)
	// No credential expiry means the default retention window applies.
	assert.Equal(t, fixed.Add(time.Hour), entry.Metadata.ExpiresAt)
}

func TestSyncCredentialStatusHonorsEarlierCredentialExpiry(t *testing.T) {
	store := cache.NewMemory()
	fixed := time.Now().UTC().Truncate(time.Second)
	soon := fixed.Add(10 * time.Minute)

	client := &fakeClient{
		getCredential: func(_ context.Context, vcID string) (*vc.Credential, error) {
			return &vc.Credential{ID: vcID, ExpiresAt: &soon}, nil
		},
	}
	engine, err := New(client, store)
	require.NoError(t, err)
	engine.now = func() time.Time { return fixed }

	require.NoError(t, engine.SyncSingleCredential(context.Background(), "vc:short"))

	entry, err := store.Get(context.Background(), "vc:short")
	require.NoError(t, err)
	assert.Equal(t, soon, entry.Metadata.ExpiresAt)
}

func TestSyncCredentialStatusRefreshesPresent(t *testing.T) {
	store := cache.NewMemory()
	seedEntry(t, store, "vc:a", false, time.Now())

	client := &fakeClient{
		getCredential: func(context.Context, string) (*vc.Credential, error) {
			t.Fatal("present credentials must not be re-fetched")
			return nil, nil
		},
		isCredentialRevoked: func(context.Context, string) (bool, error) { return true, nil },
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	require.NoError(t, engine.SyncCredentialStatus(context.Background(), "vc:a"))

	entry, err := store.Get(context.Background(), "vc:a")
	require.NoError(t, err)
	assert.True(t, entry.RevocationStatus.IsRevoked)
}

func TestSyncCredentialStatusPropagatesFailure(t *testing.T) {
	store := cache.NewMemory()
	seedEntry(t, store, "vc:a", false, time.Now())

	client := &fakeClient{
		isCredentialRevoked: func(context.Context, string) (bool, error) {
			return false, dErrors.New(dErrors.CodeNetwork, "timeout")
		},
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	err = engine.SyncCredentialStatus(context.Background(), "vc:a")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetwork))
	assert.Contains(t, err.Error(), "vc:a")
}

func TestRemoveStaleCredentials(t *testing.T) {
	store := cache.NewMemory()
	fixed := time.Now().UTC().Truncate(time.Second)
	seedEntry(t, store, "vc:old", false, fixed.Add(-3*time.Hour))
	seedEntry(t, store, "vc:older", false, fixed.Add(-5*time.Hour))
	seedEntry(t, store, "vc:fresh", false, fixed.Add(-time.Minute))

	engine, err := New(&fakeClient{}, store)
	require.NoError(t, err)
	engine.now = func() time.Time { return fixed }

	removed, err := engine.RemoveStaleCredentials(context.Background(), 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ids, err := store.AllCredentialIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vc:fresh"}, ids)
}

func TestValidateCachedCredentialsFailClosed(t *testing.T) {
	store := cache.NewMemory()
	now := time.Now()
	seedEntry(t, store, "vc:good", false, now)
	seedEntry(t, store, "vc:bad", false, now)
	seedEntry(t, store, "vc:unreachable", false, now)

	client := &fakeClient{
		verifyCredential: func(_ context.Context, vcID string) (*vc.VerificationResult, error) {
			switch vcID {
			case "vc:good":
				return &vc.VerificationResult{Verified: true}, nil
			case "vc:bad":
				return &vc.VerificationResult{Verified: false, Errors: []string{"signature mismatch"}}, nil
			default:
				return nil, dErrors.New(dErrors.CodeNetwork, "lookup failed")
			}
		},
	}
	engine, err := New(client, store)
	require.NoError(t, err)

	invalid, err := engine.ValidateCachedCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vc:bad", "vc:unreachable"}, invalid)

	good, err := store.Get(context.Background(), "vc:good")
	require.NoError(t, err)
	require.NotNil(t, good.LastVerification)
	assert.True(t, good.LastVerification.Verified)

	bad, err := store.Get(context.Background(), "vc:bad")
	require.NoError(t, err)
	require.NotNil(t, bad.LastVerification)
	assert.False(t, bad.LastVerification.Verified)
	assert.Equal(t, []string{"signature mismatch"}, bad.LastVerification.Errors)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, cache.NewMemory())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

	_, err = New(&fakeClient{}, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}
