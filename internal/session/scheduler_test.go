package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tillpoint/internal/storage"
)

func tokenWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"exp": exp.Unix()})
	require.NoError(t, err)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestNextRefreshDelayAheadOfExpiry(t *testing.T) {
	now := time.Now()
	token := tokenWithExp(t, now.Add(10*time.Minute))

	delay, ok := NextRefreshDelay(token, now)

	require.True(t, ok)
	// Unix() truncates to seconds, so allow a second of slack.
	assert.InDelta(t, (9 * time.Minute).Seconds(), delay.Seconds(), 1.1)
	assert.GreaterOrEqual(t, delay, MinimumDelay)
}

func TestNextRefreshDelayFlooredAtMinimum(t *testing.T) {
	now := time.Now()
	// Just past the margin: the raw delay would be ~2s.
	token := tokenWithExp(t, now.Add(RefreshMargin+2*time.Second))

	delay, ok := NextRefreshDelay(token, now)

	require.True(t, ok)
	assert.Equal(t, MinimumDelay, delay)
}

func TestNextRefreshDelayImmediateWithinMargin(t *testing.T) {
	now := time.Now()

	for _, exp := range []time.Time{
		now.Add(30 * time.Second),
		now.Add(-10 * time.Second),
	} {
		delay, ok := NextRefreshDelay(tokenWithExp(t, exp), now)
		require.True(t, ok)
		assert.Equal(t, time.Duration(0), delay)
	}
}

func TestNextRefreshDelayUnknownExpiry(t *testing.T) {
	for _, token := range []string{
		"",
		"not-a-jwt",
		"a.b",
		"a.!!!.c",
		"a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c",
		"a." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".c",
	} {
		_, ok := NextRefreshDelay(token, time.Now())
		assert.False(t, ok, "token %q should have unknown expiry", token)
	}
}

type stubAuthClient struct {
	mu           sync.Mutex
	refreshCalls int
	revokeCalls  int
	revokedToken string

	block  chan struct{}
	result *Credential
	err    error
}

func (c *stubAuthClient) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	c.mu.Lock()
	c.refreshCalls++
	c.mu.Unlock()

	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func (c *stubAuthClient) Revoke(ctx context.Context, refreshToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revokeCalls++
	c.revokedToken = refreshToken
	return nil
}

func (c *stubAuthClient) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshCalls, c.revokeCalls
}

func testCredential(t *testing.T, ttl time.Duration) *Credential {
	return &Credential{
		AccessToken:  tokenWithExp(t, time.Now().Add(ttl)),
		RefreshToken: "refresh-1",
		UserID:       "u-1",
		TenantID:     "t-1",
		Role:         "cashier",
		Email:        "cashier@example.com",
	}
}

func TestConcurrentRefreshSharesOneRequest(t *testing.T) {
	renewed := testCredential(t, time.Hour)
	renewed.RefreshToken = "refresh-2"
	client := &stubAuthClient{
		block:  make(chan struct{}),
		result: renewed,
	}
	sched := NewScheduler(client, storage.NewMemoryKV())
	defer sched.Close()

	require.NoError(t, sched.SetCredential(context.Background(), testCredential(t, time.Hour)))

	var wg sync.WaitGroup
	results := make([]*Credential, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = sched.Refresh(context.Background())
		}(i)
	}

	// Let both callers reach the in-flight request before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(client.block)
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "refresh-2", results[i].RefreshToken)
	}

	refreshes, _ := client.counts()
	assert.Equal(t, 1, refreshes, "overlapping calls must share one network request")
}

func TestRefreshSuccessReplacesAndPersistsCredential(t *testing.T) {
	renewed := testCredential(t, 2*time.Hour)
	renewed.RefreshToken = "refresh-2"
	client := &stubAuthClient{result: renewed}
	store := storage.NewMemoryKV()
	sched := NewScheduler(client, store)
	defer sched.Close()

	require.NoError(t, sched.SetCredential(context.Background(), testCredential(t, time.Hour)))
	before := sched.LastRefresh()

	cred, err := sched.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", cred.RefreshToken)
	assert.Equal(t, "refresh-2", sched.Credential().RefreshToken)
	assert.True(t, sched.LastRefresh().After(before))

	raw, err := store.Get(context.Background(), credentialKey)
	require.NoError(t, err)
	var stored Credential
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestRefreshFailureClearsCredentialAndRevokes(t *testing.T) {
	failure := errors.New("upstream said no")
	client := &stubAuthClient{err: failure}
	store := storage.NewMemoryKV()
	sched := NewScheduler(client, store)
	defer sched.Close()

	require.NoError(t, sched.SetCredential(context.Background(), testCredential(t, time.Hour)))

	_, err := sched.Refresh(context.Background())
	require.ErrorIs(t, err, failure)

	assert.Nil(t, sched.Credential(), "failed refresh must log the session out")
	assert.ErrorIs(t, sched.LastError(), failure)

	_, err = store.Get(context.Background(), credentialKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, revokes := client.counts()
	assert.Equal(t, 1, revokes)
	assert.Equal(t, "refresh-1", client.revokedToken)

	// A second refresh after the terminal failure finds no credential.
	_, err = sched.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestScheduledRefreshFiresWhenTokenNearExpiry(t *testing.T) {
	renewed := testCredential(t, time.Hour)
	renewed.RefreshToken = "refresh-2"
	client := &stubAuthClient{result: renewed}
	sched := NewScheduler(client, storage.NewMemoryKV())
	defer sched.Close()

	// Within the margin: the timer fires immediately instead of waiting.
	require.NoError(t, sched.SetCredential(context.Background(), testCredential(t, 30*time.Second)))

	assert.Eventually(t, func() bool {
		cred := sched.Credential()
		return cred != nil && cred.RefreshToken == "refresh-2"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRestoreLoadsPersistedCredential(t *testing.T) {
	store := storage.NewMemoryKV()
	cred := testCredential(t, time.Hour)
	raw, err := json.Marshal(cred)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), credentialKey, raw))

	sched := NewScheduler(&stubAuthClient{}, store)
	defer sched.Close()

	require.NoError(t, sched.Restore(context.Background()))
	restored := sched.Credential()
	require.NotNil(t, restored)
	assert.Equal(t, cred.RefreshToken, restored.RefreshToken)
}

func TestLogoutClearsAndRevokes(t *testing.T) {
	client := &stubAuthClient{}
	store := storage.NewMemoryKV()
	sched := NewScheduler(client, store)
	defer sched.Close()

	require.NoError(t, sched.SetCredential(context.Background(), testCredential(t, time.Hour)))
	sched.Logout(context.Background())

	assert.Nil(t, sched.Credential())
	_, revokes := client.counts()
	assert.Equal(t, 1, revokes)
}
