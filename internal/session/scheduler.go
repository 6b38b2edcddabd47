// Package session keeps an access credential for a remote API valid by
// renewing it ahead of expiry. The renewal time is derived from the access
// token's own "exp" claim, concurrent renewals are collapsed into one, and a
// failed renewal ends the session rather than retrying.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/example/tillpoint/internal/storage"
	"github.com/example/tillpoint/internal/utils"
)

const (
	// RefreshMargin is the lead time before expiry at which renewal fires.
	RefreshMargin = time.Minute
	// MinimumDelay floors the armed timer so clock skew cannot produce a
	// tight refresh loop.
	MinimumDelay = 5 * time.Second

	credentialKey = "credential"
)

var ErrNoCredential = errors.New("session: no credential")

// Credential is the token pair plus identity claims issued by the remote
// authentication API. Both tokens are present or the credential is absent.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	TenantID     string `json:"tenant_id"`
	Role         string `json:"role"`
	Email        string `json:"email"`
}

// Valid reports whether both halves of the token pair are present.
func (c *Credential) Valid() bool {
	return c != nil && c.AccessToken != "" && c.RefreshToken != ""
}

// AuthClient is the remote authentication API consumed by the scheduler.
type AuthClient interface {
	Refresh(ctx context.Context, refreshToken string) (*Credential, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// Scheduler owns one credential and the single timer armed against it.
type Scheduler struct {
	client AuthClient
	store  storage.KV

	mu          sync.Mutex
	cred        *Credential
	timer       *time.Timer
	lastRefresh time.Time
	lastErr     error
	closed      bool

	group singleflight.Group
}

// NewScheduler constructs a Scheduler persisting credentials into store.
func NewScheduler(client AuthClient, store storage.KV) *Scheduler {
	return &Scheduler{client: client, store: store}
}

// NextRefreshDelay computes how long to wait before renewing accessToken.
// It returns ok=false when the token's expiration cannot be determined, in
// which case no timer should be armed. A zero delay means renew immediately.
func NextRefreshDelay(accessToken string, now time.Time) (time.Duration, bool) {
	expiry, err := utils.DecodeExpiry(accessToken)
	if err != nil {
		return 0, false
	}

	remaining := expiry.Sub(now)
	if remaining <= RefreshMargin {
		return 0, true
	}

	delay := remaining - RefreshMargin
	if delay < MinimumDelay {
		delay = MinimumDelay
	}
	return delay, true
}

// SetCredential replaces the current credential, persists it, and re-arms the
// renewal timer against the new expiry.
func (s *Scheduler) SetCredential(ctx context.Context, cred *Credential) error {
	if !cred.Valid() {
		return ErrNoCredential
	}

	s.mu.Lock()
	s.stopTimerLocked()
	copied := *cred
	s.cred = &copied
	s.lastErr = nil
	s.mu.Unlock()

	if err := s.persist(ctx, cred); err != nil {
		return err
	}

	s.arm()
	return nil
}

// Restore loads a previously persisted credential, if any, and arms the timer.
func (s *Scheduler) Restore(ctx context.Context) error {
	raw, err := s.store.Get(ctx, credentialKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return err
	}
	if !cred.Valid() {
		return nil
	}

	s.mu.Lock()
	s.stopTimerLocked()
	s.cred = &cred
	s.mu.Unlock()

	s.arm()
	return nil
}

// Credential returns a copy of the current credential, or nil when logged out.
func (s *Scheduler) Credential() *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil
	}
	copied := *s.cred
	return &copied
}

// LastRefresh reports when the credential was last renewed successfully.
func (s *Scheduler) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// LastError reports the error that ended the session, if any.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Refresh renews the credential now. Concurrent callers share one request and
// one outcome. A failed renewal clears the credential and revokes the refresh
// token on a best-effort basis; no retry is scheduled.
func (s *Scheduler) Refresh(ctx context.Context) (*Credential, error) {
	result, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		s.mu.Lock()
		if s.cred == nil {
			s.mu.Unlock()
			return nil, ErrNoCredential
		}
		refreshToken := s.cred.RefreshToken
		s.mu.Unlock()

		cred, err := s.client.Refresh(ctx, refreshToken)
		if err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			s.clear(ctx, refreshToken)
			return nil, err
		}

		s.mu.Lock()
		s.stopTimerLocked()
		copied := *cred
		s.cred = &copied
		s.lastRefresh = time.Now()
		s.lastErr = nil
		s.mu.Unlock()

		if err := s.persist(ctx, cred); err != nil {
			log.Printf("[Session] failed to persist credential: %v", err)
		}

		s.arm()
		return cred, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Credential), nil
}

// Logout clears the credential and revokes the refresh token best-effort.
func (s *Scheduler) Logout(ctx context.Context) {
	s.mu.Lock()
	var refreshToken string
	if s.cred != nil {
		refreshToken = s.cred.RefreshToken
	}
	s.mu.Unlock()

	s.clear(ctx, refreshToken)
}

// Close cancels the pending timer; the credential stays persisted.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

func (s *Scheduler) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.cred == nil {
		return
	}

	delay, ok := NextRefreshDelay(s.cred.AccessToken, time.Now())
	if !ok {
		// Expiration unknown: renewal stays caller-driven.
		return
	}

	s.stopTimerLocked()
	s.timer = time.AfterFunc(delay, func() {
		if _, err := s.Refresh(context.Background()); err != nil {
			log.Printf("[Session] scheduled refresh failed: %v", err)
		}
	})
}

func (s *Scheduler) clear(ctx context.Context, refreshToken string) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.cred = nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx, credentialKey); err != nil {
		log.Printf("[Session] failed to clear stored credential: %v", err)
	}

	if refreshToken != "" {
		// The credential is being discarded either way.
		if err := s.client.Revoke(ctx, refreshToken); err != nil {
			log.Printf("[Session] revoke failed (ignored): %v", err)
		}
	}
}

func (s *Scheduler) persist(ctx context.Context, cred *Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, credentialKey, raw)
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
