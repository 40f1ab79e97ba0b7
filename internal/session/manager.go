// Package session owns the access/refresh token lifecycle: validity
// checks, coalesced refresh, scheduled background renewal and forced
// logout when the refresh token is rejected.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mwhitton/agentdash/internal/api"
	"github.com/mwhitton/agentdash/internal/credstore"
	"github.com/mwhitton/agentdash/pkg/logger"
	"github.com/mwhitton/agentdash/pkg/metrics"
	"github.com/mwhitton/agentdash/pkg/prefixed_uuid"
)

const (
	// DefaultExpiryThreshold is how close to expiry a token may be before
	// it is treated as already expired.
	DefaultExpiryThreshold = 120 * time.Second

	// DefaultRefreshLead is how long before expiry the automatic refresh
	// timer fires.
	DefaultRefreshLead = 2 * time.Minute

	refreshTokenTTL = 7 * 24 * time.Hour
)

// Refresher exchanges a refresh token for a new token pair. Implemented
// by *api.Client.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (api.TokenPair, error)
}

// Snapshot is the persisted summary of the logged-in user, kept alongside
// the token entries so the dashboard can restore state without a network
// round trip.
type Snapshot struct {
	User      api.User      `json:"user"`
	Tokens    api.TokenPair `json:"tokens"`
	LoginTime time.Time     `json:"login_time"`
	SessionID string        `json:"session_id"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// ManagerConfig holds the dependencies for a Manager. Store, Refresher,
// Logger and Metrics are required.
type ManagerConfig struct {
	Store     *credstore.Store
	Refresher Refresher
	Logger    logger.Logger
	Metrics   *metrics.Metrics

	// ExpiryThreshold and RefreshLead default to DefaultExpiryThreshold
	// and DefaultRefreshLead when zero.
	ExpiryThreshold time.Duration
	RefreshLead     time.Duration

	// OnLogout is invoked exactly once per forced or explicit logout with
	// a human-readable reason.
	OnLogout func(reason string)
}

// refreshCall is one in-flight refresh shared by every concurrent caller.
type refreshCall struct {
	done chan struct{}
	pair api.TokenPair
	err  error
}

// Manager guarantees that callers of Token always receive a non-expired
// access token, refreshing at most once no matter how many callers race,
// and tears the session down when a refresh is rejected outright.
type Manager struct {
	store     *credstore.Store
	refresher Refresher
	log       logger.Logger
	metrics   *metrics.Metrics
	threshold time.Duration
	lead      time.Duration
	onLogout  func(reason string)

	cache expiryCache
	now   func() time.Time

	mu       sync.Mutex
	inflight *refreshCall
	timer    *time.Timer
	active   bool
}

// NewManager creates a Manager. An existing refresh token in the store
// resumes the previous session.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.Refresher == nil {
		return nil, fmt.Errorf("refresher is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("metrics is required")
	}

	threshold := cfg.ExpiryThreshold
	if threshold <= 0 {
		threshold = DefaultExpiryThreshold
	}
	lead := cfg.RefreshLead
	if lead <= 0 {
		lead = DefaultRefreshLead
	}

	m := &Manager{
		store:     cfg.Store,
		refresher: cfg.Refresher,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		threshold: threshold,
		lead:      lead,
		onLogout:  cfg.OnLogout,
		now:       time.Now,
	}
	if _, ok := cfg.Store.Get(credstore.KeyRefreshToken); ok {
		m.active = true
	}
	return m, nil
}

// Login persists the credential triple and session snapshot from a
// successful login and arms the automatic refresh timer.
func (m *Manager) Login(resp api.LoginResponse) error {
	now := m.now()
	expiresAt, ok := decodeExpiry(resp.AccessToken)
	if !ok {
		expiresAt = now.Add(resp.AccessTokenTTL())
	}

	if err := m.persistTokens(resp.TokenPair, expiresAt); err != nil {
		return err
	}

	snapshot := Snapshot{
		User:      resp.User,
		Tokens:    resp.TokenPair,
		LoginTime: now,
		SessionID: prefixed_uuid.New("session").String(),
		ExpiresAt: expiresAt,
	}
	if err := m.saveSnapshot(snapshot); err != nil {
		return err
	}

	m.mu.Lock()
	m.active = true
	m.mu.Unlock()

	m.log.Info("session established",
		logger.StringField("user_id", resp.User.ID),
		logger.TimeField("expires_at", expiresAt))
	m.ScheduleAutomaticRefresh()
	return nil
}

// CurrentSnapshot returns the persisted session snapshot, if any.
func (m *Manager) CurrentSnapshot() (Snapshot, bool) {
	raw, ok := m.store.Get(credstore.KeyUserSession)
	if !ok {
		return Snapshot{}, false
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		m.log.Warn("discarding unreadable session snapshot", logger.ErrorField(err))
		return Snapshot{}, false
	}
	return snapshot, true
}

// HasValidAccessToken reports whether a stored access token exists and is
// not within the expiry threshold. Missing, malformed and expired tokens
// all report false; this never panics on bad input.
func (m *Manager) HasValidAccessToken() bool {
	token, ok := m.store.Get(credstore.KeyAccessToken)
	if !ok {
		return false
	}
	exp, ok := m.cache.expiry(token)
	if !ok {
		return false
	}
	return m.now().Add(m.threshold).Before(exp)
}

// IsExpiringSoon reports whether the access token is still valid but
// within the threshold of expiry.
func (m *Manager) IsExpiringSoon() bool {
	token, ok := m.store.Get(credstore.KeyAccessToken)
	if !ok {
		return false
	}
	exp, ok := m.cache.expiry(token)
	if !ok {
		return false
	}
	now := m.now()
	return now.Before(exp) && !now.Add(m.threshold).Before(exp)
}

// Refresh exchanges the stored refresh token for a new credential triple.
// Concurrent callers coalesce onto one network call and all receive the
// same result. A 401/403 from the backend is terminal: the session is
// torn down before the error is returned. Other failures leave the
// session intact so the caller may retry.
func (m *Manager) Refresh(ctx context.Context) (api.TokenPair, error) {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		m.metrics.TokenRefreshCoalesced.Inc()
		select {
		case <-call.done:
			return call.pair, call.err
		case <-ctx.Done():
			return api.TokenPair{}, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	call.pair, call.err = m.doRefresh(ctx)

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(call.done)

	return call.pair, call.err
}

func (m *Manager) doRefresh(ctx context.Context) (api.TokenPair, error) {
	refreshToken, ok := m.store.Get(credstore.KeyRefreshToken)
	if !ok {
		m.Logout("no refresh token available")
		return api.TokenPair{}, fmt.Errorf("no refresh token available")
	}

	m.metrics.TokenRefreshTotal.Inc()
	pair, err := m.refresher.RefreshToken(ctx, refreshToken)
	if err != nil {
		m.metrics.TokenRefreshFailures.Inc()
		if api.IsAuthError(err) {
			m.log.Warn("refresh token rejected, ending session", logger.ErrorField(err))
			m.Logout("refresh token expired or invalid")
			return api.TokenPair{}, err
		}
		m.log.Warn("token refresh failed, session kept", logger.ErrorField(err))
		return api.TokenPair{}, err
	}

	expiresAt, ok := decodeExpiry(pair.AccessToken)
	if !ok {
		expiresAt = m.now().Add(pair.AccessTokenTTL())
	}
	if err := m.persistTokens(pair, expiresAt); err != nil {
		return api.TokenPair{}, err
	}
	if snapshot, ok := m.CurrentSnapshot(); ok {
		snapshot.Tokens = pair
		snapshot.ExpiresAt = expiresAt
		if err := m.saveSnapshot(snapshot); err != nil {
			return api.TokenPair{}, err
		}
	}

	m.log.Debug("access token refreshed", logger.TimeField("expires_at", expiresAt))
	m.ScheduleAutomaticRefresh()
	return pair, nil
}

// EnsureValidToken reports whether a valid access token is available,
// refreshing first when needed. A missing refresh token forces a logout.
func (m *Manager) EnsureValidToken(ctx context.Context) bool {
	if m.HasValidAccessToken() {
		return true
	}
	if _, ok := m.store.Get(credstore.KeyRefreshToken); !ok {
		m.Logout("session expired")
		return false
	}
	_, err := m.Refresh(ctx)
	return err == nil
}

// Token implements api.TokenSource: it returns a non-expired access
// token, refreshing transparently when the stored one is stale.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if m.HasValidAccessToken() {
		if token, ok := m.store.Get(credstore.KeyAccessToken); ok {
			return token, nil
		}
	}
	pair, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// ScheduleAutomaticRefresh arms a one-shot timer that refreshes the
// access token shortly before it expires. Any previously armed timer is
// cancelled first, so at most one timer is ever outstanding.
func (m *Manager) ScheduleAutomaticRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelTimerLocked()

	token, ok := m.store.Get(credstore.KeyAccessToken)
	if !ok {
		return
	}
	exp, ok := m.cache.expiry(token)
	if !ok {
		return
	}

	delay := exp.Sub(m.now()) - m.lead
	if delay < 0 {
		delay = 0
	}

	m.timer = time.AfterFunc(delay, func() {
		if _, ok := m.store.Get(credstore.KeyRefreshToken); !ok {
			return
		}
		if _, err := m.Refresh(context.Background()); err != nil {
			m.log.Warn("scheduled token refresh failed", logger.ErrorField(err))
		}
	})
	m.log.Debug("automatic refresh scheduled", logger.DurationField("in", delay))
}

// StopAutomaticRefresh cancels any pending automatic refresh timer.
func (m *Manager) StopAutomaticRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Logout tears the session down: both token entries and both persisted
// session keys are removed, the pending refresh timer is cancelled and
// the OnLogout notification fires. Repeated calls after a session has
// ended are no-ops, so the notification is delivered exactly once.
func (m *Manager) Logout(reason string) {
	m.mu.Lock()
	wasActive := m.active
	m.active = false
	m.cancelTimerLocked()
	m.mu.Unlock()

	if err := m.store.Delete(
		credstore.KeyAccessToken,
		credstore.KeyRefreshToken,
		credstore.KeyUserSession,
		credstore.KeySignupOnboarding,
	); err != nil {
		m.log.Error("failed to clear credential store on logout", logger.ErrorField(err))
	}

	if !wasActive {
		return
	}

	m.metrics.ForcedLogouts.Inc()
	m.log.Info("session ended", logger.StringField("reason", reason))
	if m.onLogout != nil {
		m.onLogout(reason)
	}
}

func (m *Manager) persistTokens(pair api.TokenPair, expiresAt time.Time) error {
	ttl := pair.AccessTokenTTL()
	if ttl <= 0 {
		ttl = time.Until(expiresAt)
	}
	if err := m.store.Set(credstore.KeyAccessToken, pair.AccessToken, ttl); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	if err := m.store.Set(credstore.KeyRefreshToken, pair.RefreshToken, refreshTokenTTL); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}
	return nil
}

func (m *Manager) saveSnapshot(snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	// The snapshot carries its own expiry; it is not TTL-evicted so a
	// reload can still show who was logged in while a refresh runs.
	if err := m.store.Set(credstore.KeyUserSession, string(data), 0); err != nil {
		return fmt.Errorf("failed to persist session snapshot: %w", err)
	}
	return nil
}
