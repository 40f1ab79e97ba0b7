package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), DefaultStoreFilename))
	require.NoError(t, err)
	return s
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyAccessToken, "jwt-value", time.Hour))

	got, ok := s.Get(KeyAccessToken)
	require.True(t, ok)
	assert.Equal(t, "jwt-value", got)

	_, ok = s.Get(KeyRefreshToken)
	assert.False(t, ok)
}

func TestExpiredEntriesReadAsAbsent(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(KeyAccessToken, "short-lived", time.Minute))

	_, ok := s.Get(KeyAccessToken)
	assert.True(t, ok)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok = s.Get(KeyAccessToken)
	assert.False(t, ok, "expired entry should read as absent")
}

func TestZeroTTLNeverExpires(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(KeyOnboarding, "true", 0))

	s.now = func() time.Time { return now.Add(1000 * time.Hour) }
	got, ok := s.Get(KeyOnboarding)
	require.True(t, ok)
	assert.Equal(t, "true", got)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyAccessToken, "a", time.Hour))
	require.NoError(t, s.Set(KeyRefreshToken, "r", time.Hour))
	require.NoError(t, s.Delete(KeyAccessToken, KeyRefreshToken, "missing-key"))

	_, ok := s.Get(KeyAccessToken)
	assert.False(t, ok)
	_, ok = s.Get(KeyRefreshToken)
	assert.False(t, ok)
}

func TestPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultStoreFilename)

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(KeyUserSession, `{"session_id":"session-1"}`, time.Hour))

	second, err := New(path)
	require.NoError(t, err)
	got, ok := second.Get(KeyUserSession)
	require.True(t, ok)
	assert.Equal(t, `{"session_id":"session-1"}`, got)
}

func TestCorruptFileFailsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultStoreFilename)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path)
	assert.Error(t, err)
}
