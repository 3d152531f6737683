package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGetClear(t *testing.T) {
	s := NewStore(NewMemoryRepository())

	_, ok := s.Get()
	assert.False(t, ok, "fresh store must be logged out")

	require.NoError(t, s.Set("tok-1"))
	tok, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	require.NoError(t, s.Clear())
	_, ok = s.Get()
	assert.False(t, ok)

	// clearing twice is harmless
	require.NoError(t, s.Clear())
}

func TestStoreRejectsEmptyToken(t *testing.T) {
	s := NewStore(NewMemoryRepository())
	assert.ErrorIs(t, s.Set(""), ErrEmptyToken)
}

func TestStoresWithDifferentKeysAreIndependent(t *testing.T) {
	repo := NewMemoryRepository()
	a := NewStore(repo, WithKey("access_token:1"))
	b := NewStore(repo, WithKey("access_token:2"))

	require.NoError(t, a.Set("a"))
	_, ok := b.Get()
	assert.False(t, ok)

	require.NoError(t, b.Set("b"))
	require.NoError(t, a.Clear())
	tok, ok := b.Get()
	require.True(t, ok)
	assert.Equal(t, "b", tok)
}

func TestFileRepositoryPersistsAcrossInstances(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data", "session.json")

	repo, err := NewFileRepository(p)
	require.NoError(t, err)
	require.NoError(t, NewStore(repo).Set("persisted"))

	reopened, err := NewFileRepository(p)
	require.NoError(t, err)
	tok, ok := NewStore(reopened).Get()
	require.True(t, ok)
	assert.Equal(t, "persisted", tok)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"access_token": "persisted"`)

	st, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
}

func TestFileRepositoryMalformedFileReadsEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o600))

	repo, err := NewFileRepository(p)
	require.NoError(t, err)

	_, ok := NewStore(repo).Get()
	assert.False(t, ok)

	require.NoError(t, repo.Save(DefaultKey, "fresh"))
	v, ok, err := repo.Load(DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestFileRepositoryDeleteKeepsOtherKeys(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)

	require.NoError(t, repo.Save("a", "1"))
	require.NoError(t, repo.Save("b", "2"))
	require.NoError(t, repo.Delete("a"))

	_, ok, _ := repo.Load("a")
	assert.False(t, ok)
	v, ok, _ := repo.Load("b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "opaque token", token: "opaque-token", want: false},
		{name: "jwt without exp", token: signed(t, jwt.MapClaims{"sub": "u"}), want: false},
		{name: "jwt in the future", token: signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), want: false},
		{name: "jwt in the past", token: signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), want: true},
		{name: "jwt expiring now", token: signed(t, jwt.MapClaims{"exp": now.Unix()}), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(NewMemoryRepository())
			require.NoError(t, s.Set(tt.token))
			assert.Equal(t, tt.want, s.Expired(now))
		})
	}
}

func TestExpiredWithoutToken(t *testing.T) {
	assert.False(t, NewStore(NewMemoryRepository()).Expired(time.Now()))
}
