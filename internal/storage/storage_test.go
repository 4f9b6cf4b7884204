package storage

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfdesk/lms-client/internal/logger"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path, &logger.Logger{Logger: zerolog.New(io.Discard)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_GetMissingKey(t *testing.T) {
	s, _ := openTestStore(t)

	value, ok, err := s.Get("lms_auth")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestStore_SetOverwrites(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Set("lms_auth", "true"))
	require.NoError(t, s.Set("lms_auth", "false"))

	value, ok, err := s.Get("lms_auth")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", value)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"lms_auth"}, keys)
}

func TestStore_Delete(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Set("c", "3"))

	require.NoError(t, s.Delete("a", "c", "missing"))
	require.NoError(t, s.Delete())

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Set("borrowNow", `{"id":"7"}`))
	require.NoError(t, s.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get("borrowNow")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"7"}`, value)
}

func TestStore_Memory(t *testing.T) {
	s, err := Open(MemoryPath, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Health())
	require.NoError(t, s.Set("k", "v"))
	value, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}
