package filestore_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dnovikov/ironio-oauth/token"
	"github.com/dnovikov/ironio-oauth/token/filestore"
	"github.com/dnovikov/ironio-oauth/token/storetest"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) token.Store {
		s, err := filestore.New(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")

	first, err := filestore.New(dir)
	require.NoError(t, err)
	require.NoError(t, first.Put("svc", token.New("abc", 3600)))

	second, err := filestore.New(dir)
	require.NoError(t, err)
	got, err := second.Get("svc")
	require.NoError(t, err)
	require.Equal(t, "abc", got.AccessToken)

	info, err := os.Stat(filepath.Join(dir, "token-svc.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_EscapesServiceID(t *testing.T) {
	dir := t.TempDir()
	s, err := filestore.New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put("../escape", token.New("abc", 60)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "token-") {
			names = append(names, e.Name())
		}
	}
	require.Equal(t, []string{"token-..%2Fescape.json"}, names)
}

func TestFileStore_ConcurrentFirstWriteWins(t *testing.T) {
	dir := t.TempDir()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate instances stand in for separate worker processes.
			s, err := filestore.New(dir)
			require.NoError(t, err)
			ok, err := s.PutIfAbsent("svc", token.New("abc", 60))
			require.NoError(t, err)
			if ok {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, stored)
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := filestore.New("")
	require.Error(t, err)
}
