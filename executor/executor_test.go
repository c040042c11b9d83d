package executor_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dnovikov/ironio-oauth/executor"
	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
	"github.com/dnovikov/ironio-oauth/token"
	"github.com/dnovikov/ironio-oauth/token/memstore"
	"github.com/stretchr/testify/require"
)

const serviceID = "IronIoOAuthService"

type testFixture struct {
	server *httptest.Server
	hits   atomic.Int32
	store  *memstore.InMemoryStore
	exec   *executor.Executor
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{store: memstore.New()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		switch r.URL.Path {
		case "/echo":
			body, _ := io.ReadAll(r.Body)
			_, _ = w.Write([]byte(r.Method + " " + r.Header.Get("Authorization") + " " + string(body)))
		case "/redirect":
			http.Redirect(w, r, "/echo", http.StatusFound)
		case "/set-cookie":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1"})
		case "/cookie":
			c, err := r.Cookie("session")
			if err != nil {
				http.Error(w, "no cookie", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(c.Value))
		case "/missing":
			http.Error(w, "nothing here", http.StatusNotFound)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))
	t.Cleanup(f.server.Close)
	f.exec = executor.New(f.store, serviceID, f.server.Client())
	return f
}

func TestExecutor_MissingToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec.Request(context.Background(), f.server.URL+"/echo")
	require.ErrorIs(t, err, ierrors.ErrMissingToken)

	var mte *executor.MissingTokenError
	require.ErrorAs(t, err, &mte)
	require.Equal(t, serviceID, mte.ServiceID)
	require.Zero(t, f.hits.Load(), "no request is sent without a token")
}

func TestExecutor_Request(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Put(serviceID, token.New("abc", 3600)))

	body, err := f.exec.Request(context.Background(), f.server.URL+"/echo")
	require.NoError(t, err)
	require.Equal(t, "GET Bearer abc ", string(body))
	require.EqualValues(t, 1, f.hits.Load())
}

func TestExecutor_Do(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Put(serviceID, token.New("abc", 3600)))

	body, err := f.exec.Do(context.Background(), http.MethodPost, f.server.URL+"/echo", strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, "POST Bearer abc hello", string(body))
}

func TestExecutor_StatusError(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Put(serviceID, token.New("abc", 3600)))

	body, err := f.exec.Request(context.Background(), f.server.URL+"/missing")
	var se *executor.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusNotFound, se.StatusCode)
	require.Contains(t, string(se.Body), "nothing here")
	require.Equal(t, se.Body, body)
}

func TestExecutor_ExpiredTokenIsStillSent(t *testing.T) {
	f := setupTestFixture(t)
	tok := token.New("stale", 60)
	tok.IssuedAt = time.Now().Add(-time.Hour)
	require.NoError(t, f.store.Put(serviceID, tok))

	body, err := f.exec.Request(context.Background(), f.server.URL+"/echo")
	require.NoError(t, err)
	require.Equal(t, "GET Bearer stale ", string(body))
}

func TestExecutor_TokenPickedUpAfterStore(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec.Request(context.Background(), f.server.URL)
	require.ErrorIs(t, err, ierrors.ErrMissingToken)

	require.NoError(t, f.store.Put(serviceID, token.New("later", 0)))
	body, err := f.exec.Request(context.Background(), f.server.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestExecutor_KeepsBaseClientPolicy(t *testing.T) {
	t.Run("redirect policy", func(t *testing.T) {
		f := setupTestFixture(t)
		base := f.server.Client()
		base.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		exec := executor.New(f.store, serviceID, base)
		require.NoError(t, f.store.Put(serviceID, token.New("abc", 3600)))

		_, err := exec.Request(context.Background(), f.server.URL+"/redirect")
		require.NoError(t, err)
		require.EqualValues(t, 1, f.hits.Load(), "redirect is not followed")
	})

	t.Run("cookie jar", func(t *testing.T) {
		f := setupTestFixture(t)
		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		base := f.server.Client()
		base.Jar = jar
		exec := executor.New(f.store, serviceID, base)
		require.NoError(t, f.store.Put(serviceID, token.New("abc", 3600)))

		_, err = exec.Request(context.Background(), f.server.URL+"/set-cookie")
		require.NoError(t, err)
		body, err := exec.Request(context.Background(), f.server.URL+"/cookie")
		require.NoError(t, err)
		require.Equal(t, "s1", string(body))
	})
}
