package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fuelprice/internal/httpx"
)

func TestNew_PooledDefaults(t *testing.T) {
	t.Parallel()

	c := httpx.New(30 * time.Second)
	require.Equal(t, 30*time.Second, c.HTTP.Timeout)
	require.Equal(t, httpx.ChromeUA, c.UserAgent)
	require.Equal(t, "ro-RO,ro;q=0.9,en-US;q=0.8,en;q=0.7", c.Headers["Accept-Language"])

	tr, ok := c.HTTP.Transport.(*http.Transport)
	require.True(t, ok)
	require.Equal(t, 30*time.Second, tr.ResponseHeaderTimeout)
}

func TestWithSession_SharesTransportKeepsOwnJar(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "abc", Path: "/"})
			return
		}
		if c, err := r.Cookie("PHPSESSID"); err == nil {
			_, _ = w.Write([]byte(c.Value))
		}
	}))
	defer srv.Close()

	c := httpx.New(5 * time.Second)
	a := c.WithSession()
	b := c.WithSession()
	require.Same(t, c.HTTP.Transport, a.Transport)
	require.Nil(t, c.HTTP.Jar)

	// Act: prime a session on a only.
	resp, err := a.Get(srv.URL + "/set")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "abc", body(t, a, srv.URL+"/get"))
	require.Equal(t, "", body(t, b, srv.URL+"/get"))
}

func body(t *testing.T, c *http.Client, url string) string {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return string(buf[:n])
}
