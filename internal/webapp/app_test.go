// ABOUTME: Test harness for the web app: an httptest server with a cookie-jar client
// ABOUTME: Helpers register members, log in, and post forms with the CSRF token attached

package webapp

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/pokercircle/internal/auth"
	"github.com/2389/pokercircle/internal/session"
	"github.com/2389/pokercircle/internal/store"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	app     *App
	store   *store.MockStore
	gate    *auth.Gate
	metrics *Metrics
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMockStore()
	signer, err := session.NewTokenSigner([]byte("test-secret-test-secret-test-secret!"))
	require.NoError(t, err)

	manager := session.NewManager(st, signer, session.Config{RotateOnAuth: true})
	gate := auth.NewGate(st, auth.GateConfig{
		Hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
		Limiter: auth.NewLoginLimiter(5, time.Minute),
	})
	metrics := NewMetrics()

	app, err := New(st, manager, gate, Config{Location: time.UTC, Metrics: metrics})
	require.NoError(t, err)
	app.now = func() time.Time { return testNow }

	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)

	return &testEnv{app: app, store: st, gate: gate, metrics: metrics, server: server}
}

// register creates a member directly through the gate.
func (e *testEnv) register(t *testing.T, number string, role store.Role) *store.Member {
	t.Helper()

	member, err := e.gate.Register(context.Background(), auth.RegisterInput{
		MemberNumber: number,
		DisplayName:  "Player " + number,
		Role:         role,
		Password:     "correct-horse",
	})
	require.NoError(t, err)
	return member
}

// testClient is a browser-like client that keeps cookies and does not follow redirects.
type testClient struct {
	env  *testEnv
	http *http.Client
}

func (e *testEnv) client(t *testing.T) *testClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testClient{
		env: e,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// loggedIn returns a client with a session bound to a freshly registered member.
func (e *testEnv) loggedIn(t *testing.T, number string, role store.Role) (*testClient, *store.Member) {
	t.Helper()

	member := e.register(t, number, role)
	c := e.client(t)
	resp := c.post(t, "/login", url.Values{"memberNumber": {number}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/platform", resp.Header.Get("Location"))
	return c, member
}

func (c *testClient) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := c.http.Get(c.env.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// post submits form with the client's CSRF token.
func (c *testClient) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", c.csrfToken(t))
	return c.postRaw(t, path, form)
}

func (c *testClient) postRaw(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := c.http.PostForm(c.env.server.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// csrfToken returns the CSRF cookie value, visiting the home page to obtain one if needed.
func (c *testClient) csrfToken(t *testing.T) string {
	t.Helper()

	u, err := url.Parse(c.env.server.URL)
	require.NoError(t, err)

	for attempt := 0; attempt < 2; attempt++ {
		for _, cookie := range c.http.Jar.Cookies(u) {
			if cookie.Name == CSRFCookieName {
				return cookie.Value
			}
		}
		c.get(t, "/")
	}
	t.Fatal("no CSRF cookie issued")
	return ""
}

// follow GETs the Location of a redirect response and returns the page body.
func (c *testClient) follow(t *testing.T, resp *http.Response) string {
	t.Helper()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode, "expected a redirect")
	next := c.get(t, resp.Header.Get("Location"))
	require.Equal(t, http.StatusOK, next.StatusCode)
	return readBody(t, next)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}
