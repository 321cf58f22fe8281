package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	logins    atomic.Int32
	posts     atomic.Int32
	ttl       time.Duration
	noCookie  bool
	loginCode int
	loginWait time.Duration
	failAfter int32 // logins after this many are rejected; 0 never

	mu          sync.Mutex
	lastCookie  string
	lastAccount string

	postStatus int
	postBody   string
}

func (f *fakeExchange) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		n := f.logins.Add(1)
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.APIKey == "" {
			t.Errorf("login without api key: %v", err)
		}
		if f.loginWait > 0 {
			time.Sleep(f.loginWait)
		}
		if f.loginCode != 0 {
			w.WriteHeader(f.loginCode)
			return
		}
		if f.failAfter > 0 && n > f.failAfter {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !f.noCookie {
			w.Header().Set(HeaderAccountID, "ACC-1")
			http.SetCookie(w, &http.Cookie{
				Name:    CookieName,
				Value:   "tok-" + time.Now().Format("150405.000000000"),
				Path:    "/",
				Expires: time.Now().Add(f.ttl),
			})
		}
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})
	mux.HandleFunc("/full/v1/echo", func(w http.ResponseWriter, r *http.Request) {
		f.posts.Add(1)
		f.mu.Lock()
		f.lastCookie = r.Header.Get("Cookie")
		f.lastAccount = r.Header.Get(HeaderAccountID)
		f.mu.Unlock()
		if f.postStatus != 0 {
			w.WriteHeader(f.postStatus)
			_, _ = w.Write([]byte(f.postBody))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"ok":true}}`))
	})
	return mux
}

func newTestManager(t *testing.T, f *fakeExchange, mutate func(*Options)) (*Manager, string) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	opts := Options{
		APIKey:       "test-key",
		EdgeURL:      srv.URL,
		LoginTimeout: 2 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewManager(opts), srv.URL + "/full/v1/echo"
}

type echoResponse struct {
	Result struct {
		OK bool `json:"ok"`
	} `json:"result"`
}

func TestEnsureFresh_LongLivedSessionLogsInOnce(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour}
	m, _ := newTestManager(t, f, nil)

	assert.Equal(t, StateNoSession, m.State())
	require.NoError(t, m.EnsureFresh(context.Background()))
	require.NoError(t, m.EnsureFresh(context.Background()))
	require.NoError(t, m.EnsureFresh(context.Background()))

	assert.Equal(t, int32(1), f.logins.Load())
	assert.Equal(t, StateActive, m.State())
	c := m.Cookie()
	require.NotNil(t, c)
	assert.Equal(t, "ACC-1", c.AccountID)
	assert.Greater(t, c.TTL(time.Now()), RefreshMargin)
}

func TestEnsureFresh_ShortLivedSessionRefreshesEveryCall(t *testing.T) {
	f := &fakeExchange{ttl: 3 * time.Second}
	m, _ := newTestManager(t, f, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.EnsureFresh(context.Background()))
	}
	assert.Equal(t, int32(3), f.logins.Load())
	assert.Equal(t, StateStale, m.State())
}

func TestEnsureFresh_RefreshesWhenClockPassesMargin(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour}
	var offset atomic.Int64
	m, _ := newTestManager(t, f, func(o *Options) {
		o.Now = func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }
	})

	require.NoError(t, m.EnsureFresh(context.Background()))
	assert.Equal(t, int32(1), f.logins.Load())

	offset.Store(int64(time.Hour - 4*time.Second))
	assert.Equal(t, StateStale, m.State())
	require.NoError(t, m.EnsureFresh(context.Background()))
	assert.Equal(t, int32(2), f.logins.Load())
}

func TestEnsureFresh_ConcurrentCallersShareOneLogin(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour, loginWait: 100 * time.Millisecond}
	m, _ := newTestManager(t, f, nil)

	const callers = 32
	var wg sync.WaitGroup
	errs := make([]error, callers)
	cookies := make([]*Cookie, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.EnsureFresh(context.Background())
			cookies[i] = m.Cookie()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.logins.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, cookies[0], cookies[i])
	}
}

func TestPost_MissingAPIKeyFailsBeforeNetwork(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour}
	m, url := newTestManager(t, f, func(o *Options) { o.APIKey = "" })

	err := m.Post(context.Background(), url, map[string]string{"a": "b"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.Configuration))
	assert.Equal(t, int32(0), f.logins.Load())
	assert.Equal(t, int32(0), f.posts.Load())

	err = m.EnsureFresh(context.Background())
	assert.True(t, errors.Is(err, apperrors.Configuration))
}

func TestPost_AttachesSessionHeaders(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour}
	m, url := newTestManager(t, f, nil)

	var out echoResponse
	require.NoError(t, m.Post(context.Background(), url, map[string]string{"a": "b"}, &out))
	assert.True(t, out.Result.OK)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, CookieName+"="+m.Cookie().Token, f.lastCookie)
	assert.Equal(t, "ACC-1", f.lastAccount)
}

func TestPost_LoginWithoutCookieProceedsAndRetriesNextCall(t *testing.T) {
	f := &fakeExchange{noCookie: true}
	m, url := newTestManager(t, f, nil)

	require.NoError(t, m.Post(context.Background(), url, nil, nil))
	assert.Equal(t, int32(1), f.logins.Load())
	assert.Equal(t, int32(1), f.posts.Load())
	assert.Equal(t, StateNoSession, m.State())
	f.mu.Lock()
	assert.Empty(t, f.lastCookie)
	f.mu.Unlock()

	require.NoError(t, m.Post(context.Background(), url, nil, nil))
	assert.Equal(t, int32(2), f.logins.Load())
}

func TestEnsureFresh_RejectedLoginIsNotRetried(t *testing.T) {
	f := &fakeExchange{loginCode: http.StatusUnauthorized}
	m, _ := newTestManager(t, f, func(o *Options) { o.LoginRetries = 3 })

	err := m.EnsureFresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.RefreshFailed))
	assert.Equal(t, int32(1), f.logins.Load())
	assert.Nil(t, m.Cookie())
}

func TestEnsureFresh_ServerErrorIsRetried(t *testing.T) {
	f := &fakeExchange{loginCode: http.StatusBadGateway}
	m, _ := newTestManager(t, f, func(o *Options) { o.LoginRetries = 2 })

	err := m.EnsureFresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), f.logins.Load())
}

func TestEnsureFresh_LoginTimeout(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour, loginWait: 500 * time.Millisecond}
	m, _ := newTestManager(t, f, func(o *Options) { o.LoginTimeout = 50 * time.Millisecond })

	err := m.EnsureFresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.RefreshFailed))
	assert.Equal(t, StateNoSession, m.State())
}

func TestEnsureFresh_CallerCancellation(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour, loginWait: 300 * time.Millisecond}
	m, _ := newTestManager(t, f, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.EnsureFresh(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// The shared login keeps going for everyone else.
	require.Eventually(t, func() bool { return m.State() == StateActive }, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), f.logins.Load())
}

func TestPost_StructuredErrorIsReturnedVerbatim(t *testing.T) {
	f := &fakeExchange{
		ttl:        time.Hour,
		postStatus: http.StatusBadRequest,
		postBody:   `{"code":2001,"message":"Order price is invalid","status":400}`,
	}
	m, url := newTestManager(t, f, nil)

	err := m.Post(context.Background(), url, nil, nil)
	var exErr *apperrors.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, 2001, exErr.Code)
	assert.Equal(t, "Order price is invalid", exErr.Message)
	assert.Equal(t, 400, exErr.Status)
}

func TestPost_StructuredErrorWithoutStatusTakesHTTPStatus(t *testing.T) {
	f := &fakeExchange{
		ttl:        time.Hour,
		postStatus: http.StatusTooManyRequests,
		postBody:   `{"code":1006,"message":"rate limited"}`,
	}
	m, url := newTestManager(t, f, nil)

	var exErr *apperrors.ExchangeError
	require.ErrorAs(t, m.Post(context.Background(), url, nil, nil), &exErr)
	assert.Equal(t, http.StatusTooManyRequests, exErr.Status)
}

func TestPost_UnparseableErrorBecomesGeneric500(t *testing.T) {
	f := &fakeExchange{
		ttl:        time.Hour,
		postStatus: http.StatusBadGateway,
		postBody:   `<html>bad gateway</html>`,
	}
	m, url := newTestManager(t, f, nil)

	var exErr *apperrors.ExchangeError
	require.ErrorAs(t, m.Post(context.Background(), url, nil, nil), &exErr)
	assert.Equal(t, *apperrors.InternalServerError(), *exErr)
}

func TestPost_TransportFailureBecomesGeneric500(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour}
	m, _ := newTestManager(t, f, nil)
	require.NoError(t, m.EnsureFresh(context.Background()))

	var exErr *apperrors.ExchangeError
	require.ErrorAs(t, m.Post(context.Background(), "http://127.0.0.1:1/full/v1/echo", nil, nil), &exErr)
	assert.Equal(t, 500, exErr.Code)
	assert.Equal(t, 500, exErr.Status)
}

func TestPostPublic_SendsNoSession(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour}
	m, url := newTestManager(t, f, func(o *Options) { o.APIKey = "" })

	require.NoError(t, m.PostPublic(context.Background(), url, nil, nil))
	assert.Equal(t, int32(0), f.logins.Load())
	assert.Equal(t, int32(1), f.posts.Load())
}

func TestPostPublic_AfterLoginSendsNoCookie(t *testing.T) {
	f := &fakeExchange{ttl: time.Hour}
	m, url := newTestManager(t, f, nil)

	require.NoError(t, m.Post(context.Background(), url, nil, nil))
	f.mu.Lock()
	assert.Equal(t, CookieName+"="+m.Cookie().Token, f.lastCookie)
	f.mu.Unlock()

	require.NoError(t, m.PostPublic(context.Background(), url, nil, nil))
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.lastCookie)
	assert.Empty(t, f.lastAccount)
}

func TestPost_FailedRefreshSendsNoStaleCookie(t *testing.T) {
	f := &fakeExchange{ttl: 3 * time.Second, failAfter: 1}
	m, url := newTestManager(t, f, nil)

	require.NoError(t, m.Post(context.Background(), url, nil, nil))
	f.mu.Lock()
	first := f.lastCookie
	f.mu.Unlock()
	assert.Equal(t, CookieName+"="+m.Cookie().Token, first)

	// The 3s session is inside the refresh margin, so this call logs in
	// again, is rejected, and goes out without a session.
	require.NoError(t, m.Post(context.Background(), url, nil, nil))
	assert.Equal(t, int32(2), f.logins.Load())
	assert.Equal(t, StateNoSession, m.State())
	assert.Nil(t, m.Cookie())

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.NotContains(t, f.lastCookie, CookieName+"=")
	assert.Empty(t, f.lastAccount)
}

func TestCookieFromResponse(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{}
	h.Set(HeaderAccountID, "ACC-9")

	c := cookieFromResponse([]*http.Cookie{{Name: "other", Value: "x"}, {Name: CookieName, Value: "v", MaxAge: 60}}, h, now)
	require.NotNil(t, c)
	assert.Equal(t, "v", c.Token)
	assert.Equal(t, now.Add(time.Minute), c.Expires)
	assert.Equal(t, "ACC-9", c.AccountID)

	assert.Nil(t, cookieFromResponse([]*http.Cookie{{Name: "other", Value: "x"}}, h, now))

	noExpiry := cookieFromResponse([]*http.Cookie{{Name: CookieName, Value: "v"}}, h, now)
	require.NotNil(t, noExpiry)
	assert.False(t, noExpiry.Fresh(now))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no_session", StateNoSession.String())
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "stale", StateStale.String())
}
