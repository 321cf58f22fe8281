package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/haeminmoon/grvtgate/internal/pkg/logger"
	"github.com/haeminmoon/grvtgate/internal/pkg/metrics"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const loginFlightKey = "login"

type Options struct {
	APIKey         string
	EdgeURL        string
	LoginTimeout   time.Duration
	RequestTimeout time.Duration
	LoginRetries   int
	QPS            float64 // 0 disables the throttle
	Burst          int
	HTTPClient     *http.Client     // optional; its cookie jar is dropped
	Now            func() time.Time // optional, for tests
}

// Manager owns one exchange session and attaches it to authenticated calls.
// Concurrent callers that find the session stale share a single login.
type Manager struct {
	apiKey       string
	loginURL     string
	http         *resty.Client
	limiter      *rate.Limiter
	loginTimeout time.Duration
	retries      int
	now          func() time.Time
	log          *slog.Logger

	cookie     atomic.Pointer[Cookie]
	refreshing atomic.Bool
	group      singleflight.Group
}

func NewManager(opts Options) *Manager {
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = 10 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.LoginRetries < 0 {
		opts.LoginRetries = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}
	// The Manager is the only holder of the session cookie. resty's default
	// jar would replay it on public calls and after a failed refresh.
	client.SetCookieJar(nil).
		SetTimeout(opts.RequestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	var limiter *rate.Limiter
	if opts.QPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.QPS), burst)
	}

	return &Manager{
		apiKey:       strings.TrimSpace(opts.APIKey),
		loginURL:     strings.TrimSuffix(opts.EdgeURL, "/") + LoginPath,
		http:         client,
		limiter:      limiter,
		loginTimeout: opts.LoginTimeout,
		retries:      opts.LoginRetries,
		now:          opts.Now,
		log:          logger.Component("session"),
	}
}

func NewManagerFromConfig(cfg *config.Config, env config.EnvConfig) *Manager {
	return NewManager(Options{
		APIKey:         cfg.Grvt.ApiKey,
		EdgeURL:        env.Edge.RPCEndpoint,
		LoginTimeout:   time.Duration(cfg.Session.LoginTimeoutMs) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Session.RequestTimeoutMs) * time.Millisecond,
		LoginRetries:   cfg.Session.LoginRetries,
		QPS:            cfg.Session.QPS,
		Burst:          cfg.Session.Burst,
	})
}

// Cookie returns the installed session, or nil.
func (m *Manager) Cookie() *Cookie {
	return m.cookie.Load()
}

func (m *Manager) State() State {
	if m.refreshing.Load() {
		return StatePending
	}
	c := m.cookie.Load()
	switch {
	case c == nil:
		return StateNoSession
	case c.Fresh(m.now()):
		return StateActive
	default:
		return StateStale
	}
}

func (m *Manager) requireAPIKey() error {
	if m.apiKey == "" {
		return apperrors.NewConfiguration("attempting to use authenticated API without API key set")
	}
	return nil
}

// EnsureFresh logs in unless the current session outlives RefreshMargin.
// A failed login leaves the manager without a session; the next call tries
// again.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	if err := m.requireAPIKey(); err != nil {
		return err
	}
	c := m.cookie.Load()
	if c.Fresh(m.now()) {
		return nil
	}
	m.log.Debug("cookie should be refreshed", "ttl_ms", c.TTL(m.now()).Milliseconds())

	ch := m.group.DoChan(loginFlightKey, func() (interface{}, error) {
		// Another flight may have finished between our check and this one.
		if c := m.cookie.Load(); c.Fresh(m.now()) {
			return c, nil
		}
		m.refreshing.Store(true)
		defer m.refreshing.Store(false)

		// The login outlives any single waiter's context.
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loginTimeout)
		defer cancel()

		c, err := m.loginWithRetry(loginCtx)
		if err != nil {
			m.cookie.Store(nil)
			return nil, err
		}
		m.cookie.Store(c)
		m.log.Debug("session refreshed", "expires", c.Expires, "account_id", c.AccountID)
		return c, nil
	})

	select {
	case <-ctx.Done():
		return apperrors.New(apperrors.ErrRefreshFailed, "session refresh abandoned", ctx.Err())
	case res := <-ch:
		return res.Err
	}
}

type loginRequest struct {
	APIKey string `json:"api_key"`
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (m *Manager) loginWithRetry(ctx context.Context) (*Cookie, error) {
	var lastErr error
	for attempt := 0; attempt <= m.retries; attempt++ {
		c, err := m.login(ctx)
		if err == nil {
			metrics.LoginsTotal.WithLabelValues("ok").Inc()
			return c, nil
		}
		lastErr = err
		var retryable *retryableError
		if !errors.As(err, &retryable) || !shouldRetry(ctx, attempt, m.retries) {
			break
		}
		m.log.Warn("login failed, retrying", "attempt", attempt+1, "error", err)
	}
	m.log.Error("Error getting cookie", "error", lastErr)
	return nil, apperrors.New(apperrors.ErrRefreshFailed, "session refresh failed", lastErr)
}

func (m *Manager) login(ctx context.Context) (*Cookie, error) {
	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(loginRequest{APIKey: m.apiKey}).
		Post(m.loginURL)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, &retryableError{err: err}
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, &retryableError{err: fmt.Errorf("login returned status %d", resp.StatusCode())}
	}
	if resp.StatusCode() != http.StatusOK {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("login returned status %d", resp.StatusCode())
	}
	c := cookieFromResponse(resp.Cookies(), resp.Header(), m.now())
	if c == nil {
		metrics.LoginsTotal.WithLabelValues("no_cookie").Inc()
		return nil, fmt.Errorf("login response has no %s cookie", CookieName)
	}
	return c, nil
}

func shouldRetry(ctx context.Context, attempt, max int) bool {
	if attempt >= max {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		return true
	}
}

// Post sends an authenticated POST after making sure the session is fresh.
// On success the JSON response is decoded into out (when non-nil). A
// non-2xx response with a structured body comes back as that
// *apperrors.ExchangeError; any other failure as the generic 500 error.
// A missing API key is reported before anything is sent.
func (m *Manager) Post(ctx context.Context, url string, body, out any) error {
	if err := m.requireAPIKey(); err != nil {
		return err
	}
	if err := m.EnsureFresh(ctx); err != nil {
		m.log.Warn("sending request without fresh session", "url", url, "error", err)
	}
	return m.post(ctx, url, body, out, m.cookie.Load())
}

// PostPublic sends a POST without session headers.
func (m *Manager) PostPublic(ctx context.Context, url string, body, out any) error {
	return m.post(ctx, url, body, out, nil)
}

func (m *Manager) post(ctx context.Context, rawURL string, body, out any, c *Cookie) error {
	start := time.Now()
	defer func() {
		metrics.LatencyBucket.WithLabelValues(endpointLabel(rawURL)).Observe(time.Since(start).Seconds())
	}()

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			m.log.Error("Unable to send request", "url", rawURL, "error", err)
			return apperrors.InternalServerError()
		}
	}

	req := m.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	// Headers come from one immutable snapshot, so a request never mixes
	// two sessions.
	if c != nil {
		req.SetHeader("Cookie", CookieName+"="+c.Token)
		if c.AccountID != "" {
			req.SetHeader(HeaderAccountID, c.AccountID)
		}
	}

	resp, err := req.Post(rawURL)
	if err != nil {
		m.log.Error("Unable to parse response", "url", rawURL, "error", err)
		return apperrors.InternalServerError()
	}
	if resp.IsError() {
		return m.responseError(resp)
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			m.log.Error("Unable to parse response", "url", rawURL, "error", err)
			return apperrors.InternalServerError()
		}
	}
	return nil
}

func (m *Manager) responseError(resp *resty.Response) error {
	var exErr apperrors.ExchangeError
	raw := resp.Body()
	if len(raw) == 0 || json.Unmarshal(raw, &exErr) != nil || (exErr.Code == 0 && exErr.Message == "") {
		m.log.Error("Unable to parse response", "status", resp.StatusCode(), "body", string(raw))
		return apperrors.InternalServerError()
	}
	if exErr.Status == 0 {
		exErr.Status = resp.StatusCode()
	}
	m.log.Warn("exchange error", "code", exErr.Code, "status", exErr.Status, "message", exErr.Message)
	return &exErr
}

func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return u.Path
}
