package session

import (
	"net/http"
	"time"
)

const (
	CookieName      = "gravity"
	HeaderAccountID = "X-Grvt-Account-Id"
	LoginPath       = "/auth/api_key/login"

	// RefreshMargin is the remaining lifetime at or below which a session
	// is treated as expired.
	RefreshMargin = 5000 * time.Millisecond
)

// Cookie is an immutable session snapshot. A new value replaces the old one
// on every successful login; fields are never updated in place.
type Cookie struct {
	Token     string
	Expires   time.Time
	AccountID string
}

// TTL is the remaining lifetime, or zero when the expiry is unknown.
func (c *Cookie) TTL(now time.Time) time.Duration {
	if c == nil || c.Expires.IsZero() {
		return 0
	}
	return c.Expires.Sub(now)
}

func (c *Cookie) Fresh(now time.Time) bool {
	if c == nil || c.Expires.IsZero() {
		return false
	}
	return c.TTL(now) > RefreshMargin
}

// cookieFromResponse extracts the session cookie and account scope from a
// login response. It returns nil when the gravity cookie is absent.
func cookieFromResponse(cookies []*http.Cookie, header http.Header, now time.Time) *Cookie {
	for _, c := range cookies {
		if c.Name != CookieName || c.Value == "" {
			continue
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		return &Cookie{
			Token:     c.Value,
			Expires:   expires,
			AccountID: header.Get(HeaderAccountID),
		}
	}
	return nil
}
