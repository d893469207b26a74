package session

import (
	"net/http"
	"time"
)

// Cookie names carried by every authenticated browser session.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Default cookie lifetimes: one hour for the access token, one year for the refresh token.
const (
	DefaultAccessMaxAge  = time.Hour
	DefaultRefreshMaxAge = 365 * 24 * time.Hour
)

// CookiePolicy decides the attributes of the accessToken/refreshToken pair.
type CookiePolicy struct {
	Domain        string
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// NewCookiePolicy returns a policy with the default lifetimes.
func NewCookiePolicy(domain string, secure bool) CookiePolicy {
	return CookiePolicy{
		Domain:        domain,
		Secure:        secure,
		AccessMaxAge:  DefaultAccessMaxAge,
		RefreshMaxAge: DefaultRefreshMaxAge,
	}
}

// Set writes both cookies.
func (p CookiePolicy) Set(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, p.cookie(AccessCookie, accessToken, p.AccessMaxAge))
	http.SetCookie(w, p.cookie(RefreshCookie, refreshToken, p.RefreshMaxAge))
}

// Clear expires both cookies on the client.
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := p.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (p CookiePolicy) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
