package gateway

import (
	"net/http"
	"net/url"
)

// csrfCookieName is the cookie the server's double-submit protection sets.
const csrfCookieName = "csrftoken"

// TokenSource supplies the forgery-protection token for a request. It is
// consulted fresh on every send; nothing is cached.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed token, used as the page-embedded fallback when no
// cookie is present.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// CookieToken reads the CSRF cookie from a jar, falling back to another
// source when the jar has no token yet.
type CookieToken struct {
	Jar      http.CookieJar
	Base     *url.URL
	Fallback TokenSource
}

func (c *CookieToken) Token() string {
	if c.Jar != nil {
		for _, ck := range c.Jar.Cookies(c.Base) {
			if ck.Name == csrfCookieName && ck.Value != "" {
				return ck.Value
			}
		}
	}
	if c.Fallback != nil {
		return c.Fallback.Token()
	}
	return ""
}
