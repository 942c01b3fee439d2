package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/config"
)

const (
	authCookieName   = "auth"
	accessCookieName = "access"
)

type CookiesProcessor struct {
	path            string
	domain          string
	secure          bool
	authExpiresIn   time.Duration
	accessExpiresIn time.Duration
	now             func() time.Time
}

// NewCookiesProcessor creates cookies for the login flow. Insecure cookies are used only for local development over plain http.
func NewCookiesProcessor(conf config.Cookie, secure bool) *CookiesProcessor {
	return &CookiesProcessor{
		path:            conf.Path,
		domain:          conf.Domain,
		secure:          secure,
		authExpiresIn:   conf.AuthExpiresIn,
		accessExpiresIn: conf.AccessExpiresIn,
		now:             time.Now,
	}
}

func (p *CookiesProcessor) AuthExpiresIn() time.Duration {
	return p.authExpiresIn
}

func (p *CookiesProcessor) NewAuthTokenCookie(token string) *http.Cookie {
	return p.newCookie(authCookieName, token, p.authExpiresIn)
}

func (p *CookiesProcessor) GetAuthToken(c echo.Context) (string, bool) {
	return cookieValue(c, authCookieName)
}

func (p *CookiesProcessor) ExpireAuthTokenCookie() *http.Cookie {
	return p.expiredCookie(authCookieName)
}

func (p *CookiesProcessor) NewAccessTokenCookie(token string) *http.Cookie {
	return p.newCookie(accessCookieName, token, p.accessExpiresIn)
}

func (p *CookiesProcessor) GetAccessToken(c echo.Context) (string, bool) {
	return cookieValue(c, accessCookieName)
}

func (p *CookiesProcessor) ExpireAccessTokenCookie() *http.Cookie {
	return p.expiredCookie(accessCookieName)
}

func (p *CookiesProcessor) newCookie(name, value string, expiresIn time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     p.path,
		Domain:   p.domain,
		Value:    value,
		Expires:  p.now().Add(expiresIn),
		Secure:   p.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (p *CookiesProcessor) expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     p.path,
		Domain:   p.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   p.secure,
		HttpOnly: true,
	}
}

func cookieValue(c echo.Context, name string) (string, bool) {
	cookie, err := c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
