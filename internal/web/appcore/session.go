package appcore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agency/framework"
	"agency/internal/docstore"
	"agency/internal/identity"
)

const loginPath = "/login"

// SessionToken is the session cookie value, empty when absent.
func (c *Context) SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(c.sessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (c *Context) sessionCookieFor(session *identity.Session) *http.Cookie {
	return &http.Cookie{
		Name:     c.sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c *Context) clearedSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// Viewer is the signed-in user of r, nil when signed out.
func (c *Context) Viewer(ctx context.Context, r *http.Request) (*identity.User, error) {
	token := c.SessionToken(r)
	if token == "" {
		return nil, nil
	}

	user, err := c.identity.Current(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return user, nil
}

// UserContext attaches the viewer's uid for store rule evaluation.
func UserContext(ctx context.Context, user *identity.User) context.Context {
	if user == nil {
		return ctx
	}
	return docstore.WithUID(ctx, user.UID)
}

func redirectToLogin(r *http.Request) error {
	next := r.URL.Path
	if r.Method != http.MethodGet {
		next = ""
	}
	if next == "" || next == loginPath {
		return framework.RedirectTo(loginPath)
	}
	return framework.RedirectTo(loginPath + "?next=" + url.QueryEscape(next))
}

// safeNext keeps post-login redirects on this site. Browsers drop tabs and
// newlines from URLs and read backslashes as slashes, so either can turn a
// local path into a protocol-relative one.
func safeNext(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return fallback
	}
	if strings.ContainsFunc(raw, func(r rune) bool { return r < 0x20 || r == 0x7f || r == '\\' }) {
		return fallback
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" || parsed.User != nil {
		return fallback
	}
	return raw
}

func (c *Context) requireViewer(ctx context.Context, r *http.Request) (*identity.User, error) {
	user, err := c.Viewer(ctx, r)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, redirectToLogin(r)
	}
	return user, nil
}
