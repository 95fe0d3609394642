// Package emailstore remembers which email requested a sign-in link so the
// same device can complete sign-in without typing it again.
package emailstore

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// CookieName holds the email on the browser that requested the link.
const CookieName = "escrowgate_email_for_signin"

type Cookie struct {
	secure bool
	path   string
}

func NewCookie(secure bool) *Cookie {
	return &Cookie{secure: secure, path: "/"}
}

// Set stores email for ttl, matching the lifetime of the link.
func (c *Cookie) Set(w http.ResponseWriter, email string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(email),
		Path:     c.path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Cookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     c.path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest returns the stored email for r as a flow EmailStore.
func (c *Cookie) FromRequest(r *http.Request) Static {
	ck, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	email, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return ""
	}
	return Static(email)
}

// Static is an EmailStore holding a fixed value. The empty string means
// nothing is stored.
type Static string

func (s Static) EmailForSignIn(context.Context) (string, bool) {
	return string(s), s != ""
}
