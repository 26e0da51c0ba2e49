package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// sessionCookie identifies the customer's cart session. The cart itself
// lives server-side; the cookie carries only an opaque id.
const sessionCookie = "ck_session"

// sessionID returns the request's cart session id, minting a new one and
// setting the cookie when absent.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(24 * time.Hour / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
