package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/eurometrics/internal/logging"
	"github.com/JonMunkholm/eurometrics/internal/session"
)

type contextKey string

const ctxKeySession contextKey = "session"

// withSession resolves the visitor's session from its cookie, creating one
// (and loading its base table) when the cookie is missing or has expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			sess, _ = s.store.Get(c.Value)
		}
		if sess == nil {
			// A client disconnect must not be cached as the session's load result.
			sess = s.store.Create(context.WithoutCancel(r.Context()))
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := logging.ContextWithSession(r.Context(), sess.ID)
		ctx = context.WithValue(ctx, ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session attached by withSession.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ctxKeySession).(*session.Session)
	return sess
}

// clientIP strips the port from a RemoteAddr.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
