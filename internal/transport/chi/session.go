package chi

import (
	"context"
	"net/http"

	domsess "github.com/superbrain-ai/superbrain/internal/domain/session"
)

// Session identity travels either in the X-Session-ID header (API clients)
// or in the sb_session cookie (browsers). The header wins when both are set.
const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "sb_session"
)

type sessionCtxKey struct{}

// sessionMiddleware resolves the request session and puts it into the
// context. Unknown, malformed and expired identifiers silently yield a fresh
// session; the resolved ID is echoed in the response header and cookie so
// clients can carry it forward.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(sessionHeader)
		if id == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				id = c.Value
			}
		}

		sess := s.sessions.GetOrCreate(r.Context(), id)

		w.Header().Set(sessionHeader, sess.ID())
		if sess.ID() != id {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext returns the session placed by sessionMiddleware.
// Routes outside the middleware get nil.
func sessionFromContext(ctx context.Context) *domsess.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*domsess.Session)
	return sess
}

// clearSessionCookie expires the browser cookie after a session is destroyed.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
