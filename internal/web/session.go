package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/csvexplorer/internal/core"
	"github.com/JonMunkholm/csvexplorer/internal/logging"
)

type ctxKey int

const ctxKeySessionExpired ctxKey = iota

// withSession resolves the browser's session from its cookie and attaches it
// to the request context for the handlers.
//
// Requests without a live session get a detached empty session that is never
// stored: pages render the upload prompt and actions fail with "no table
// loaded". Only a successful upload registers a session (see
// sessionForUpload), so crawlers and health checks cannot fill the store.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var sess *core.Session
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil && c.Value != "" {
			found, err := s.service.Sessions().Get(c.Value)
			switch {
			case err == nil:
				sess = found
			case errors.Is(err, core.ErrSessionNotFound):
				ctx = context.WithValue(ctx, ctxKeySessionExpired, true)
				s.clearSessionCookie(w)
			default:
				s.respondError(w, r, err, statusFor(err))
				return
			}
		}
		if sess == nil {
			sess = core.NewSession("")
		}

		next.ServeHTTP(w, r.WithContext(core.ContextWithSession(ctx, sess)))
	})
}

// sessionForUpload returns the session an upload loads into. A request
// without a stored session gets a new one, reported as created; the caller
// keeps it with keepSession or discards it on failure.
func (s *Server) sessionForUpload(r *http.Request) (sess *core.Session, created bool, err error) {
	sess = session(r)
	if !detached(sess) {
		return sess, false, nil
	}
	sess, err = s.service.Sessions().Create()
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// keepSession hands a newly created session to the browser and returns r
// carrying it.
func (s *Server) keepSession(w http.ResponseWriter, r *http.Request, sess *core.Session) *http.Request {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	logging.WithFields(r.Context(), "session", sess.ID).Debug("session created")
	return r.WithContext(core.ContextWithSession(r.Context(), sess))
}

// clearSessionCookie tells the browser to forget a cookie whose session is
// gone, so the expiry notice shows once.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// session returns the request's session. withSession guarantees one.
func session(r *http.Request) *core.Session {
	sess, ok := core.SessionFromContext(r.Context())
	if !ok {
		panic("web: handler mounted without withSession")
	}
	return sess
}

// detached reports whether sess is the placeholder withSession attaches to
// requests without a stored session.
func detached(sess *core.Session) bool {
	return sess.ID == ""
}

func sessionExpired(r *http.Request) bool {
	v, _ := r.Context().Value(ctxKeySessionExpired).(bool)
	return v
}
