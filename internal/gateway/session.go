package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"justdraft/internal/auth"
	"justdraft/internal/events"
	"justdraft/internal/sessions"
)

const sessionCookie = "justdraft_session"

type sessionKey struct{}

func sessionFrom(r *http.Request) *sessions.Session {
	s, _ := r.Context().Value(sessionKey{}).(*sessions.Session)
	return s
}

// withSession attaches the caller's session to the request, creating
// one (and setting the cookie) on first contact.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *sessions.Session

		if c, err := r.Cookie(sessionCookie); err == nil {
			sess, _ = s.store.Get(c.Value)
		}

		if sess == nil {
			var err error
			sess, err = s.store.Create()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "create session: "+err.Error())
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			s.bus.Publish(events.NewEventWithSession(events.EventSessionCreated, events.SourceGateway, nil, sess.ID))
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = events.ContextWithSessionID(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests whose session has not passed the gate.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if sess == nil || !sess.Gate().Authenticated() {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := sess.Gate().Submit(body.Password)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		s.bus.Publish(events.AuthResult(sess.ID, false))
		writeError(w, http.StatusServiceUnavailable, "application password is not configured")
	case errors.Is(err, auth.ErrWrongPassword):
		s.bus.Publish(events.AuthResult(sess.ID, false))
		writeError(w, http.StatusUnauthorized, "wrong password")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.bus.Publish(events.AuthResult(sess.ID, true))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            sess.ID,
		"status":        sess.Status,
		"created_at":    sess.CreatedAt,
		"authenticated": sess.Gate().Authenticated(),
		"configured":    sess.Gate().Configured(),
	})
}
