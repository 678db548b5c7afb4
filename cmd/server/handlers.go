package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

type sessionKey struct{}

func withSession(ctx context.Context, session *labdb.WebSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// sessionFrom returns the session needLogin attached to the request.
func sessionFrom(ctx context.Context) *labdb.WebSession {
	session, _ := ctx.Value(sessionKey{}).(*labdb.WebSession)
	return session
}

// loadSession resolves the signed session cookie to a logged-in session.
func (s *Server) loadSession(r *http.Request) (*labdb.WebSession, error) {
	cookie, err := r.Cookie(s.auth.CookieName)
	if err != nil {
		return nil, labdb.NewUnauthorizedError(labdb.ErrCodeInvalidCredentials, "no session cookie")
	}
	key, ok := labdb.VerifySignedValue(s.key, cookie.Value)
	if !ok {
		return nil, labdb.NewUnauthorizedError(labdb.ErrCodeInvalidCredentials, "session cookie signature mismatch")
	}
	session, err := s.sessions.GetSession(r.Context(), key)
	if err != nil {
		return nil, err
	}
	if session.UserID == nil {
		return nil, labdb.NewUnauthorizedError(labdb.ErrCodeInvalidCredentials, "session has no user")
	}
	return session, nil
}

// needLogin rejects requests without a valid session. API callers get a
// 401; pages redirect to the login form.
func (s *Server) needLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.loadSession(r)
		if err != nil {
			if !labdb.IsNotFound(err) && !labdb.IsUnauthorized(err) {
				zap.S().Warnw("failed to load session", "path", r.URL.Path, "error", err)
			}
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeError(w, http.StatusUnauthorized, "login required")
				return
			}
			http.Redirect(w, r, "/auth/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// handleLoginForm handles GET /auth/login
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, http.StatusOK, safeRedirect(r.URL.Query().Get("next")), "")
}

// handleLogin handles POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid form: %v", err))
		return
	}
	next := safeRedirect(r.PostForm.Get("next"))
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		s.renderLogin(w, http.StatusBadRequest, next, "username and password are required")
		return
	}

	user, err := s.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if labdb.IsUnauthorized(err) || labdb.IsNotFound(err) {
			zap.S().Infow("login rejected", "username", username)
			s.renderLogin(w, http.StatusUnauthorized, next, "invalid username or password")
			return
		}
		zap.S().Errorw("authentication failed", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	session, err := s.sessions.CreateSession(r.Context(), &user.ID)
	if err != nil {
		zap.S().Errorw("failed to create session", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	session.Set("username", user.Username)
	if err := s.sessions.SaveSession(r.Context(), session); err != nil {
		zap.S().Errorw("failed to save session", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.auth.CookieName,
		Value:    labdb.SignValue(s.key, session.Key),
		Path:     "/",
		Expires:  session.ExpireDate,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	zap.S().Infow("user logged in", "username", username)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleLogout handles /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.auth.CookieName); err == nil {
		if key, ok := labdb.VerifySignedValue(s.key, cookie.Value); ok {
			if err := s.sessions.DeleteSession(r.Context(), key); err != nil && !labdb.IsNotFound(err) {
				zap.S().Warnw("failed to delete session", "error", err)
			}
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// handleCountrySetPage handles GET /countryset/
func (s *Server) handleCountrySetPage(w http.ResponseWriter, r *http.Request) {
	data := newPageData(s.static, "Countryset Editor")
	if session := sessionFrom(r.Context()); session != nil {
		if name, ok := session.Get("username"); ok {
			data.Username, _ = name.(string)
		}
	}
	renderPage(w, http.StatusOK, data)
}

// handleListCountries handles GET /api/v1/countries
func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.countries.ListCountries(r.Context())
	if err != nil {
		writeLabError(w, err, "list countries")
		return
	}
	writeSuccess(w, http.StatusOK, countries)
}

// handleListCountrySets handles GET /api/v1/countrysets
func (s *Server) handleListCountrySets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.countries.ListCountrySets(r.Context())
	if err != nil {
		writeLabError(w, err, "list country sets")
		return
	}
	writeSuccess(w, http.StatusOK, sets)
}

type countrySetRequest struct {
	Name string `json:"name"`
}

// handleCreateCountrySet handles POST /api/v1/countrysets
func (s *Server) handleCreateCountrySet(w http.ResponseWriter, r *http.Request) {
	var body countrySetRequest
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	set, err := s.countries.CreateCountrySet(r.Context(), strings.TrimSpace(body.Name))
	if err != nil {
		writeLabError(w, err, "create country set")
		return
	}
	writeSuccess(w, http.StatusCreated, set)
}

// handleGetCountrySet handles GET /api/v1/countrysets/{id}
func (s *Server) handleGetCountrySet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeCountrySet(w, r, id, http.StatusOK)
}

// handleDeleteCountrySet handles DELETE /api/v1/countrysets/{id}
func (s *Server) handleDeleteCountrySet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.countries.DeleteCountrySet(r.Context(), id); err != nil {
		writeLabError(w, err, "delete country set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type membersRequest struct {
	ISOCode  string   `json:"isocode"`
	ISOCodes []string `json:"isocodes"`
}

// handleReplaceMembers handles PUT /api/v1/countrysets/{id}/countries
func (s *Server) handleReplaceMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body membersRequest
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	if err := s.countries.SetCountrySetMembers(r.Context(), id, body.ISOCodes); err != nil {
		writeLabError(w, err, "set country set members")
		return
	}
	s.writeCountrySet(w, r, id, http.StatusOK)
}

// handleAddMember handles POST /api/v1/countrysets/{id}/countries
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body membersRequest
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	if body.ISOCode == "" {
		writeError(w, http.StatusBadRequest, "isocode is required")
		return
	}
	if err := s.countries.AddCountryToSet(r.Context(), id, body.ISOCode); err != nil {
		writeLabError(w, err, "add country to set")
		return
	}
	s.writeCountrySet(w, r, id, http.StatusOK)
}

// handleRemoveMember handles DELETE /api/v1/countrysets/{id}/countries/{isocode}
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.countries.RemoveCountryFromSet(r.Context(), id, r.PathValue("isocode")); err != nil {
		writeLabError(w, err, "remove country from set")
		return
	}
	s.writeCountrySet(w, r, id, http.StatusOK)
}

func (s *Server) writeCountrySet(w http.ResponseWriter, r *http.Request, id int64, status int) {
	set, err := s.countries.GetCountrySet(r.Context(), id)
	if err != nil {
		writeLabError(w, err, "get country set")
		return
	}
	writeSuccess(w, status, set)
}
