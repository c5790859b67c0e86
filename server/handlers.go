package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"VidTube/config"
	"VidTube/core/apperr"
	"VidTube/core/auth"
	"VidTube/core/media"
	"VidTube/core/profile"
	"VidTube/core/session"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	// multipart parts beyond this are spooled to disk by net/http
	multipartMemory = 8 << 20
)

// APIHandler holds dependencies for API handlers.
type APIHandler struct {
	sessions *session.Manager
	profiles *profile.Manager
	tokens   *auth.TokenService
	stager   *media.Stager
	cfg      *config.Config
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(sessions *session.Manager, profiles *profile.Manager, tokens *auth.TokenService,
	stager *media.Stager, cfg *config.Config) *APIHandler {
	return &APIHandler{
		sessions: sessions,
		profiles: profiles,
		tokens:   tokens,
		stager:   stager,
		cfg:      cfg,
	}
}

func (h *APIHandler) sameSite() http.SameSite {
	switch strings.ToLower(h.cfg.Cookie.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (h *APIHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: h.sameSite(),
	}
	if value == "" {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

func (h *APIHandler) setSessionCookies(w http.ResponseWriter, pair session.TokenPair) {
	http.SetCookie(w, h.cookie(accessTokenCookie, pair.AccessToken, h.tokens.AccessTTL()))
	http.SetCookie(w, h.cookie(refreshTokenCookie, pair.RefreshToken, h.tokens.RefreshTTL()))
}

func (h *APIHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(accessTokenCookie, "", 0))
	http.SetCookie(w, h.cookie(refreshTokenCookie, "", 0))
}

// parseMultipart bounds the body and parses it. The caller must call
// r.MultipartForm.RemoveAll when err is nil.
func (h *APIHandler) parseMultipart(w http.ResponseWriter, r *http.Request, files int) error {
	if perFile := h.stager.MaxBytes(); perFile > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(files)*perFile+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation("Request body is too large")
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return apperr.Validation("Request must be multipart/form-data")
		}
		return apperr.Validation("Invalid multipart form")
	}
	return nil
}

// stageField stages the first file of the named part, or returns nil when it is absent.
func (h *APIHandler) stageField(r *http.Request, field string) (*media.StagedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	return h.stager.StageHeader(headers[0])
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"}, "OK")
}
