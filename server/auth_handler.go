package server

import (
	"net/http"

	"VidTube/core/apperr"
	"VidTube/core/media"
	"VidTube/core/session"
)

// RefreshRequest is the optional body of a refresh call when no cookie is sent.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterHandler handles multipart registration with avatar and optional cover image.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r, 2); err != nil {
		writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	avatar, err := h.stageField(r, "avatar")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cover, err := h.stageField(r, "coverImage")
	if err != nil {
		media.RemoveAll(avatar)
		writeError(w, r, err)
		return
	}

	// Register owns the staged files from here on.
	user, err := h.sessions.Register(r.Context(), session.RegisterInput{
		FullName:   r.FormValue("fullname"),
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ApiResponse{
		StatusCode: http.StatusOK,
		Data:       user,
		Message:    "User registered successfully",
		Success:    true,
	})
}

// LoginHandler handles login by username or email and sets the session cookies.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req session.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, result.TokenPair)
	respond(w, http.StatusOK, result, "User logged In Successfully")
}

// LogoutHandler revokes the stored refresh token and clears the cookies.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Logout(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	respond(w, http.StatusOK, map[string]interface{}{}, "User logged Out")
}

// RefreshTokenHandler rotates the refresh token. The cookie wins over the body.
func (h *APIHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req RefreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		presented = req.RefreshToken
	}

	pair, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, *pair)
	respond(w, http.StatusOK, pair, "Access token refreshed")
}

// ChangePasswordHandler replaces the caller's password.
func (h *APIHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req session.ChangePasswordInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.ChangePassword(r.Context(), userID, req); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{}, "Password changed successfully")
}

// CurrentUserHandler returns the authenticated user.
func (h *APIHandler) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Auth("Unauthorized request"))
		return
	}
	respond(w, http.StatusOK, user, "User fetched successfully")
}
