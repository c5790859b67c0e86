package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"VidTube/core/profile"
	"VidTube/model"
)

// UpdateAccountHandler replaces the caller's full name and email.
func (h *APIHandler) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req profile.UpdateAccountInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.profiles.UpdateAccountDetails(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatarHandler replaces the caller's avatar from the "avatar" part.
func (h *APIHandler) UpdateAvatarHandler(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, profile.Avatar)
}

// UpdateCoverImageHandler replaces the caller's cover image from the "coverImage" part.
func (h *APIHandler) UpdateCoverImageHandler(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, profile.CoverImage)
}

func (h *APIHandler) updateImage(w http.ResponseWriter, r *http.Request, which profile.Image) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.parseMultipart(w, r, 1); err != nil {
		writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	field, message := "avatar", "Avatar image updated successfully"
	if which == profile.CoverImage {
		field, message = "coverImage", "Cover image updated successfully"
	}

	staged, err := h.stageField(r, field)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var user *model.PublicUser
	if which == profile.CoverImage {
		user, err = h.profiles.UpdateCoverImage(r.Context(), userID, staged)
	} else {
		user, err = h.profiles.UpdateAvatar(r.Context(), userID, staged)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, user, message)
}

// ChannelProfileHandler returns the channel page for {username}.
func (h *APIHandler) ChannelProfileHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	channel, err := h.profiles.ChannelProfile(r.Context(), viewerID, mux.Vars(r)["username"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, channel, "User channel fetched successfully")
}

// WatchHistoryHandler returns the caller's watch history.
func (h *APIHandler) WatchHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := h.profiles.WatchHistory(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, history, "Watch history fetched successfully")
}

// RecordWatchHandler appends {videoId} to the caller's watch history.
func (h *APIHandler) RecordWatchHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.profiles.RecordWatch(r.Context(), userID, mux.Vars(r)["videoId"]); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{}, "Watch history updated")
}

// ToggleSubscriptionHandler subscribes to or unsubscribes from {channelId}.
func (h *APIHandler) ToggleSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	subscribed, err := h.profiles.ToggleSubscription(r.Context(), userID, mux.Vars(r)["channelId"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Unsubscribed successfully"
	if subscribed {
		message = "Subscribed successfully"
	}
	respond(w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}
