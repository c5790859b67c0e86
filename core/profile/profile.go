// Package profile serves account details, profile images, channel views,
// subscriptions and watch history.
package profile

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"VidTube/core/apperr"
	"VidTube/core/media"
	"VidTube/core/validate"
	"VidTube/logger"
	"VidTube/model"
	"VidTube/repository"
)

// Image selects which profile image an update replaces.
type Image int

const (
	Avatar Image = iota
	CoverImage
)

func (i Image) String() string {
	if i == CoverImage {
		return "cover image"
	}
	return "avatar"
}

// Manager implements the profile operations.
type Manager struct {
	users    repository.UserRepository
	subs     repository.SubscriptionRepository
	videos   repository.VideoRepository
	uploader *media.Uploader

	// striped by subscriber/channel pair; guards the check-then-create in ToggleSubscription
	pairLocks [64]sync.Mutex
}

// NewManager creates a new Manager.
func NewManager(users repository.UserRepository, subs repository.SubscriptionRepository,
	videos repository.VideoRepository, uploader *media.Uploader) *Manager {
	return &Manager{users: users, subs: subs, videos: videos, uploader: uploader}
}

// UpdateAccountInput carries the editable account details.
type UpdateAccountInput struct {
	FullName string `json:"fullname" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
}

// UpdateAccountDetails replaces full name and email. Both are required.
func (m *Manager) UpdateAccountDetails(ctx context.Context, userID string, in UpdateAccountInput) (*model.PublicUser, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if validate.Blank(in.FullName, in.Email) {
		return nil, apperr.Validation("All fields are required")
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	updated, err := m.users.Update(ctx, userID, model.UserPatch{FullName: &in.FullName, Email: &in.Email})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperr.Conflict("Email is already in use")
		}
		return nil, apperr.Internal("Failed to update account details", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("User does not exist")
	}
	logger.Info("[UpdateAccount] account details updated", logger.String("userID", userID))
	return updated.Public(), nil
}

// UpdateAvatar uploads a new avatar and points the account at it.
func (m *Manager) UpdateAvatar(ctx context.Context, userID string, file *media.StagedFile) (*model.PublicUser, error) {
	return m.replaceImage(ctx, userID, file, Avatar)
}

// UpdateCoverImage uploads a new cover image and points the account at it.
func (m *Manager) UpdateCoverImage(ctx context.Context, userID string, file *media.StagedFile) (*model.PublicUser, error) {
	return m.replaceImage(ctx, userID, file, CoverImage)
}

// replaceImage removes the staged file in every case. The previous asset is
// deleted from the host once the record no longer references it.
func (m *Manager) replaceImage(ctx context.Context, userID string, file *media.StagedFile, which Image) (*model.PublicUser, error) {
	defer file.Remove()

	if file == nil {
		if which == CoverImage {
			return nil, apperr.Validation("Cover image file is missing")
		}
		return nil, apperr.Validation("Avatar file is missing")
	}

	current, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load user", err)
	}
	if current == nil {
		return nil, apperr.NotFound("User does not exist")
	}

	url, err := m.uploader.Upload(ctx, file)
	if err != nil {
		return nil, err
	}

	patch := model.UserPatch{Avatar: &url}
	previous := current.Avatar
	if which == CoverImage {
		patch = model.UserPatch{CoverImage: &url}
		previous = current.CoverImage
	}

	updated, err := m.users.Update(ctx, userID, patch)
	if err != nil || updated == nil {
		m.uploader.Discard(context.WithoutCancel(ctx), url)
		return nil, apperr.Internal("Failed to update "+which.String(), err)
	}
	if previous != "" && previous != url {
		m.uploader.Discard(context.WithoutCancel(ctx), previous)
	}

	logger.Info("[UpdateImage] profile image replaced",
		logger.String("userID", userID), logger.String("image", which.String()))
	return updated.Public(), nil
}

// ChannelProfile returns the channel view of username as seen by viewerID.
func (m *Manager) ChannelProfile(ctx context.Context, viewerID, username string) (*model.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperr.Validation("username is missing")
	}

	profile, err := m.users.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return nil, apperr.Internal("Failed to load channel", err)
	}
	if profile == nil {
		return nil, apperr.NotFound("channel does not exist")
	}
	return profile, nil
}

// WatchHistory returns the user's watch history in the order it was recorded.
func (m *Manager) WatchHistory(ctx context.Context, userID string) ([]model.VideoSummary, error) {
	history, err := m.users.WatchHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load watch history", err)
	}
	if history == nil {
		history = []model.VideoSummary{}
	}
	return history, nil
}

// RecordWatch appends videoID to the user's watch history.
func (m *Manager) RecordWatch(ctx context.Context, userID, videoID string) error {
	if strings.TrimSpace(videoID) == "" {
		return apperr.Validation("videoId is missing")
	}
	video, err := m.videos.FindByID(ctx, videoID)
	if err != nil {
		return apperr.Internal("Failed to load video", err)
	}
	if video == nil {
		return apperr.NotFound("Video not found")
	}
	if err := m.users.AppendWatchHistory(ctx, userID, videoID); err != nil {
		return apperr.Internal("Failed to record watch history", err)
	}
	return nil
}

func (m *Manager) lockPair(subscriberID, channelID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subscriberID + "|" + channelID))
	return &m.pairLocks[h.Sum32()%uint32(len(m.pairLocks))]
}

// ToggleSubscription subscribes when no edge exists and unsubscribes otherwise.
// It reports whether the subscriber is subscribed afterwards.
func (m *Manager) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if strings.TrimSpace(channelID) == "" {
		return false, apperr.Validation("channelId is missing")
	}
	if subscriberID == channelID {
		return false, apperr.Validation("You cannot subscribe to your own channel")
	}

	channel, err := m.users.FindByID(ctx, channelID)
	if err != nil {
		return false, apperr.Internal("Failed to load channel", err)
	}
	if channel == nil {
		return false, apperr.NotFound("channel does not exist")
	}

	mu := m.lockPair(subscriberID, channelID)
	mu.Lock()
	defer mu.Unlock()

	subscribed, err := m.subs.Exists(ctx, subscriberID, channelID)
	if err != nil {
		return false, apperr.Internal("Failed to update subscription", err)
	}
	if subscribed {
		removed, err := m.subs.Delete(ctx, subscriberID, channelID)
		if err != nil {
			return false, apperr.Internal("Failed to update subscription", err)
		}
		logger.Info("[Subscription] unsubscribed",
			logger.String("subscriber", subscriberID), logger.String("channel", channelID),
			logger.Int64("edges", removed))
		return false, nil
	}

	if err := m.subs.Create(ctx, model.NewSubscription(subscriberID, channelID)); err != nil {
		return false, apperr.Internal("Failed to update subscription", err)
	}
	logger.Info("[Subscription] subscribed",
		logger.String("subscriber", subscriberID), logger.String("channel", channelID))
	return true, nil
}
