package repository

import (
	"context"
	"errors"

	"VidTube/model"
)

// ErrDuplicateUser is returned when a username or email uniqueness constraint is violated.
var ErrDuplicateUser = errors.New("user with this username or email already exists")

// UserRepository defines the interface for user data operations.
// Lookups return (nil, nil) when nothing matches.
type UserRepository interface {
	// FindByUsernameOrEmail matches either field; an empty argument is left out of the predicate.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// Create returns ErrDuplicateUser when the store rejects the username or email.
	Create(ctx context.Context, user *model.User) error
	// Update applies the patch without full-record validation and returns the updated record.
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	// RotateRefreshToken replaces presented with next only if presented is the stored value.
	RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error)
	// WatchHistory returns the user's history in watch order, one owner per video.
	WatchHistory(ctx context.Context, userID string) ([]model.VideoSummary, error)
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
}

// SubscriptionRepository stores subscriber -> channel edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	// Delete removes every edge for the pair and reports how many were removed.
	Delete(ctx context.Context, subscriberID, channelID string) (int64, error)
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoRepository is the slice of video storage this service needs.
type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	FindByID(ctx context.Context, id string) (*model.Video, error)
}
