package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"VidTube/model"
)

// gormUserRepository implements UserRepository for any SQL dialect gorm supports.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new gormUserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// isDuplicateKey recognizes unique violations across the drivers we ship.
// gorm translates them when opened with TranslateError; the MySQL check covers raw driver errors.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *gormUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	q := r.db.WithContext(ctx)
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		return nil, nil
	}

	var user model.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by username %q or email %q: %w", username, email, err)
	}
	return &user, nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	return &user, nil
}

func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *gormUserRepository) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	if !patch.Empty() {
		err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(patch.Columns()).Error
		if err != nil {
			if isDuplicateKey(err) {
				return nil, ErrDuplicateUser
			}
			return nil, fmt.Errorf("failed to update user %s: %w", id, err)
		}
	}
	// Affected-row counts are unreliable on MySQL when nothing changed, so re-read instead.
	return r.FindByID(ctx, id)
}

func (r *gormUserRepository) RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND refresh_token = ?", id, presented).
		Updates(map[string]interface{}{"refresh_token": next, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to rotate refresh token for user %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

type channelProfileRow struct {
	ID                        string
	FullName                  string
	Username                  string
	Email                     string
	Avatar                    string
	CoverImage                string
	SubscribersCount          int64
	ChannelsSubscribedToCount int64
	IsSubscribed              int64
}

const channelProfileQuery = `
SELECT u.id, u.full_name, u.username, u.email, u.avatar, COALESCE(u.cover_image, '') AS cover_image,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscribers_count,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS channels_subscribed_to_count,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?) AS is_subscribed
FROM users u
WHERE u.username = ?
LIMIT 1`

func (r *gormUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error) {
	var row channelProfileRow
	res := r.db.WithContext(ctx).Raw(channelProfileQuery, viewerID, username).Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load channel profile %q: %w", username, res.Error)
	}
	if res.RowsAffected == 0 || row.ID == "" {
		return nil, nil
	}
	return &model.ChannelProfile{
		ID:                        row.ID,
		FullName:                  row.FullName,
		Username:                  row.Username,
		Email:                     row.Email,
		Avatar:                    row.Avatar,
		CoverImage:                row.CoverImage,
		SubscribersCount:          row.SubscribersCount,
		ChannelsSubscribedToCount: row.ChannelsSubscribedToCount,
		IsSubscribed:              row.IsSubscribed > 0,
	}, nil
}

type watchHistoryRow struct {
	ID            string
	Title         string
	Description   string
	VideoFile     string
	Thumbnail     string
	Duration      float64
	Views         int64
	CreatedAt     time.Time
	OwnerID       string
	OwnerFullName string
	OwnerUsername string
	OwnerAvatar   string
}

// The owner join is on the users primary key, so each video resolves to at most one owner.
const watchHistoryQuery = `
SELECT v.id, v.title, COALESCE(v.description, '') AS description, v.video_file, v.thumbnail,
	v.duration, v.views, v.created_at,
	COALESCE(u.id, '') AS owner_id, COALESCE(u.full_name, '') AS owner_full_name,
	COALESCE(u.username, '') AS owner_username, COALESCE(u.avatar, '') AS owner_avatar
FROM watch_history_entries w
JOIN videos v ON v.id = w.video_id
LEFT JOIN users u ON u.id = v.owner_id
WHERE w.user_id = ?
ORDER BY w.id ASC`

func (r *gormUserRepository) WatchHistory(ctx context.Context, userID string) ([]model.VideoSummary, error) {
	var rows []watchHistoryRow
	if err := r.db.WithContext(ctx).Raw(watchHistoryQuery, userID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load watch history for user %s: %w", userID, err)
	}

	history := make([]model.VideoSummary, 0, len(rows))
	for _, row := range rows {
		history = append(history, model.VideoSummary{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			VideoFile:   row.VideoFile,
			Thumbnail:   row.Thumbnail,
			Duration:    row.Duration,
			Views:       row.Views,
			CreatedAt:   row.CreatedAt,
			Owner: model.VideoOwner{
				ID:       row.OwnerID,
				FullName: row.OwnerFullName,
				Username: row.OwnerUsername,
				Avatar:   row.OwnerAvatar,
			},
		})
	}
	return history, nil
}

func (r *gormUserRepository) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	entry := &model.WatchHistoryEntry{UserID: userID, VideoID: videoID}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append video %s to history of user %s: %w", videoID, userID, err)
	}
	return nil
}
