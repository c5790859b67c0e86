package model

import (
	"time"

	"github.com/google/uuid"
)

// Video is the content a watch history refers to.
type Video struct {
	ID          string    `json:"_id" gorm:"primaryKey;size:36" bson:"_id"`
	OwnerID     string    `json:"owner" gorm:"size:36;not null;index" bson:"owner"`
	Title       string    `json:"title" gorm:"size:255;not null" bson:"title"`
	Description string    `json:"description" gorm:"type:text" bson:"description"`
	VideoFile   string    `json:"videoFile" gorm:"size:1024;not null" bson:"videoFile"`
	Thumbnail   string    `json:"thumbnail" gorm:"size:1024;not null" bson:"thumbnail"`
	Duration    float64   `json:"duration" bson:"duration"`
	Views       int64     `json:"views" gorm:"not null;default:0" bson:"views"`
	IsPublished bool      `json:"isPublished" gorm:"not null;default:true" bson:"isPublished"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime" bson:"updatedAt"`
}

// NewVideo creates a published video with a fresh id.
func NewVideo(ownerID, title, videoFile, thumbnail string, duration float64) *Video {
	now := time.Now()
	return &Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		VideoFile:   videoFile,
		Thumbnail:   thumbnail,
		Duration:    duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WatchHistoryEntry is one position in a user's ordered watch history (SQL stores only).
// Ordering is by the auto-increment ID.
type WatchHistoryEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:36;not null;index"`
	VideoID   string    `gorm:"size:36;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName keeps the table name stable regardless of the struct name.
func (WatchHistoryEntry) TableName() string {
	return "watch_history_entries"
}

// VideoOwner is the minimal owner projection embedded in a VideoSummary.
type VideoOwner struct {
	ID       string `json:"_id" bson:"_id"`
	FullName string `json:"fullname" bson:"fullname"`
	Username string `json:"username" bson:"username"`
	Avatar   string `json:"avatar" bson:"avatar"`
}

// VideoSummary is a watch-history item with exactly one resolved owner.
type VideoSummary struct {
	ID          string     `json:"_id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	VideoFile   string     `json:"videoFile" bson:"videoFile"`
	Thumbnail   string     `json:"thumbnail" bson:"thumbnail"`
	Duration    float64    `json:"duration" bson:"duration"`
	Views       int64      `json:"views" bson:"views"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	Owner       VideoOwner `json:"owner" bson:"owner"`
}
