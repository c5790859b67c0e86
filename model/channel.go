package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a directed edge: Subscriber follows Channel. There is no uniqueness
// constraint on the pair.
type Subscription struct {
	ID           string    `json:"_id" gorm:"primaryKey;size:36" bson:"_id"`
	SubscriberID string    `json:"subscriber" gorm:"size:36;not null;index" bson:"subscriber"`
	ChannelID    string    `json:"channel" gorm:"size:36;not null;index" bson:"channel"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime" bson:"updatedAt"`
}

// NewSubscription creates an edge with a fresh id.
func NewSubscription(subscriberID, channelID string) *Subscription {
	now := time.Now()
	return &Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ChannelProfile is a User viewed as the target of subscriptions.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	FullName                  string `json:"fullname"`
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}
