package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"VidTube/model"
)

type gormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new gormSubscriptionRepository.
func NewGormSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &gormSubscriptionRepository{db: db}
}

func (r *gormSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription %s -> %s: %w", sub.SubscriberID, sub.ChannelID, err)
	}
	return nil
}

func (r *gormSubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Delete(&model.Subscription{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete subscription %s -> %s: %w", subscriberID, channelID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *gormSubscriptionRepository) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check subscription %s -> %s: %w", subscriberID, channelID, err)
	}
	return count > 0, nil
}
