package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"VidTube/model"
)

type gormVideoRepository struct {
	db *gorm.DB
}

// NewGormVideoRepository creates a new gormVideoRepository.
func NewGormVideoRepository(db *gorm.DB) VideoRepository {
	return &gormVideoRepository{db: db}
}

func (r *gormVideoRepository) Create(ctx context.Context, video *model.Video) error {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *gormVideoRepository) FindByID(ctx context.Context, id string) (*model.Video, error) {
	var video model.Video
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find video %s: %w", id, err)
	}
	return &video, nil
}
