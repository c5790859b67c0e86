package server

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"VidTube/config"
	"VidTube/db"
	"VidTube/logger"
	"VidTube/repository"
)

// Stores bundles the repositories of one backing store.
type Stores struct {
	Users         repository.UserRepository
	Subscriptions repository.SubscriptionRepository
	Videos        repository.VideoRepository

	gormDB      *gorm.DB
	mongoClient *mongo.Client
}

// OpenStores connects to the configured store. With migrate set it also creates
// SQL tables or Mongo indexes.
func OpenStores(ctx context.Context, cfg *config.Config, migrate bool) (*Stores, error) {
	if cfg.Store.Driver == "mongo" {
		client, database, err := db.ConnectMongo(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := repository.EnsureMongoIndexes(ctx, database); err != nil {
				_ = db.DisconnectMongo(client)
				return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
			}
			logger.Info("mongo indexes ensured", logger.String("database", cfg.Store.MongoDB))
		}
		return &Stores{
			Users:         repository.NewMongoUserRepository(database),
			Subscriptions: repository.NewMongoSubscriptionRepository(database),
			Videos:        repository.NewMongoVideoRepository(database),
			mongoClient:   client,
		}, nil
	}

	gormDB, err := db.ConnectGormDB(cfg.Store, !cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := db.AutoMigrateModels(gormDB); err != nil {
			_ = db.CloseGormDB(gormDB)
			return nil, err
		}
		logger.Info("database schema migrated", logger.String("driver", cfg.Store.Driver))
	}
	return NewGormStores(gormDB), nil
}

// NewGormStores wraps an open gorm connection.
func NewGormStores(gormDB *gorm.DB) *Stores {
	return &Stores{
		Users:         repository.NewGormUserRepository(gormDB),
		Subscriptions: repository.NewGormSubscriptionRepository(gormDB),
		Videos:        repository.NewGormVideoRepository(gormDB),
		gormDB:        gormDB,
	}
}

// Close releases the underlying connection.
func (s *Stores) Close() error {
	switch {
	case s.mongoClient != nil:
		return db.DisconnectMongo(s.mongoClient)
	case s.gormDB != nil:
		return db.CloseGormDB(s.gormDB)
	}
	return nil
}
