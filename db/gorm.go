package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"VidTube/config"
	"VidTube/logger"
	"VidTube/model"
)

// Models lists every table the SQL stores migrate.
var Models = []interface{}{
	&model.User{},
	&model.Subscription{},
	&model.Video{},
	&model.WatchHistoryEntry{},
}

func dialector(cfg config.StoreConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", cfg.Driver)
	}
}

// ConnectGormDB opens a GORM connection for the configured SQL driver.
// Unique violations are translated to gorm.ErrDuplicatedKey.
func ConnectGormDB(cfg config.StoreConfig, verbose bool) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	logMode := gormlogger.Warn
	if verbose {
		logMode = gormlogger.Info
	}
	gormDB, err := gorm.Open(d, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(logMode),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Info("Connected to SQL store", logger.String("driver", cfg.Driver))
	return gormDB, nil
}

// CloseGormDB closes the underlying connection pool.
func CloseGormDB(gormDB *gorm.DB) error {
	if gormDB == nil {
		return nil
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrateModels migrates Models, or the given models when any are passed.
func AutoMigrateModels(gormDB *gorm.DB, models ...interface{}) error {
	if gormDB == nil {
		return fmt.Errorf("GORM database not initialized")
	}
	if len(models) == 0 {
		models = Models
	}
	if err := gormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	logger.Info("Models migrated successfully", logger.Int("count", len(models)))
	return nil
}
