package infra

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/arcscan/bridge-indexer/pkg/common/constant"
	"github.com/arcscan/bridge-indexer/pkg/common/logger"
)

func NewDBConnection(dsn string, environment string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	logger.Info("Database connection established", "database", db.Name())

	if environment != constant.EnvProduction {
		db = db.Debug()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
