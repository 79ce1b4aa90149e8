package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"real-estate-site/internal/models"
	"real-estate-site/internal/source"
)

// GormDB reads published listings from the backend's MySQL database.
// It only issues SELECTs; the backend owns the schema.
type GormDB struct {
	db *gorm.DB
}

// MySQLDSN builds the go-sql-driver DSN for the listings database.
func MySQLDSN(host, port, user, password, dbname string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, dbname)
}

func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	db, err := gorm.Open(mysql.Open(MySQLDSN(host, port, user, password, dbname)), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (gdb *GormDB) published(ctx context.Context) *gorm.DB {
	return gdb.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Where("is_published = ?", true)
}

// List retrieves all published properties, newest first
func (gdb *GormDB) List(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	if err := gdb.published(ctx).Order("id DESC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// Get retrieves a published property by ID
func (gdb *GormDB) Get(ctx context.Context, id int) (*models.Property, error) {
	var property models.Property
	err := gdb.published(ctx).Where("id = ?", id).First(&property).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, source.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %d: %w", id, err)
	}
	return &property, nil
}

var _ source.Source = (*GormDB)(nil)
