package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// stateKey is the row holding this keyring's state
const stateKey = "default"

// KeyringStateRow is one persisted keyring blob
type KeyringStateRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Data      []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

// TableName overrides the pluralised default
func (KeyringStateRow) TableName() string {
	return "keyring_state"
}

// StateStoreAdapter implements StateStore on a Postgres table
type StateStoreAdapter struct {
	db *gorm.DB
}

// NewStateStoreAdapter opens the database and migrates the state table
func NewStateStoreAdapter(cfg *config.RuntimeConfig) (*StateStoreAdapter, error) {
	db, err := Open(cfg.PostgresDSN, cfg.Debug)
	if err != nil {
		return nil, err
	}
	return NewStateStoreFromDB(db)
}

// NewStateStoreFromDB wraps an open connection
func NewStateStoreFromDB(db *gorm.DB) (*StateStoreAdapter, error) {
	if err := db.AutoMigrate(&KeyringStateRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate keyring state table: %w", err)
	}
	return &StateStoreAdapter{db: db}, nil
}

// Open connects to Postgres with a small connection pool
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)

	return db, nil
}

// Load returns the stored blob, or nil if the row doesn't exist yet
func (s *StateStoreAdapter) Load(ctx context.Context) ([]byte, error) {
	var row KeyringStateRow
	err := s.db.WithContext(ctx).Where("id = ?", stateKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load keyring state: %w", err)
	}
	return row.Data, nil
}

// Save upserts the blob in a single statement
func (s *StateStoreAdapter) Save(ctx context.Context, data []byte) error {
	row := KeyringStateRow{ID: stateKey, Data: data}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save keyring state: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *StateStoreAdapter) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ usecase.StateStore = (*StateStoreAdapter)(nil)
