// Package kvstore implements fiber.Storage on top of a gorm table.
package kvstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evalboard/evalboard/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrTableEmpty is returned when no table name is configured.
	ErrTableEmpty = errors.New("table name cannot be empty")
)

var _ fiber.Storage = (*Storage)(nil)

// Config for New.
type Config struct {
	// Table holding the keys. Required.
	Table string
	// GCInterval removes expired keys periodically. Zero disables it.
	GCInterval time.Duration
	// Reset clears the table on start.
	Reset bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Storage is a gorm backed fiber.Storage.
type Storage struct {
	db   *gorm.DB
	cfg  Config
	done chan struct{}
	once sync.Once
}

// New migrates cfg.Table and returns a Storage using it.
func New(db *gorm.DB, cfg Config) (*Storage, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if cfg.Table == "" {
		return nil, ErrTableEmpty
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Storage{db: db, cfg: cfg, done: make(chan struct{})}

	if err := s.table().AutoMigrate(&models.Entry{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", cfg.Table, err)
	}

	if cfg.Reset {
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}

	if cfg.GCInterval > 0 {
		go s.gcTicker()
	}

	return s, nil
}

func (s *Storage) table() *gorm.DB {
	return s.db.Table(s.cfg.Table)
}

// Get returns the value of key, or nil when it is missing or expired.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var entry models.Entry

	err := s.table().Where("k = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	if entry.Expired(s.cfg.Now().Unix()) {
		return nil, nil
	}

	return entry.Value, nil
}

// Set stores val under key. exp zero means no expiry. Empty keys or
// values are ignored.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	entry := models.Entry{Key: key, Value: val}
	if exp > 0 {
		entry.ExpiresAt = s.cfg.Now().Add(exp).Unix()
	}

	err := s.table().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v", "e"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

// Delete removes key.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}

	if err := s.table().Where("k = ?", key).Delete(&models.Entry{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

// Take returns the value of key and removes it. When several callers take
// the same key at once, only the one whose delete removed the row gets the
// value; the others get nil.
func (s *Storage) Take(key string) ([]byte, error) {
	val, err := s.Get(key)
	if err != nil || len(val) == 0 {
		return nil, err
	}

	res := s.table().Where("k = ?", key).Delete(&models.Entry{})
	if res.Error != nil {
		return nil, fmt.Errorf("take %s: %w", key, res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, nil
	}

	return val, nil
}

// Reset removes every key.
func (s *Storage) Reset() error {
	if err := s.table().Where("1 = 1").Delete(&models.Entry{}).Error; err != nil {
		return fmt.Errorf("reset %s: %w", s.cfg.Table, err)
	}

	return nil
}

// Close stops the garbage collector and closes the database.
func (s *Storage) Close() error {
	s.once.Do(func() { close(s.done) })

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return sqlDB.Close() //nolint:wrapcheck
}

// gc removes expired keys and returns how many were removed.
func (s *Storage) gc() (int64, error) {
	res := s.table().Where("e <> 0 AND e <= ?", s.cfg.Now().Unix()).Delete(&models.Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("gc %s: %w", s.cfg.Table, res.Error)
	}

	return res.RowsAffected, nil
}

func (s *Storage) gcTicker() {
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			n, err := s.gc()
			if err != nil {
				log.Error().Err(err).Msg("kv storage gc failed")
				continue
			}

			if n > 0 {
				log.Debug().Int64("removed", n).Str("table", s.cfg.Table).Msg("kv storage gc")
			}
		}
	}
}
