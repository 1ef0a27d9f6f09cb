// Package store opens the key value storage selected by the configuration.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	mysqlstorage "github.com/gofiber/storage/mysql/v2"
	postgresstorage "github.com/gofiber/storage/postgres/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/db/dsn"
	"github.com/evalboard/evalboard/internal/db/kvstore"
	"github.com/evalboard/evalboard/internal/logger/adapter/gormlogger"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

const slowQueryThreshold = 200 * time.Millisecond

// ErrUnknownDriver is returned for a storage driver New does not know.
var ErrUnknownDriver = errors.New("unknown storage driver")

// New opens the storage configured in cfg.Storage.
func New(cfg *config.Config) (fiber.Storage, error) {
	switch cfg.Storage.Driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o750); err != nil { //nolint:mnd
			return nil, errors.Wrap(err, "create storage directory")
		}

		return openGorm(cfg, sqlite.Open(cfg.Storage.Path), 0)
	case DriverMemory:
		// every connection of an in-memory sqlite sees its own database
		return openGorm(cfg, sqlite.Open(":memory:"), 1)
	case DriverMySQL:
		if cfg.Storage.UseGorm {
			return openGorm(cfg, gormmysql.Open(dsn.MySQL(cfg)), 0)
		}

		return openNative(func() fiber.Storage {
			return mysqlstorage.New(mysqlstorage.Config{
				ConnectionURI: dsn.MySQL(cfg),
				Table:         cfg.Storage.Table,
				GCInterval:    cfg.Storage.GCInterval,
			})
		})
	case DriverPostgres:
		if cfg.Storage.UseGorm {
			return openGorm(cfg, gormpostgres.Open(dsn.Postgres(cfg)), 0)
		}

		return openNative(func() fiber.Storage {
			return postgresstorage.New(postgresstorage.Config{
				ConnectionURI: dsn.Postgres(cfg),
				Table:         cfg.Storage.Table,
				GCInterval:    cfg.Storage.GCInterval,
			})
		})
	default:
		return nil, errors.Wrap(ErrUnknownDriver, cfg.Storage.Driver)
	}
}

func openGorm(cfg *config.Config, dialector gorm.Dialector, maxOpen int) (fiber.Storage, error) {
	level := gormlog.Warn
	if cfg.DevMode {
		level = gormlog.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.New(level, slowQueryThreshold)})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s storage", cfg.Storage.Driver)
	}

	if maxOpen > 0 {
		sqlDB, errDB := db.DB()
		if errDB != nil {
			return nil, errors.Wrap(errDB, "storage pool")
		}

		sqlDB.SetMaxOpenConns(maxOpen)
	}

	s, err := kvstore.New(db, kvstore.Config{Table: cfg.Storage.Table, GCInterval: cfg.Storage.GCInterval})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s storage", cfg.Storage.Driver)
	}

	log.Info().Str("driver", cfg.Storage.Driver).Str("table", cfg.Storage.Table).Msg("storage ready")

	return s, nil
}

// openNative turns the panics of the gofiber storage constructors into errors.
func openNative(open func() fiber.Storage) (s fiber.Storage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open storage: %v", r)
		}
	}()

	return open(), nil
}
