package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const maxLockedRetries uint = 4

//GormStore implements Store on top of a relational database
type GormStore struct {
	db *gorm.DB
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

//OpenSQLite opens (creating if needed) a sqlite database at the given path using the pure go driver.
//The path ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*GormStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	gdb, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	//sqlite only allows a single writer; a single connection also keeps an in-memory database alive
	sqlDB.SetMaxOpenConns(1)
	return NewGormStore(gdb), nil
}

//OpenPostgres connects to a postgres database
func OpenPostgres(url string) (*GormStore, error) {
	gdb, err := gorm.Open(postgres.Open(url), gormConfig())
	if err != nil {
		return nil, err
	}
	return NewGormStore(gdb), nil
}

//NewGormStore wraps an existing gorm handle
func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb}
}

//Migrate creates or updates every table
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&guildmodels.DiscordGuild{},
		&guildmodels.ReactionRole{},
		&guildmodels.RoleChange{},
		&guildmodels.RoleRequirement{},
		&guildmodels.ChatLog{},
	)
}

//Close cleanly terminates the database connection
func (s *GormStore) Close() error {
	logrus.Info("Terminating DB connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

//withRetry retries an operation while sqlite reports the database as locked
func withRetry(ctx context.Context, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && !isLocked(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxLockedRetries))
	return err
}

func isLocked(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func affectedOne(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
