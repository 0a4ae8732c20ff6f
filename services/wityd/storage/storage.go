package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrPathRequired is returned when the backing store path is missing.
	ErrPathRequired = errors.New("wityd storage path must be configured")
	// ErrUnsupportedDriver is returned for drivers other than sqlite and postgres.
	ErrUnsupportedDriver = errors.New("wityd storage driver not supported")
)

// JournalEntry is one committed economy event. Hash chains each entry to its
// predecessor.
type JournalEntry struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	ID         string    `gorm:"size:36;uniqueIndex"`
	Type       string    `gorm:"size:64;index"`
	Attributes string    `gorm:"type:text"`
	PrevHash   string    `gorm:"size:64"`
	Hash       string    `gorm:"size:64;uniqueIndex"`
	RecordedAt time.Time `gorm:"index"`
}

// TableName pins the journal table name.
func (JournalEntry) TableName() string { return "journal_entries" }

// NonceRecord marks a signed request nonce as consumed.
type NonceRecord struct {
	Signer     string    `gorm:"size:42;primaryKey"`
	Nonce      string    `gorm:"size:128;primaryKey"`
	Timestamp  int64     `gorm:"not null"`
	ObservedAt time.Time `gorm:"index"`
}

// TableName pins the nonce table name.
func (NonceRecord) TableName() string { return "request_nonces" }

// Storage wraps the wityd persistence layer.
type Storage struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the journal database and applies the schema.
func Open(driver, dsn string) (*Storage, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(trimmed)
	case "postgres":
		dialector = postgres.Open(trimmed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&JournalEntry{}, &NonceRecord{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

// SetNowFunc overrides the clock used for recorded timestamps.
func (s *Storage) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Close releases database resources.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return closeDB(s.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
