// Package journal persists run history in a local SQLite database, so
// an operator can answer "when was apic2 last wiped, and did it work"
// without digging through log files.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/datacenter/wiper/internal/logging"
	"github.com/datacenter/wiper/internal/provision"
)

// Entry is one recorded provisioning run.
type Entry struct {
	ID      uint   `gorm:"primaryKey"`
	Target  string `gorm:"type:varchar(128);not null;index"`
	Stage   string `gorm:"type:varchar(32);not null"`
	Step    string `gorm:"type:varchar(64)"`
	Success bool   `gorm:"not null"`
	Error   string `gorm:"type:text"`

	// Answered is the comma-joined list of wizard steps answered
	// before the run ended.
	Answered string `gorm:"type:varchar(512)"`

	StartedAt      time.Time
	DurationMS     int64
	TranscriptSize int

	// ArchiveKey is the object key of the uploaded transcript, when
	// archiving is configured.
	ArchiveKey string `gorm:"type:varchar(256)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Entry) TableName() string { return "runs" }

// NewEntry converts a run outcome into a journal entry.
func NewEntry(outcome *provision.Outcome, archiveKey string) Entry {
	entry := Entry{
		Target:         outcome.Target,
		Stage:          string(outcome.Stage),
		Step:           outcome.Step,
		Success:        outcome.Succeeded(),
		Answered:       strings.Join(outcome.Answered, ","),
		StartedAt:      outcome.StartedAt,
		DurationMS:     outcome.Duration.Milliseconds(),
		TranscriptSize: len(outcome.Transcript),
		ArchiveKey:     archiveKey,
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	return entry
}

// Journal is a handle on the run history database.
type Journal struct {
	db   *gorm.DB
	path string
}

// Open opens (and if needed creates) the journal database at path and
// migrates the schema. SQLite runs in WAL mode over a single
// connection; the CLI writes one entry per run, so contention is not a
// concern, but a TUI refresh may read concurrently.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(logging.L(), gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

// Path returns the database file the journal writes to.
func (j *Journal) Path() string { return j.path }

// Append records one run.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if err := j.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("recording run for %s: %w", entry.Target, err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := j.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return entries, nil
}

// ByTarget returns the most recent entries for one target, newest
// first.
func (j *Journal) ByTarget(ctx context.Context, target string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := j.db.WithContext(ctx).Where("target = ?", target).Order("id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("reading journal for %s: %w", target, err)
	}
	return entries, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
