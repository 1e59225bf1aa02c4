// Package history keeps a journal of finished sync passes in SQLite.
package history

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/joe/gosync/internal/syncengine"
)

// PassRecord is one finished pass.
type PassRecord struct {
	ID          uint          `gorm:"primarykey"`
	StartedAt   time.Time     `gorm:"index;not null"`
	Duration    time.Duration `gorm:"not null"`
	Outcome     string        `gorm:"not null"`
	Message     string
	Transferred int   `gorm:"not null"`
	Failed      int   `gorm:"not null"`
	Bytes       int64 `gorm:"not null"`
	CreatedAt   time.Time
}

// Journal stores PassRecords.
type Journal struct {
	db *gorm.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.AutoMigrate(&PassRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record stores the summary of a finished pass.
func (j *Journal) Record(complete syncengine.SyncComplete) error {
	record := PassRecord{
		StartedAt:   complete.Started,
		Duration:    complete.Duration,
		Outcome:     string(complete.Outcome),
		Message:     complete.Message,
		Transferred: complete.TransferredCount,
		Failed:      len(complete.Failures),
		Bytes:       complete.Bytes,
	}

	if err := j.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record pass: %w", err)
	}

	return nil
}

// Recent returns up to n records, newest first.
func (j *Journal) Recent(n int) ([]PassRecord, error) {
	var records []PassRecord

	err := j.db.Order("started_at desc").Order("id desc").Limit(n).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return records, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	return sqlDB.Close()
}

// Summary renders a record on one line.
func (r PassRecord) Summary(now time.Time) string {
	line := fmt.Sprintf("%-14s %-8s %d sent", humanize.RelTime(r.StartedAt, now, "ago", "from now"), r.Outcome, r.Transferred)

	if r.Bytes > 0 {
		line += " (" + humanize.Bytes(uint64(r.Bytes)) + ")" //nolint:gosec // Byte counts are never negative
	}

	if r.Failed > 0 {
		line += fmt.Sprintf(", %d failed", r.Failed)
	}

	return line + fmt.Sprintf(" in %s", r.Duration.Round(time.Millisecond))
}

// Print writes records to w, one per line.
func Print(w io.Writer, records []PassRecord, now time.Time) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sync passes recorded yet")

		return err
	}

	for _, record := range records {
		if _, err := fmt.Fprintln(w, record.Summary(now)); err != nil {
			return err
		}
	}

	return nil
}
