// Package history persists the commands executed in console sessions, so
// that a session attaching to a long-running host can see what earlier
// sessions did.
package history

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tinydbg/dbgcon/internal/core"
	"gorm.io/gorm"
)

type Manager struct {
	db *gorm.DB
}

type Entry struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`

	Command string
	Session string
}

const (
	historySchemaVersion = 1
)

func NewManager(dbFilePath string) (*Manager, error) {
	dbFileExists := true
	if _, err := os.Stat(dbFilePath); errors.Is(err, os.ErrNotExist) {
		dbFileExists = false
	} else if err != nil {
		return nil, fmt.Errorf("error checking history db: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening history db: %w", err)
	}

	if needsMigration(dbFileExists, db) {
		if err := db.AutoMigrate(&Entry{}); err != nil {
			return nil, fmt.Errorf("error auto-migrating history schema: %w", err)
		}
		if err := writeSchemaVersion(historySchemaVersion); err != nil {
			return nil, fmt.Errorf("error writing history schema version: %w", err)
		}
	}

	return &Manager{
		db: db,
	}, nil
}

func needsMigration(dbFileExists bool, db *gorm.DB) bool {
	if !dbFileExists {
		return true
	}

	versionMatches, err := schemaVersionMatches()
	if err != nil || !versionMatches {
		return true
	}

	// If the version marker is present but the table is missing (corruption or
	// manual deletion), re-run migrations to restore the schema.
	return !db.Migrator().HasTable(&Entry{})
}

func writeSchemaVersion(version int) error {
	return os.WriteFile(core.VersionMarkerFile(), []byte(strconv.Itoa(version)), 0644)
}

func schemaVersionMatches() (bool, error) {
	data, err := os.ReadFile(core.VersionMarkerFile())
	if err != nil {
		return false, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, err
	}
	if version != historySchemaVersion {
		return false, fmt.Errorf("history schema version mismatch: got %d, want %d", version, historySchemaVersion)
	}
	return true, nil
}

// Append records a command executed in the named session.
func (m *Manager) Append(command string, session string) (*Entry, error) {
	entry := Entry{
		Command: command,
		Session: session,
	}

	result := m.db.Create(&entry)
	if result.Error != nil {
		return nil, result.Error
	}

	return &entry, nil
}

// Recent returns up to limit entries in chronological order. An empty
// session matches entries from all sessions.
func (m *Manager) Recent(session string, limit int) ([]Entry, error) {
	var entries []Entry
	var db = m.db
	if session != "" {
		db = db.Where("session = ?", session)
	}
	result := db.Order("created_at desc").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	slices.Reverse(entries)
	return entries, nil
}

// Search returns entries whose command contains the given substring, most
// recent first.
func (m *Manager) Search(query string, limit int) ([]Entry, error) {
	var entries []Entry
	result := m.db.Where("command LIKE ?", "%"+query+"%").
		Order("created_at desc").
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

// Reset deletes all history entries.
func (m *Manager) Reset() error {
	result := m.db.Exec("DELETE FROM entries")
	if result.Error != nil {
		return result.Error
	}

	return nil
}
