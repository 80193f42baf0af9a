package dao

import (
	"path/filepath"
	"testing"

	"github.com/zhouzirui/sky-inn/backend/internal/config"
	"github.com/zhouzirui/sky-inn/backend/internal/model/chat"
)

func TestOpenInMemoryMigrates(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory err: %v", err)
	}
	defer func() { _ = Close(db) }()

	for _, table := range []any{&chat.User{}, &chat.Chat{}, &chat.Message{}} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table for %T", table)
		}
	}
	if !db.Migrator().HasColumn(&chat.Message{}, "is_ignored") {
		t.Fatal("expected is_ignored column")
	}
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "inn.db")
	db, err := Open(config.StoreConfig{Driver: config.DriverSQLite, DSN: path, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	defer func() { _ = Close(db) }()

	if !db.Migrator().HasTable("messages") {
		t.Fatal("expected messages table")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.StoreConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
