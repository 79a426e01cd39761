package database

import (
	"errors"
	"testing"

	"github.com/SlpAus/aura-wager-backend/internal/platform/config"
	"gorm.io/gorm"
)

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "aura.db?_foreign_keys=on&_busy_timeout=5000"},
		{"data/aura.db", "data/aura.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:aura.db?cache=shared", "file:aura.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.path); got != tt.want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		t.Fatalf("select 1 = %d, %v", one, err)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("ERROR: could not serialize access due to concurrent update"), true},
		{gorm.ErrDuplicatedKey, false},
		{errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		if got := IsRetryableError(tt.err); got != tt.want {
			t.Fatalf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
