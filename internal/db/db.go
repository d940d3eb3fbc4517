package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/nexus-rag/nexus/internal/secure"
)

// Connect opens the database and runs migrations. Anything that looks
// like a mysql DSN (user:pass@tcp(...)/db) goes through the mysql
// driver; everything else is treated as a sqlite path, which is the
// default deployment.
func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dialector = mysql.Open(dsn)
	} else {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	}

	// Timestamps are written in UTC so that created_at comparisons
	// against UTC cutoffs (rate-limit window, retention horizons) hold
	// regardless of the host zone. sqlite stores time as text and
	// compares lexicographically; a local-zone write would skew every
	// window by the host offset.
	gdb, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := gdb.AutoMigrate(&secure.Message{}, &secure.Usage{}, &secure.Lead{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return gdb, nil
}
