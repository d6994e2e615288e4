// Package db opens the event-log database. A plain path or file: DSN gets
// sqlite; anything else is treated as a MySQL DSN.
package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/threadline/stylist/internal/eventlog"
)

func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if isSQLite(dsn) {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = mysql.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&eventlog.Event{}); err != nil {
		return nil, err
	}
	return gdb, nil
}

func isSQLite(dsn string) bool {
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		return true
	}
	return !strings.Contains(dsn, "@tcp(")
}
