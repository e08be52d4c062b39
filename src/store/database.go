// Package store persists simulation runs in sqlite.
package store

import (
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(path), config)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", path)
	}

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	return db, nil
}
