package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrNoPreference = errors.New("no stored preference")

type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Preference{}, &Search{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) GetPreference(profile string) (*Preference, error) {
	var pref Preference
	result := d.db.Where("profile = ?", profile).First(&pref)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNoPreference
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &pref, nil
}

// SavePreference inserts or updates the row for pref.Profile.
func (d *Database) SavePreference(pref *Preference) error {
	if strings.TrimSpace(pref.Profile) == "" {
		return fmt.Errorf("preference profile is empty")
	}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile"}},
		DoUpdates: clause.AssignmentColumns([]string{"units", "theme", "updated_at"}),
	}).Create(pref).Error
}

func (d *Database) RecordSearch(search *Search) error {
	if search.ID == "" {
		search.ID = uuid.NewString()
	}
	if search.SearchedAt.IsZero() {
		search.SearchedAt = time.Now()
	}
	return d.db.Create(search).Error
}

func (d *Database) RecentSearches(limit int) ([]Search, error) {
	if limit <= 0 {
		limit = 20
	}
	var searches []Search
	result := d.db.Order("searched_at desc").Limit(limit).Find(&searches)
	if result.Error != nil {
		return nil, result.Error
	}
	return searches, nil
}

func (d *Database) TopCities(limit int) ([]CityCount, error) {
	if limit <= 0 {
		limit = 5
	}
	var counts []CityCount
	result := d.db.Model(&Search{}).
		Select("city, COUNT(*) AS searches").
		Group("city").
		Order("searches desc, city").
		Limit(limit).
		Scan(&counts)
	if result.Error != nil {
		return nil, result.Error
	}
	return counts, nil
}

func (d *Database) CleanOldSearches(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := d.db.Where("searched_at < ?", cutoff).Delete(&Search{})
	return result.RowsAffected, result.Error
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
