package storage

import (
	"time"

	"gorm.io/gorm"
)

// Preference is the display choice stored for one profile.
type Preference struct {
	gorm.Model
	Profile string `gorm:"uniqueIndex;not null" json:"profile"`
	Units   string `json:"units"`
	Theme   string `json:"theme"`
}

type Search struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	City          string    `gorm:"index" json:"city"`
	Region        string    `json:"region"`
	Country       string    `json:"country"`
	Provider      string    `json:"provider"`
	ConditionCode int       `json:"condition_code"`
	Category      string    `json:"category"`
	TempC         float64   `json:"temp_c"`
	SearchedAt    time.Time `gorm:"index" json:"searched_at"`
}

// CityCount is one row of the most-searched aggregate.
type CityCount struct {
	City     string `json:"city"`
	Searches int64  `json:"searches"`
}
