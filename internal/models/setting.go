package models

import "time"

// Setting is a key/value pair. Values are opaque strings, often JSON.
type Setting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"uniqueIndex;not null"`
	Value     string    `json:"value" gorm:"type:text"`
	Type      string    `json:"type"`     // string, bool, json
	Category  string    `json:"category"` // security, general
	UpdatedAt time.Time `json:"updated_at"`
}
