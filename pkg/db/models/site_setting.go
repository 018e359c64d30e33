package models

import "time"

// SiteSetting is a key/value row backing storefront copy and toggles.
type SiteSetting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
