package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivityEvent is one recorded activity transition in the history database.
type ActivityEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Kind      string         `gorm:"not null;index" json:"kind"`
	Host      string         `json:"host"`
	Details   string         `json:"details"`
	State     string         `json:"state"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
