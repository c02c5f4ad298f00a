package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Student is the canonical balance row. The old platform split students
// across a students table and a student_profiles table and consulted
// both on every read; that split was collapsed into this single table
// during migration.
type Student struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	ClassID   uint      `gorm:"index"`
	Coins     int64     `gorm:"default:0;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (s *Student) BeforeSave(tx *gorm.DB) error {
	if s.Name == "" {
		return fmt.Errorf("student name is required")
	}
	if s.Coins < 0 {
		return fmt.Errorf("coin balance must not be negative")
	}
	return nil
}

func (Student) TableName() string {
	return "students"
}

// StudentTelegramLink maps a student to an opted-in Telegram chat for
// reward notifications.
type StudentTelegramLink struct {
	ID        uint      `gorm:"primaryKey"`
	StudentID uint      `gorm:"uniqueIndex;not null"`
	ChatID    int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (StudentTelegramLink) TableName() string {
	return "student_telegram_links"
}
