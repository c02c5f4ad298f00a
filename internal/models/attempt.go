package models

import (
	"time"
)

// DailyAttempt gates the mystery ball to one roll per student per
// calendar day. AttemptDate is a YYYY-MM-DD string in the server's
// configured timezone; the unique index makes the consume an upsert.
type DailyAttempt struct {
	ID          uint      `gorm:"primaryKey"`
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_student_day"`
	AttemptDate string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_student_day"`
	Used        bool      `gorm:"default:false;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (DailyAttempt) TableName() string {
	return "daily_attempts"
}

// MysteryBallDraw records every roll outcome. History is observational:
// it is written whether or not applying the reward succeeded, and is
// never consulted by the gate.
type MysteryBallDraw struct {
	ID         uint      `gorm:"primaryKey"`
	StudentID  uint      `gorm:"not null;index"`
	Outcome    string    `gorm:"type:varchar(20);not null"`
	PokemonID  uint      `gorm:"default:0"`
	CoinAmount int64     `gorm:"default:0"`
	Applied    bool      `gorm:"default:false;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

// Draw outcome constants
const (
	OutcomePokemon = "pokemon"
	OutcomeCoins   = "coins"
)

func (MysteryBallDraw) TableName() string {
	return "mystery_ball_history"
}
