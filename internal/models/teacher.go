package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TeacherCredit holds a teacher's spendable credit balance. Rows are
// created lazily with a starting grant the first time a teacher
// performs a credit-gated action. UsedCredits only ever grows; it is
// the historical spend counter shown on the teacher dashboard.
type TeacherCredit struct {
	ID          uint      `gorm:"primaryKey"`
	TeacherID   uint      `gorm:"uniqueIndex;not null"`
	Credits     int64     `gorm:"default:0;not null"`
	UsedCredits int64     `gorm:"default:0;not null"`
	Unlimited   bool      `gorm:"default:false;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (t *TeacherCredit) BeforeSave(tx *gorm.DB) error {
	if t.Credits < 0 {
		return fmt.Errorf("credit balance must not be negative")
	}
	if t.UsedCredits < 0 {
		return fmt.Errorf("used credits must not be negative")
	}
	return nil
}

func (TeacherCredit) TableName() string {
	return "teacher_credits"
}
