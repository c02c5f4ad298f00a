package repositories

import (
	stderrors "errors"

	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// CanAttempt reports whether the student still has today's roll. No
// row means the day is untouched.
func (r *AttemptRepository) CanAttempt(studentID uint, date string) (bool, error) {
	var attempt models.DailyAttempt
	result := r.db.Where("student_id = ? AND attempt_date = ?", studentID, date).First(&attempt)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to check daily attempt")
	}

	return !attempt.Used, nil
}

// Consume marks today's attempt used. The upsert targets the natural
// key and only flips used when it is still false, so two rolls racing
// on the same day resolve to exactly one winner; the loser sees false.
func (r *AttemptRepository) Consume(studentID uint, date string) (bool, error) {
	attempt := models.DailyAttempt{
		StudentID:   studentID,
		AttemptDate: date,
		Used:        true,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "attempt_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"used": true,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "daily_attempts", Name: "used"}, Value: false},
		}},
	}).Create(&attempt)

	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to consume daily attempt")
	}

	return result.RowsAffected > 0, nil
}

// Reset returns today's attempt so a failed reward grant does not cost
// the student their roll.
func (r *AttemptRepository) Reset(studentID uint, date string) error {
	result := r.db.Model(&models.DailyAttempt{}).
		Where("student_id = ? AND attempt_date = ?", studentID, date).
		UpdateColumn("used", false)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to reset daily attempt")
	}
	return nil
}

// RecordDraw appends a mystery ball history row. History is
// observational; a failed write is logged and swallowed.
func (r *AttemptRepository) RecordDraw(draw *models.MysteryBallDraw) {
	if err := r.db.Create(draw).Error; err != nil {
		logger.Error("mystery ball history write failed",
			"student_id", draw.StudentID,
			"outcome", draw.Outcome,
			"error", err,
		)
	}
}

// GetDrawHistory returns a student's past rolls, newest first.
func (r *AttemptRepository) GetDrawHistory(studentID uint, limit int) ([]models.MysteryBallDraw, error) {
	var draws []models.MysteryBallDraw
	result := r.db.Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&draws)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to load draw history")
	}
	return draws, nil
}
