package repositories

import (
	stderrors "errors"

	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
	"gorm.io/gorm"
)

type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// GetOrCreate loads a teacher's credit row, creating it with the
// starting grant on first use.
func (r *CreditRepository) GetOrCreate(teacherID uint, startingGrant int64) (*models.TeacherCredit, error) {
	var credit models.TeacherCredit
	result := r.db.Where("teacher_id = ?", teacherID).First(&credit)
	if result.Error == nil {
		return &credit, nil
	}
	if !stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to load teacher credits")
	}

	credit = models.TeacherCredit{
		TeacherID: teacherID,
		Credits:   startingGrant,
	}
	if err := r.db.Create(&credit).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to create teacher credit row")
	}
	if startingGrant > 0 {
		r.recordTransaction(teacherID, startingGrant, models.TxTypeStartingGrant, "Starting credit grant", "", 0)
	}
	return &credit, nil
}

// Consume spends amount credits if the balance covers it. The balance
// check is part of the update's WHERE clause: returns false without
// mutation when credits fall short, even under concurrent spends.
func (r *CreditRepository) Consume(teacherID uint, amount int64, reason, relatedType string, relatedID uint) (bool, error) {
	result := r.db.Model(&models.TeacherCredit{}).
		Where("teacher_id = ? AND credits >= ?", teacherID, amount).
		Updates(map[string]interface{}{
			"credits":      gorm.Expr("credits - ?", amount),
			"used_credits": gorm.Expr("used_credits + ?", amount),
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to consume credits")
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	r.recordTransaction(teacherID, -amount, models.TxTypeActionSpend, reason, relatedType, relatedID)
	return true, nil
}

// AddCredits increases a teacher's balance (admin grant).
func (r *CreditRepository) AddCredits(teacherID uint, amount int64, txType, reason string) (int64, error) {
	result := r.db.Model(&models.TeacherCredit{}).
		Where("teacher_id = ?", teacherID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to add credits")
	}
	if result.RowsAffected == 0 {
		return 0, errors.New(errors.ErrCodeNotFound, "teacher credit row not found")
	}

	credit, err := r.GetOrCreate(teacherID, 0)
	if err != nil {
		return 0, err
	}

	r.recordTransaction(teacherID, amount, txType, reason, "", 0)
	return credit.Credits, nil
}

// Save persists direct edits to a credit row (admin tooling: toggling
// unlimited, correcting a balance).
func (r *CreditRepository) Save(credit *models.TeacherCredit) error {
	if err := r.db.Save(credit).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to save teacher credits")
	}
	return nil
}

// GetTransactionHistory retrieves a teacher's credit history, newest
// first.
func (r *CreditRepository) GetTransactionHistory(teacherID uint, limit int) ([]models.CreditTransaction, error) {
	var transactions []models.CreditTransaction
	result := r.db.Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to get credit history")
	}

	return transactions, nil
}

func (r *CreditRepository) recordTransaction(teacherID uint, amount int64, txType, reason, relatedType string, relatedID uint) {
	transaction := &models.CreditTransaction{
		TeacherID:         teacherID,
		Amount:            amount,
		TransactionType:   txType,
		Reason:            reason,
		RelatedEntityType: relatedType,
		RelatedEntityID:   relatedID,
	}
	if err := r.db.Create(transaction).Error; err != nil {
		logger.Error("credit transaction log write failed",
			"teacher_id", teacherID,
			"amount", amount,
			"type", txType,
			"error", err,
		)
	}
}
