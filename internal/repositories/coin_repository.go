package repositories

import (
	stderrors "errors"

	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
	"gorm.io/gorm"
)

type CoinRepository struct {
	db *gorm.DB
}

func NewCoinRepository(db *gorm.DB) *CoinRepository {
	return &CoinRepository{db: db}
}

// AwardCoins credits a student's balance with an audit trail entry.
// The increment happens in the update expression itself, so two
// teachers awarding the same student at once cannot lose an update.
func (r *CoinRepository) AwardCoins(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error) {
	result := r.db.Model(&models.Student{}).
		Where("id = ?", studentID).
		UpdateColumn("coins", gorm.Expr("coins + ?", amount))
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to update coin balance")
	}
	if result.RowsAffected == 0 {
		return 0, errors.New(errors.ErrCodeNotFound, "student not found")
	}

	balance, err := r.GetBalance(studentID)
	if err != nil {
		return 0, err
	}

	r.recordTransaction(studentID, amount, txType, reason, relatedType, relatedID)
	return balance, nil
}

// removeRetries bounds the optimistic loop in RemoveCoins.
const removeRetries = 5

// RemoveCoins debits a student's balance, clamping at zero. Teacher
// drops are permissive: removing 20 coins from a student holding 5
// leaves 0, it does not fail. The clamp is computed against a read
// balance and applied with that balance in the WHERE clause, so a
// concurrent mutation makes this attempt miss and retry instead of
// logging an audit amount the balance never moved by.
func (r *CoinRepository) RemoveCoins(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error) {
	for i := 0; i < removeRetries; i++ {
		before, err := r.GetBalance(studentID)
		if err != nil {
			return 0, err
		}

		removed := amount
		if removed > before {
			removed = before
		}
		after := before - removed

		result := r.db.Model(&models.Student{}).
			Where("id = ? AND coins = ?", studentID, before).
			UpdateColumn("coins", after)
		if result.Error != nil {
			return 0, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to update coin balance")
		}
		if result.RowsAffected == 0 {
			// Lost the race; re-read and try again.
			continue
		}

		if removed > 0 {
			r.recordTransaction(studentID, -removed, txType, reason, relatedType, relatedID)
		}
		return after, nil
	}

	return 0, errors.New(errors.ErrCodeInternalError, "coin balance kept changing during removal")
}

// DebitStrict debits exactly amount or nothing. The affordability
// check lives inside the update's WHERE clause, so a concurrent debit
// that drained the balance first makes this one fail instead of going
// negative. Used by the purchase path.
func (r *CoinRepository) DebitStrict(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error) {
	result := r.db.Model(&models.Student{}).
		Where("id = ? AND coins >= ?", studentID, amount).
		UpdateColumn("coins", gorm.Expr("coins - ?", amount))
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to debit coin balance")
	}
	if result.RowsAffected == 0 {
		// Either the student is gone or the balance fell short.
		balance, err := r.GetBalance(studentID)
		if err != nil {
			return 0, err
		}
		return balance, errors.New(errors.ErrCodeInsufficientFunds, "insufficient coins for debit")
	}

	balance, err := r.GetBalance(studentID)
	if err != nil {
		return 0, err
	}

	r.recordTransaction(studentID, -amount, txType, reason, relatedType, relatedID)
	return balance, nil
}

// GetBalance retrieves a student's current coin balance.
func (r *CoinRepository) GetBalance(studentID uint) (int64, error) {
	var student models.Student
	result := r.db.Select("coins").First(&student, studentID)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, errors.New(errors.ErrCodeNotFound, "student not found")
	}
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to get balance")
	}

	return student.Coins, nil
}

// GetTransactionHistory retrieves a student's coin transaction history,
// newest first.
func (r *CoinRepository) GetTransactionHistory(studentID uint, limit int) ([]models.CoinTransaction, error) {
	var transactions []models.CoinTransaction
	result := r.db.Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to get transaction history")
	}

	return transactions, nil
}

// recordTransaction appends the audit row. The balance change already
// stands; a failed audit write is logged, never propagated.
func (r *CoinRepository) recordTransaction(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) {
	transaction := &models.CoinTransaction{
		StudentID:         studentID,
		Amount:            amount,
		TransactionType:   txType,
		Reason:            reason,
		RelatedEntityType: relatedType,
		RelatedEntityID:   relatedID,
	}
	if err := r.db.Create(transaction).Error; err != nil {
		logger.Error("coin transaction log write failed",
			"student_id", studentID,
			"amount", amount,
			"type", txType,
			"error", err,
		)
	}
}
