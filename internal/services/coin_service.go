package services

import (
	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/internal/security"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// CoinService is the student coin ledger. Every mutation leaves an
// audit row and publishes an event; the remote store is authoritative,
// the mirror absorbs reads and non-strict writes while it is down.
type CoinService struct {
	coins  *repositories.CoinRepository
	mirror *mirror.Store
	bus    *events.Bus
}

func NewCoinService(coins *repositories.CoinRepository, m *mirror.Store, bus *events.Bus) *CoinService {
	return &CoinService{coins: coins, mirror: m, bus: bus}
}

// AwardCoins credits amount coins to the student as a teacher award.
func (s *CoinService) AwardCoins(studentID uint, amount int64, reason, relatedType string, relatedID uint) (int64, error) {
	return s.Award(studentID, amount, models.TxTypeTeacherAward, reason, relatedType, relatedID)
}

// Award credits amount coins with an explicit transaction type, for
// callers like the mystery ball that are not teacher awards.
func (s *CoinService) Award(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error) {
	if studentID == 0 {
		return 0, errors.New(errors.ErrCodeValidation, "student id is required")
	}
	if amount <= 0 {
		return 0, errors.New(errors.ErrCodeValidation, "amount must be a positive integer")
	}
	reason = security.SanitizeReason(reason)

	balance, err := s.coins.AwardCoins(studentID, amount, txType, reason, relatedType, relatedID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeStorage) {
			return s.fallbackDelta(studentID, amount, reason, err)
		}
		return 0, err
	}

	s.writeThrough(studentID, balance)
	s.bus.Publish(events.Event{
		Type:       events.TypeCoinsAwarded,
		StudentID:  studentID,
		Amount:     amount,
		NewBalance: balance,
		Reason:     reason,
	})
	return balance, nil
}

// RemoveCoins debits up to amount coins, clamping the balance at zero.
// The shop's strict debit lives in the purchase orchestrator; this is
// the permissive teacher-drop path.
func (s *CoinService) RemoveCoins(studentID uint, amount int64, reason, relatedType string, relatedID uint) (int64, error) {
	if studentID == 0 {
		return 0, errors.New(errors.ErrCodeValidation, "student id is required")
	}
	if amount <= 0 {
		return 0, errors.New(errors.ErrCodeValidation, "amount must be a positive integer")
	}
	reason = security.SanitizeReason(reason)

	balance, err := s.coins.RemoveCoins(studentID, amount, models.TxTypeTeacherRemoval, reason, relatedType, relatedID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeStorage) {
			return s.fallbackDelta(studentID, -amount, reason, err)
		}
		return 0, err
	}

	s.writeThrough(studentID, balance)
	s.bus.Publish(events.Event{
		Type:       events.TypeCoinsRemoved,
		StudentID:  studentID,
		Amount:     -amount,
		NewBalance: balance,
		Reason:     reason,
	})
	return balance, nil
}

// GetBalance reads the remote balance, degrading to the mirror when
// the remote store is unreachable.
func (s *CoinService) GetBalance(studentID uint) (int64, error) {
	balance, err := s.coins.GetBalance(studentID)
	if err == nil {
		s.writeThrough(studentID, balance)
		return balance, nil
	}
	if !errors.HasCode(err, errors.ErrCodeStorage) || s.mirror == nil {
		return 0, err
	}

	local, merr := s.mirror.StudentCoins(studentID)
	if merr != nil {
		return 0, err
	}
	logger.Warn("serving coin balance from local mirror",
		"student_id", studentID,
		"error", err,
	)
	return local, nil
}

// GetHistory returns the student's recent coin transactions.
func (s *CoinService) GetHistory(studentID uint, limit int) ([]models.CoinTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.coins.GetTransactionHistory(studentID, limit)
}

// fallbackDelta journals a mutation the remote store rejected for
// availability reasons. The mirror applies it locally and replays it
// against the remote store later.
func (s *CoinService) fallbackDelta(studentID uint, delta int64, reason string, cause error) (int64, error) {
	if s.mirror == nil {
		return 0, cause
	}
	if err := s.mirror.QueueCoinDelta(studentID, delta, reason); err != nil {
		logger.Error("mirror journal write failed", "student_id", studentID, "error", err)
		return 0, cause
	}
	logger.Warn("coin mutation queued to local mirror",
		"student_id", studentID,
		"delta", delta,
		"cause", cause,
	)
	balance, err := s.mirror.StudentCoins(studentID)
	if err != nil {
		return 0, cause
	}
	return balance, nil
}

func (s *CoinService) writeThrough(studentID uint, balance int64) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.PutStudentCoins(studentID, balance); err != nil {
		logger.Warn("mirror write-through failed", "student_id", studentID, "error", err)
	}
}
