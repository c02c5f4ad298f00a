package services

import (
	"github.com/pokeclass/pokeclass/internal/config"
	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/internal/security"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// CreditService is the teacher credit ledger plus the cost policy for
// credit-gated actions. The policy is advisory: callers look up the
// cost and decide to charge; the service only guarantees the balance
// arithmetic.
type CreditService struct {
	credits *repositories.CreditRepository
	cfg     *config.Config
	mirror  *mirror.Store
	bus     *events.Bus
}

func NewCreditService(credits *repositories.CreditRepository, cfg *config.Config, m *mirror.Store, bus *events.Bus) *CreditService {
	return &CreditService{credits: credits, cfg: cfg, mirror: m, bus: bus}
}

// HasCredits reports whether the teacher can afford required credits.
// The balance row is created lazily with the starting grant.
func (s *CreditService) HasCredits(teacherID uint, required int64) (bool, error) {
	if teacherID == 0 {
		return false, errors.New(errors.ErrCodeValidation, "teacher id is required")
	}

	credit, err := s.credits.GetOrCreate(teacherID, s.cfg.StartingCredits)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeStorage) && s.mirror != nil {
			state, merr := s.mirror.TeacherCredits(teacherID)
			if merr == nil {
				logger.Warn("serving credit check from local mirror", "teacher_id", teacherID)
				return state.Unlimited || state.Credits >= required, nil
			}
		}
		return false, err
	}

	s.writeThrough(teacherID, credit)
	if credit.Unlimited {
		return true, nil
	}
	return credit.Credits >= required, nil
}

// ConsumeCredits spends amount credits. Returns false without mutation
// when the balance falls short; unlimited teachers always pass without
// spending.
func (s *CreditService) ConsumeCredits(teacherID uint, amount int64, reason, relatedType string, relatedID uint) (bool, error) {
	if teacherID == 0 {
		return false, errors.New(errors.ErrCodeValidation, "teacher id is required")
	}
	if amount <= 0 {
		return false, errors.New(errors.ErrCodeValidation, "amount must be a positive integer")
	}
	reason = security.SanitizeReason(reason)

	credit, err := s.credits.GetOrCreate(teacherID, s.cfg.StartingCredits)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeStorage) {
			return s.fallbackSpend(teacherID, amount, reason, err)
		}
		return false, err
	}
	if credit.Unlimited {
		return true, nil
	}

	ok, err := s.credits.Consume(teacherID, amount, reason, relatedType, relatedID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeStorage) {
			return s.fallbackSpend(teacherID, amount, reason, err)
		}
		return false, err
	}
	if !ok {
		return false, nil
	}

	credit, err = s.credits.GetOrCreate(teacherID, 0)
	if err == nil {
		s.writeThrough(teacherID, credit)
	}
	s.bus.Publish(events.Event{
		Type:      events.TypeCreditsConsumed,
		TeacherID: teacherID,
		Amount:    -amount,
		Reason:    reason,
	})
	return true, nil
}

// fallbackSpend journals a spend the remote store rejected for
// availability reasons. Affordability is decided from the mirrored
// view; a teacher the mirror has never seen surfaces the original
// failure instead of guessing.
func (s *CreditService) fallbackSpend(teacherID uint, amount int64, reason string, cause error) (bool, error) {
	if s.mirror == nil {
		return false, cause
	}
	state, merr := s.mirror.TeacherCredits(teacherID)
	if merr != nil {
		return false, cause
	}
	if state.Unlimited {
		return true, nil
	}
	if state.Credits < amount {
		return false, nil
	}
	if err := s.mirror.QueueCreditSpend(teacherID, amount, reason); err != nil {
		logger.Error("mirror journal write failed", "teacher_id", teacherID, "error", err)
		return false, cause
	}
	logger.Warn("credit spend queued to local mirror",
		"teacher_id", teacherID,
		"amount", amount,
		"cause", cause,
	)
	return true, nil
}

// AddCredits applies an admin grant to the teacher's balance.
func (s *CreditService) AddCredits(teacherID uint, amount int64, reason string) (int64, error) {
	if teacherID == 0 {
		return 0, errors.New(errors.ErrCodeValidation, "teacher id is required")
	}
	if amount <= 0 {
		return 0, errors.New(errors.ErrCodeValidation, "amount must be a positive integer")
	}
	if _, err := s.credits.GetOrCreate(teacherID, s.cfg.StartingCredits); err != nil {
		return 0, err
	}
	balance, err := s.credits.AddCredits(teacherID, amount, models.TxTypeAdminGrant, security.SanitizeReason(reason))
	if err != nil {
		return 0, err
	}
	if credit, gerr := s.credits.GetOrCreate(teacherID, 0); gerr == nil {
		s.writeThrough(teacherID, credit)
	}
	return balance, nil
}

// GetBalance returns the teacher's credit row, lazily creating it.
func (s *CreditService) GetBalance(teacherID uint) (*models.TeacherCredit, error) {
	return s.credits.GetOrCreate(teacherID, s.cfg.StartingCredits)
}

// GetHistory returns the teacher's recent credit transactions.
func (s *CreditService) GetHistory(teacherID uint, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.credits.GetTransactionHistory(teacherID, limit)
}

func (s *CreditService) writeThrough(teacherID uint, credit *models.TeacherCredit) {
	if s.mirror == nil {
		return
	}
	err := s.mirror.PutTeacherCredits(teacherID, mirror.CreditState{
		Credits:     credit.Credits,
		UsedCredits: credit.UsedCredits,
		Unlimited:   credit.Unlimited,
	})
	if err != nil {
		logger.Warn("mirror write-through failed", "teacher_id", teacherID, "error", err)
	}
}

// Cost policy. Costs come from config so a school can tune them
// without a deploy.

func (s *CreditService) CreateStudentCost() int64 {
	return s.cfg.CreateStudentCost
}

// PostHomeworkCost clamps the call site's declared cost into the 1-5
// band the product allows.
func (s *CreditService) PostHomeworkCost(declared int64) int64 {
	if declared < 1 {
		return 1
	}
	if declared > 5 {
		return 5
	}
	return declared
}

// ApproveHomeworkCost charges proportionally to the coin reward being
// approved: ceil(coinReward / divisor), minimum 1.
func (s *CreditService) ApproveHomeworkCost(coinReward int64) int64 {
	return ceilDiv(coinReward, s.cfg.ApproveCostDivisor)
}

// RemovePokemonCost charges more for rarer Pokemon.
func (s *CreditService) RemovePokemonCost(rarity string) int64 {
	switch rarity {
	case models.RarityRare, models.RarityLegendary:
		return s.cfg.RarePokemonRemoveCost
	default:
		return s.cfg.PokemonRemoveCost
	}
}

// ManualAwardCost charges proportionally to the awarded amount.
func (s *CreditService) ManualAwardCost(amount int64) int64 {
	return ceilDiv(amount, s.cfg.ApproveCostDivisor)
}

func ceilDiv(amount, divisor int64) int64 {
	if divisor <= 0 {
		divisor = 10
	}
	cost := (amount + divisor - 1) / divisor
	if cost < 1 {
		cost = 1
	}
	return cost
}
