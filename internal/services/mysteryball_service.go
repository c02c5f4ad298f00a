package services

import (
	"math/rand"
	"time"

	"github.com/pokeclass/pokeclass/internal/config"
	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// coinAwarder is the slice of the coin service the randomizer needs.
type coinAwarder interface {
	Award(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error)
}

// MysteryBallService runs the once-per-day randomized reward. The
// attempt is consumed before the reward resolves, so a crash cannot
// hand out two rolls; a failed grant releases the attempt again so the
// student is not charged for nothing.
type MysteryBallService struct {
	attempts *repositories.AttemptRepository
	catalog  *repositories.PokemonRepository
	coins    coinAwarder
	grants   pokemonGranter
	cfg      *config.Config
	loc      *time.Location
	bus      *events.Bus

	// Injectable for deterministic tests; defaults draw from math/rand.
	randFloat func() float64
	randInt   func(n int64) int64
}

func NewMysteryBallService(
	attempts *repositories.AttemptRepository,
	catalog *repositories.PokemonRepository,
	coins coinAwarder,
	grants pokemonGranter,
	cfg *config.Config,
	bus *events.Bus,
) *MysteryBallService {
	return &MysteryBallService{
		attempts:  attempts,
		catalog:   catalog,
		coins:     coins,
		grants:    grants,
		cfg:       cfg,
		loc:       cfg.Location(),
		bus:       bus,
		randFloat: rand.Float64,
		randInt:   rand.Int63n,
	}
}

type RollResult struct {
	Outcome    string `json:"outcome"`
	PokemonID  uint   `json:"pokemon_id,omitempty"`
	Pokemon    string `json:"pokemon,omitempty"`
	EntryID    uint   `json:"entry_id,omitempty"`
	CoinAmount int64  `json:"coin_amount,omitempty"`
}

// today is the calendar date in the server's configured timezone, the
// single policy for the whole platform.
func (s *MysteryBallService) today() string {
	return time.Now().In(s.loc).Format("2006-01-02")
}

// CanAttempt reports whether the student still has today's roll.
func (s *MysteryBallService) CanAttempt(studentID uint) (bool, error) {
	if studentID == 0 {
		return false, errors.New(errors.ErrCodeValidation, "student id is required")
	}
	return s.attempts.CanAttempt(studentID, s.today())
}

// Roll consumes today's attempt and resolves the reward.
func (s *MysteryBallService) Roll(studentID uint) (*RollResult, error) {
	if studentID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "student id is required")
	}

	day := s.today()
	consumed, err := s.attempts.Consume(studentID, day)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, errors.New(errors.ErrCodeAttemptUsed, "You already opened today's Mystery Ball")
	}

	result, applyErr := s.resolve(studentID)

	draw := &models.MysteryBallDraw{
		StudentID: studentID,
		Outcome:   result.Outcome,
		Applied:   applyErr == nil,
	}
	if result.Outcome == models.OutcomePokemon {
		draw.PokemonID = result.PokemonID
	} else {
		draw.CoinAmount = result.CoinAmount
	}
	s.attempts.RecordDraw(draw)

	if applyErr != nil {
		// Give the attempt back; the student got nothing.
		if rerr := s.attempts.Reset(studentID, day); rerr != nil {
			logger.Error("failed to release daily attempt after failed grant",
				"student_id", studentID,
				"error", rerr,
			)
		}
		return nil, applyErr
	}

	s.bus.Publish(events.Event{
		Type:        events.TypeMysteryRolled,
		StudentID:   studentID,
		PokemonID:   result.PokemonID,
		PokemonName: result.Pokemon,
		EntryID:     result.EntryID,
		Amount:      result.CoinAmount,
	})
	return result, nil
}

// resolve draws and applies the reward. The draw itself cannot fail;
// only applying it can.
func (s *MysteryBallService) resolve(studentID uint) (*RollResult, error) {
	if s.randFloat() < s.cfg.MysteryPokemonChance {
		catalog, err := s.catalog.GetCatalog()
		if err == nil && len(catalog) > 0 {
			pick := catalog[s.randInt(int64(len(catalog)))]
			result := &RollResult{
				Outcome:   models.OutcomePokemon,
				PokemonID: pick.ID,
				Pokemon:   pick.Name,
			}
			entry, gerr := s.grants.AwardPokemon(studentID, pick.ID, models.SourceMysteryBall)
			if gerr != nil {
				return result, gerr
			}
			result.EntryID = entry.ID
			return result, nil
		}
		// Empty or unreadable pool falls through to a coin payout.
		if err != nil {
			logger.Warn("mystery ball could not read catalog, paying coins instead", "error", err)
		}
	}

	span := s.cfg.MysteryCoinMax - s.cfg.MysteryCoinMin + 1
	amount := s.cfg.MysteryCoinMin + s.randInt(span)
	result := &RollResult{
		Outcome:    models.OutcomeCoins,
		CoinAmount: amount,
	}
	if _, err := s.coins.Award(studentID, amount, models.TxTypeMysteryBall, "Mystery Ball reward", "", 0); err != nil {
		return result, err
	}
	return result, nil
}

// GetHistory returns the student's past draws, newest first.
func (s *MysteryBallService) GetHistory(studentID uint, limit int) ([]models.MysteryBallDraw, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.attempts.GetDrawHistory(studentID, limit)
}
