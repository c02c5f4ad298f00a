package services

import (
	"fmt"

	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// TeacherService wraps reward actions behind the credit gate: the
// teacher's credits are charged first, and the charge is compensated
// if the reward itself cannot be applied.
type TeacherService struct {
	credits    *CreditService
	coins      *CoinService
	collection *CollectionService
	catalog    *repositories.PokemonRepository
}

func NewTeacherService(credits *CreditService, coins *CoinService, collection *CollectionService, catalog *repositories.PokemonRepository) *TeacherService {
	return &TeacherService{credits: credits, coins: coins, collection: collection, catalog: catalog}
}

// AwardCoins charges the teacher the proportional credit cost, then
// credits the student.
func (s *TeacherService) AwardCoins(teacherID, studentID uint, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, errors.New(errors.ErrCodeValidation, "amount must be a positive integer")
	}

	cost := s.credits.ManualAwardCost(amount)
	ok, err := s.credits.ConsumeCredits(teacherID, cost, fmt.Sprintf("Award %d coins to student", amount), models.EntityTypeClass, 0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, insufficientCredits(cost)
	}

	balance, err := s.coins.AwardCoins(studentID, amount, reason, models.EntityTypeClass, 0)
	if err != nil {
		s.refundCredits(teacherID, cost, "coin award failed", err)
		return 0, err
	}
	return balance, nil
}

// AwardPokemon charges credits proportional to the Pokemon's catalog
// price, then grants it.
func (s *TeacherService) AwardPokemon(teacherID, studentID, pokemonID uint) (*models.StudentPokemon, error) {
	pokemon, err := s.catalog.GetPokemonByID(pokemonID)
	if err != nil {
		return nil, err
	}

	cost := s.credits.ManualAwardCost(pokemon.Price)
	ok, err := s.credits.ConsumeCredits(teacherID, cost, fmt.Sprintf("Award %s to student", pokemon.Name), models.EntityTypePokemon, pokemonID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, insufficientCredits(cost)
	}

	entry, err := s.collection.AwardPokemon(studentID, pokemonID, models.SourceTeacherAward)
	if err != nil {
		s.refundCredits(teacherID, cost, "pokemon award failed", err)
		return nil, err
	}
	return entry, nil
}

// RemovePokemon charges the rarity-based cost, then deletes the owned
// instance.
func (s *TeacherService) RemovePokemon(teacherID, entryID uint) error {
	entry, err := s.collection.GetEntry(entryID)
	if err != nil {
		return err
	}

	rarity := models.RarityCommon
	if pokemon, perr := s.catalog.GetPokemonByID(entry.PokemonID); perr == nil {
		rarity = pokemon.Rarity
	}

	cost := s.credits.RemovePokemonCost(rarity)
	ok, err := s.credits.ConsumeCredits(teacherID, cost, "Remove pokemon from student", models.EntityTypePokemon, entry.PokemonID)
	if err != nil {
		return err
	}
	if !ok {
		return insufficientCredits(cost)
	}

	if err := s.collection.RemovePokemon(entryID); err != nil {
		s.refundCredits(teacherID, cost, "pokemon removal failed", err)
		return err
	}
	return nil
}

// RemoveCoins is not credit-gated: taking coins away costs nothing.
func (s *TeacherService) RemoveCoins(teacherID, studentID uint, amount int64, reason string) (int64, error) {
	return s.coins.RemoveCoins(studentID, amount, reason, models.EntityTypeClass, 0)
}

func (s *TeacherService) refundCredits(teacherID uint, cost int64, what string, cause error) {
	if _, err := s.credits.AddCredits(teacherID, cost, fmt.Sprintf("Refund: %s", what)); err != nil {
		logger.Error("credit refund failed, manual reconciliation required",
			"teacher_id", teacherID,
			"credits", cost,
			"cause", cause,
			"refund_error", err,
		)
	}
}

func insufficientCredits(required int64) error {
	return errors.New(errors.ErrCodeInsufficientFunds,
		fmt.Sprintf("You need %d credits for this action", required))
}
