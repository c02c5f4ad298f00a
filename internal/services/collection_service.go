package services

import (
	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
)

// CollectionService manages grants and removals of owned Pokemon.
// Grants here are free; paying for one is the purchase orchestrator's
// business.
type CollectionService struct {
	pokemon *repositories.PokemonRepository
	bus     *events.Bus
}

func NewCollectionService(pokemon *repositories.PokemonRepository, bus *events.Bus) *CollectionService {
	return &CollectionService{pokemon: pokemon, bus: bus}
}

// AwardPokemon grants one instance of a catalog Pokemon to a student.
func (s *CollectionService) AwardPokemon(studentID, pokemonID uint, source string) (*models.StudentPokemon, error) {
	if studentID == 0 || pokemonID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "student id and pokemon id are required")
	}
	if !models.ValidSource(source) {
		return nil, errors.New(errors.ErrCodeValidation, "invalid grant source")
	}

	pokemon, err := s.pokemon.GetPokemonByID(pokemonID)
	if err != nil {
		return nil, err
	}

	entry := &models.StudentPokemon{
		StudentID: studentID,
		PokemonID: pokemonID,
		Source:    source,
	}
	if err := s.pokemon.CreateEntry(entry); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{
		Type:        events.TypePokemonGranted,
		StudentID:   studentID,
		PokemonID:   pokemonID,
		PokemonName: pokemon.Name,
		EntryID:     entry.ID,
		Reason:      source,
	})
	return entry, nil
}

// RemovePokemon deletes one owned instance by collection-row id.
func (s *CollectionService) RemovePokemon(entryID uint) error {
	entry, err := s.pokemon.GetEntry(entryID)
	if err != nil {
		return err
	}

	if err := s.pokemon.DeleteEntry(entryID); err != nil {
		return err
	}

	name := ""
	if pokemon, perr := s.pokemon.GetPokemonByID(entry.PokemonID); perr == nil {
		name = pokemon.Name
	}
	s.bus.Publish(events.Event{
		Type:        events.TypePokemonRemoved,
		StudentID:   entry.StudentID,
		PokemonID:   entry.PokemonID,
		PokemonName: name,
		EntryID:     entryID,
	})
	return nil
}

// GetEntry returns one collection row.
func (s *CollectionService) GetEntry(entryID uint) (*models.StudentPokemon, error) {
	return s.pokemon.GetEntry(entryID)
}

// GetCollection returns the student's owned Pokemon with catalog
// metadata.
func (s *CollectionService) GetCollection(studentID uint) ([]models.CollectionEntry, error) {
	if studentID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "student id is required")
	}
	return s.pokemon.GetCollection(studentID)
}

// GetCatalog returns the purchasable/awardable pool.
func (s *CollectionService) GetCatalog() ([]models.Pokemon, error) {
	return s.pokemon.GetCatalog()
}
