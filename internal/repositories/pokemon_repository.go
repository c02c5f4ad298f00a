package repositories

import (
	stderrors "errors"

	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
	"gorm.io/gorm"
)

type PokemonRepository struct {
	db *gorm.DB
}

func NewPokemonRepository(db *gorm.DB) *PokemonRepository {
	return &PokemonRepository{db: db}
}

// GetCatalog returns the full purchasable/awardable pool.
func (r *PokemonRepository) GetCatalog() ([]models.Pokemon, error) {
	var catalog []models.Pokemon
	result := r.db.Order("id").Find(&catalog)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to load catalog")
	}
	return catalog, nil
}

// GetPokemonByID retrieves a catalog entry.
func (r *PokemonRepository) GetPokemonByID(id uint) (*models.Pokemon, error) {
	var pokemon models.Pokemon
	result := r.db.First(&pokemon, id)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "pokemon not found in catalog")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to load pokemon")
	}

	return &pokemon, nil
}

// CreateEntry inserts a collection row for a grant.
func (r *PokemonRepository) CreateEntry(entry *models.StudentPokemon) error {
	if err := r.db.Create(entry).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to create collection entry")
	}
	return nil
}

// DeleteEntry removes one owned instance by its collection-row id.
// Students can own duplicates of a species; deleting by pokemon id
// would pick an arbitrary one.
func (r *PokemonRepository) DeleteEntry(entryID uint) error {
	result := r.db.Delete(&models.StudentPokemon{}, entryID)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to delete collection entry")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "collection entry not found")
	}
	return nil
}

// GetEntry retrieves one collection row.
func (r *PokemonRepository) GetEntry(entryID uint) (*models.StudentPokemon, error) {
	var entry models.StudentPokemon
	result := r.db.First(&entry, entryID)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "collection entry not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to load collection entry")
	}

	return &entry, nil
}

// GetCollection returns a student's owned Pokemon joined with catalog
// metadata. Entries whose catalog row was deleted are kept with
// CatalogMissing set rather than dropped; the grant is still real.
func (r *PokemonRepository) GetCollection(studentID uint) ([]models.CollectionEntry, error) {
	var owned []models.StudentPokemon
	result := r.db.Where("student_id = ?", studentID).Order("awarded_at DESC").Find(&owned)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to load collection")
	}
	if len(owned) == 0 {
		return []models.CollectionEntry{}, nil
	}

	ids := make([]uint, 0, len(owned))
	seen := make(map[uint]bool, len(owned))
	for _, entry := range owned {
		if !seen[entry.PokemonID] {
			seen[entry.PokemonID] = true
			ids = append(ids, entry.PokemonID)
		}
	}

	var catalog []models.Pokemon
	if err := r.db.Where("id IN ?", ids).Find(&catalog).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to load catalog metadata")
	}
	byID := make(map[uint]models.Pokemon, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	entries := make([]models.CollectionEntry, 0, len(owned))
	for _, own := range owned {
		entry := models.CollectionEntry{
			ID:        own.ID,
			StudentID: own.StudentID,
			PokemonID: own.PokemonID,
			Source:    own.Source,
			AwardedAt: own.AwardedAt,
		}
		if p, ok := byID[own.PokemonID]; ok {
			entry.Name = p.Name
			entry.ImageURL = p.ImageURL
			entry.Type1 = p.Type1
			entry.Type2 = p.Type2
			entry.Rarity = p.Rarity
		} else {
			entry.CatalogMissing = true
			logger.Warn("collection entry references deleted catalog pokemon",
				"entry_id", own.ID,
				"pokemon_id", own.PokemonID,
				"student_id", studentID,
			)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
