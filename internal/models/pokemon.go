package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Pokemon is a catalog (pool) entry: species-level reference data, not
// an owned instance. Price is what the shop charges; awards ignore it.
type Pokemon struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"type:varchar(100);not null;index"`
	ImageURL    string    `gorm:"type:varchar(500)"`
	Type1       string    `gorm:"type:varchar(30);not null"`
	Type2       string    `gorm:"type:varchar(30)"`
	Rarity      string    `gorm:"type:varchar(20);not null;index"`
	Price       int64     `gorm:"default:0;not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Rarity constants
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

func ValidRarity(r string) bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityLegendary:
		return true
	}
	return false
}

func (p *Pokemon) BeforeSave(tx *gorm.DB) error {
	if p.Name == "" {
		return fmt.Errorf("pokemon name is required")
	}
	if !ValidRarity(p.Rarity) {
		return fmt.Errorf("invalid rarity: %s", p.Rarity)
	}
	if p.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}

func (Pokemon) TableName() string {
	return "pokemon_catalog"
}

// StudentPokemon is one owned instance of a catalog Pokemon. A student
// may own several rows for the same species, so removal always targets
// the row id, never the species.
type StudentPokemon struct {
	ID        uint      `gorm:"primaryKey"`
	StudentID uint      `gorm:"not null;index"`
	PokemonID uint      `gorm:"not null;index"`
	Source    string    `gorm:"type:varchar(30);not null"`
	AwardedAt time.Time `gorm:"autoCreateTime"`
}

// Grant source constants
const (
	SourceShopPurchase = "shop_purchase"
	SourceTeacherAward = "teacher_award"
	SourceMysteryBall  = "mystery_ball"
	SourceEventReward  = "event_reward"
	SourceLegacy       = "legacy"
)

func ValidSource(s string) bool {
	switch s {
	case SourceShopPurchase, SourceTeacherAward, SourceMysteryBall, SourceEventReward, SourceLegacy:
		return true
	}
	return false
}

func (sp *StudentPokemon) BeforeSave(tx *gorm.DB) error {
	if !ValidSource(sp.Source) {
		return fmt.Errorf("invalid grant source: %s", sp.Source)
	}
	return nil
}

func (StudentPokemon) TableName() string {
	return "student_pokemon_collection"
}

// CollectionEntry is a StudentPokemon joined with its catalog metadata
// for display. Catalog rows can be deleted after a grant references
// them; CatalogMissing marks those entries instead of dropping them.
type CollectionEntry struct {
	ID             uint      `json:"id"`
	StudentID      uint      `json:"student_id"`
	PokemonID      uint      `json:"pokemon_id"`
	Source         string    `json:"source"`
	AwardedAt      time.Time `json:"awarded_at"`
	Name           string    `json:"name"`
	ImageURL       string    `json:"image_url"`
	Type1          string    `json:"type1"`
	Type2          string    `json:"type2,omitempty"`
	Rarity         string    `json:"rarity"`
	CatalogMissing bool      `json:"catalog_missing,omitempty"`
}
