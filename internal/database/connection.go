package database

import (
	"fmt"
	"time"

	"github.com/pokeclass/pokeclass/internal/config"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	var logLevel gormlogger.LogLevel
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	logger.Info("Database connected successfully")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Student{},
		&models.StudentTelegramLink{},
		&models.TeacherCredit{},
		&models.CoinTransaction{},
		&models.CreditTransaction{},
		&models.Pokemon{},
		&models.StudentPokemon{},
		&models.DailyAttempt{},
		&models.MysteryBallDraw{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if err := MigrateLegacyCollections(db); err != nil {
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// MigrateLegacyCollections copies rows from the old pokemon_collections
// table into the canonical collection table, then renames the old table
// out of the way. The old platform kept both tables live and read from
// both on every request; after this one-time copy only the canonical
// table is consulted.
func MigrateLegacyCollections(db *gorm.DB) error {
	if !db.Migrator().HasTable("pokemon_collections") {
		return nil
	}

	logger.Info("Migrating legacy pokemon_collections table...")

	type legacyRow struct {
		StudentID uint
		PokemonID uint
		CreatedAt time.Time
	}

	var rows []legacyRow
	if err := db.Table("pokemon_collections").Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to read legacy collections: %w", err)
	}

	for _, row := range rows {
		entry := models.StudentPokemon{
			StudentID: row.StudentID,
			PokemonID: row.PokemonID,
			Source:    models.SourceLegacy,
			AwardedAt: row.CreatedAt,
		}
		if err := db.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to migrate legacy collection row: %w", err)
		}
	}

	if err := db.Migrator().RenameTable("pokemon_collections", "pokemon_collections_migrated"); err != nil {
		return fmt.Errorf("failed to retire legacy table: %w", err)
	}

	logger.Info("Legacy collections migrated", "rows", len(rows))
	return nil
}

// SeedCatalog inserts a starter catalog when the pool is empty so a
// fresh install has something to sell.
func SeedCatalog(db *gorm.DB) error {
	var count int64
	db.Model(&models.Pokemon{}).Count(&count)
	if count > 0 {
		return nil
	}

	logger.Info("Seeding starter Pokemon catalog...")
	catalog := []models.Pokemon{
		{Name: "Bulbasaur", Type1: "grass", Type2: "poison", Rarity: models.RarityCommon, Price: 10, ImageURL: "/img/pokemon/1.png"},
		{Name: "Charmander", Type1: "fire", Rarity: models.RarityCommon, Price: 10, ImageURL: "/img/pokemon/4.png"},
		{Name: "Squirtle", Type1: "water", Rarity: models.RarityCommon, Price: 10, ImageURL: "/img/pokemon/7.png"},
		{Name: "Pikachu", Type1: "electric", Rarity: models.RarityUncommon, Price: 25, ImageURL: "/img/pokemon/25.png"},
		{Name: "Eevee", Type1: "normal", Rarity: models.RarityUncommon, Price: 25, ImageURL: "/img/pokemon/133.png"},
		{Name: "Snorlax", Type1: "normal", Rarity: models.RarityRare, Price: 60, ImageURL: "/img/pokemon/143.png"},
		{Name: "Dragonite", Type1: "dragon", Type2: "flying", Rarity: models.RarityRare, Price: 80, ImageURL: "/img/pokemon/149.png"},
		{Name: "Mewtwo", Type1: "psychic", Rarity: models.RarityLegendary, Price: 200, ImageURL: "/img/pokemon/150.png"},
	}

	return db.Create(&catalog).Error
}
