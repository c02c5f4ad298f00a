package services

import (
	"path/filepath"
	"testing"

	"github.com/pokeclass/pokeclass/internal/config"
	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Student{},
		&models.TeacherCredit{},
		&models.CoinTransaction{},
		&models.CreditTransaction{},
		&models.Pokemon{},
		&models.StudentPokemon{},
		&models.DailyAttempt{},
		&models.MysteryBallDraw{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Timezone:              "UTC",
		StartingCredits:       30,
		CreateStudentCost:     5,
		PokemonRemoveCost:     2,
		RarePokemonRemoveCost: 3,
		ApproveCostDivisor:    10,
		MysteryPokemonChance:  0.5,
		MysteryCoinMin:        1,
		MysteryCoinMax:        20,
	}
}

func seedStudent(t *testing.T, db *gorm.DB, coins int64) uint {
	t.Helper()
	student := models.Student{Name: "Test Student", Coins: coins}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("failed to seed student: %v", err)
	}
	return student.ID
}

func seedPokemon(t *testing.T, db *gorm.DB, name, rarity string, price int64) uint {
	t.Helper()
	pokemon := models.Pokemon{Name: name, Type1: "normal", Rarity: rarity, Price: price}
	if err := db.Create(&pokemon).Error; err != nil {
		t.Fatalf("failed to seed pokemon: %v", err)
	}
	return pokemon.ID
}

func newBus() *events.Bus {
	return events.NewBus()
}

func studentCoins(t *testing.T, db *gorm.DB, studentID uint) int64 {
	t.Helper()
	var student models.Student
	if err := db.First(&student, studentID).Error; err != nil {
		t.Fatalf("failed to read student: %v", err)
	}
	return student.Coins
}

func collectionCount(t *testing.T, db *gorm.DB, studentID uint) int64 {
	t.Helper()
	var count int64
	db.Model(&models.StudentPokemon{}).Where("student_id = ?", studentID).Count(&count)
	return count
}
