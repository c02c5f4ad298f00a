package repositories

import (
	"path/filepath"
	"testing"

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

func seedStudent(t *testing.T, db *gorm.DB, coins int64) uint {
	t.Helper()
	student := models.Student{Name: "Test Student", Coins: coins}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("failed to seed student: %v", err)
	}
	return student.ID
}

func seedPokemon(t *testing.T, db *gorm.DB, name string, price int64) uint {
	t.Helper()
	pokemon := models.Pokemon{Name: name, Type1: "normal", Rarity: models.RarityCommon, Price: price}
	if err := db.Create(&pokemon).Error; err != nil {
		t.Fatalf("failed to seed pokemon: %v", err)
	}
	return pokemon.ID
}
