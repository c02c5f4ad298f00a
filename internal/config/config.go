package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Security
	JWTSecret string

	// Application
	AppEnv   string
	AppPort  string
	LogLevel string

	// Timezone used for "today" in the daily attempt gate.
	// The web client used to compute dates locally, which made the
	// daily limit drift per device; the server decides now.
	Timezone string

	// Economy
	StartingCredits       int64 // granted when a teacher balance row is first created
	CreateStudentCost     int64
	PokemonRemoveCost     int64 // common/uncommon
	RarePokemonRemoveCost int64 // rare/legendary
	ApproveCostDivisor    int64 // approve homework: ceil(coinReward / divisor), min 1

	// Mystery ball. The legacy clients disagreed on these numbers
	// (50% vs 70%, 1-20 vs 5-20); whoever owns the product decision
	// sets them here once.
	MysteryPokemonChance float64
	MysteryCoinMin       int64
	MysteryCoinMax       int64

	// Fallback mirror
	MirrorPath string

	// Notifications
	NotifyBotToken string
	OwnerChatID    int64
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "pokeclass"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "pokeclass_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET_KEY", ""),

		AppEnv:   getEnv("APP_ENV", "development"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "UTC"),

		StartingCredits:       getEnvInt64("STARTING_CREDITS", 30),
		CreateStudentCost:     getEnvInt64("CREATE_STUDENT_COST", 5),
		PokemonRemoveCost:     getEnvInt64("POKEMON_REMOVE_COST", 2),
		RarePokemonRemoveCost: getEnvInt64("RARE_POKEMON_REMOVE_COST", 3),
		ApproveCostDivisor:    getEnvInt64("APPROVE_COST_DIVISOR", 10),

		MysteryPokemonChance: getEnvFloat("MYSTERY_POKEMON_CHANCE", 0.5),
		MysteryCoinMin:       getEnvInt64("MYSTERY_COIN_MIN", 1),
		MysteryCoinMax:       getEnvInt64("MYSTERY_COIN_MAX", 20),

		MirrorPath: getEnv("MIRROR_PATH", "data/mirror.json"),

		NotifyBotToken: getEnv("NOTIFY_BOT_TOKEN", ""),
	}

	ownerChatStr := getEnv("OWNER_CHAT_ID", "")
	if ownerChatStr != "" {
		id, err := strconv.ParseInt(ownerChatStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OWNER_CHAT_ID: %w", err)
		}
		cfg.OwnerChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	if c.MysteryPokemonChance < 0 || c.MysteryPokemonChance > 1 {
		return fmt.Errorf("MYSTERY_POKEMON_CHANCE must be between 0 and 1")
	}
	if c.MysteryCoinMin < 1 || c.MysteryCoinMax < c.MysteryCoinMin {
		return fmt.Errorf("mystery coin range is invalid: min=%d max=%d", c.MysteryCoinMin, c.MysteryCoinMax)
	}
	if c.StartingCredits < 0 {
		return fmt.Errorf("STARTING_CREDITS must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the timezone used for attempt dates. Validate has
// already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
