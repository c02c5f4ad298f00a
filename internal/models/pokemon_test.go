package models

import (
	"testing"
)

func TestPokemon_BeforeSave(t *testing.T) {
	tests := []struct {
		name    string
		pokemon Pokemon
		wantErr bool
	}{
		{
			name:    "valid common",
			pokemon: Pokemon{Name: "Bulbasaur", Type1: "grass", Rarity: RarityCommon, Price: 10},
			wantErr: false,
		},
		{
			name:    "valid legendary with second type",
			pokemon: Pokemon{Name: "Lugia", Type1: "psychic", Type2: "flying", Rarity: RarityLegendary, Price: 200},
			wantErr: false,
		},
		{
			name:    "free pokemon is valid",
			pokemon: Pokemon{Name: "Magikarp", Type1: "water", Rarity: RarityCommon, Price: 0},
			wantErr: false,
		},
		{
			name:    "missing name",
			pokemon: Pokemon{Type1: "fire", Rarity: RarityRare, Price: 50},
			wantErr: true,
		},
		{
			name:    "unknown rarity",
			pokemon: Pokemon{Name: "Eevee", Type1: "normal", Rarity: "mythic", Price: 30},
			wantErr: true,
		},
		{
			name:    "negative price",
			pokemon: Pokemon{Name: "Pidgey", Type1: "flying", Rarity: RarityCommon, Price: -5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pokemon.BeforeSave(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("BeforeSave() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStudentPokemon_BeforeSave(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{name: "shop purchase", source: SourceShopPurchase, wantErr: false},
		{name: "teacher award", source: SourceTeacherAward, wantErr: false},
		{name: "mystery ball", source: SourceMysteryBall, wantErr: false},
		{name: "event reward", source: SourceEventReward, wantErr: false},
		{name: "legacy import", source: SourceLegacy, wantErr: false},
		{name: "unknown source", source: "gift", wantErr: true},
		{name: "empty source", source: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &StudentPokemon{StudentID: 1, PokemonID: 1, Source: tt.source}
			err := entry.BeforeSave(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("BeforeSave() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStudent_BeforeSave(t *testing.T) {
	tests := []struct {
		name    string
		student Student
		wantErr bool
	}{
		{name: "valid", student: Student{Name: "Ash", Coins: 0}, wantErr: false},
		{name: "missing name", student: Student{Coins: 10}, wantErr: true},
		{name: "negative coins", student: Student{Name: "Misty", Coins: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.student.BeforeSave(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("BeforeSave() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
