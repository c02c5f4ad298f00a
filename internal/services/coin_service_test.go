package services

import (
	"path/filepath"
	"testing"

	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
)

func TestCoinService_AwardCoins_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCoinService(repositories.NewCoinRepository(db), nil, newBus())
	studentID := seedStudent(t, db, 10)

	tests := []struct {
		name      string
		studentID uint
		amount    int64
	}{
		{name: "zero amount", studentID: studentID, amount: 0},
		{name: "negative amount", studentID: studentID, amount: -5},
		{name: "missing student id", studentID: 0, amount: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AwardCoins(tt.studentID, tt.amount, "reason", "", 0)
			if !errors.HasCode(err, errors.ErrCodeValidation) {
				t.Errorf("AwardCoins() error = %v, want VALIDATION_ERROR", err)
			}
		})
	}

	// Validation happens before I/O: no balance change, no audit rows.
	if got := studentCoins(t, db, studentID); got != 10 {
		t.Errorf("balance = %d, want 10", got)
	}
}

func TestCoinService_AwardAndRemove(t *testing.T) {
	db := newTestDB(t)
	svc := NewCoinService(repositories.NewCoinRepository(db), nil, newBus())
	studentID := seedStudent(t, db, 0)

	balance, err := svc.AwardCoins(studentID, 25, "Great homework", "", 0)
	if err != nil {
		t.Fatalf("AwardCoins() error = %v", err)
	}
	if balance != 25 {
		t.Errorf("balance = %d, want 25", balance)
	}

	balance, err = svc.RemoveCoins(studentID, 40, "Penalty", "", 0)
	if err != nil {
		t.Fatalf("RemoveCoins() error = %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0 (clamped)", balance)
	}
}

func TestCoinService_ReasonIsSanitized(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewCoinRepository(db)
	svc := NewCoinService(repo, nil, newBus())
	studentID := seedStudent(t, db, 0)

	if _, err := svc.AwardCoins(studentID, 5, "<b>effort</b> bonus", "", 0); err != nil {
		t.Fatalf("AwardCoins() error = %v", err)
	}

	history, err := repo.GetTransactionHistory(studentID, 1)
	if err != nil {
		t.Fatalf("GetTransactionHistory() error = %v", err)
	}
	if history[0].Reason != "effort bonus" {
		t.Errorf("stored reason = %q, want sanitized", history[0].Reason)
	}
}

func TestCoinService_MirrorFallback(t *testing.T) {
	db := newTestDB(t)
	store, err := mirror.Open(filepath.Join(t.TempDir(), "mirror.json"))
	if err != nil {
		t.Fatalf("mirror.Open() error = %v", err)
	}
	defer store.Close()

	svc := NewCoinService(repositories.NewCoinRepository(db), store, newBus())
	studentID := seedStudent(t, db, 40)

	// Warm the mirror through a healthy read.
	if _, err := svc.GetBalance(studentID); err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}

	// Kill the remote store.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	sqlDB.Close()

	balance, err := svc.GetBalance(studentID)
	if err != nil {
		t.Fatalf("GetBalance() with remote down error = %v", err)
	}
	if balance != 40 {
		t.Errorf("mirror balance = %d, want 40", balance)
	}

	// Writes are journaled locally and reflected in fallback reads.
	balance, err = svc.AwardCoins(studentID, 10, "offline award", "", 0)
	if err != nil {
		t.Fatalf("AwardCoins() with remote down error = %v", err)
	}
	if balance != 50 {
		t.Errorf("fallback balance = %d, want 50", balance)
	}
	if store.PendingCount() != 1 {
		t.Errorf("pending journal = %d, want 1", store.PendingCount())
	}
}

func TestCoinService_NoMirrorSurfacesStorageError(t *testing.T) {
	db := newTestDB(t)
	svc := NewCoinService(repositories.NewCoinRepository(db), nil, newBus())
	studentID := seedStudent(t, db, 10)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	sqlDB.Close()

	_, err = svc.GetBalance(studentID)
	if !errors.HasCode(err, errors.ErrCodeStorage) {
		t.Errorf("GetBalance() error = %v, want STORAGE_ERROR", err)
	}
}
