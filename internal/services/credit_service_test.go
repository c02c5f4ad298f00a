package services

import (
	"path/filepath"
	"testing"

	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"gorm.io/gorm"
)

func newCreditService(t *testing.T) (*CreditService, *repositories.CreditRepository) {
	t.Helper()
	db := newTestDB(t)
	repo := repositories.NewCreditRepository(db)
	return NewCreditService(repo, testConfig(), nil, newBus()), repo
}

func TestCreditService_HasCredits_LazyStartingGrant(t *testing.T) {
	svc, _ := newCreditService(t)

	// First contact creates the row with the starting grant of 30.
	ok, err := svc.HasCredits(1, 30)
	if err != nil {
		t.Fatalf("HasCredits() error = %v", err)
	}
	if !ok {
		t.Error("HasCredits(30) on fresh teacher = false, want true")
	}

	ok, err = svc.HasCredits(1, 31)
	if err != nil {
		t.Fatalf("HasCredits() error = %v", err)
	}
	if ok {
		t.Error("HasCredits(31) = true, want false")
	}
}

func TestCreditService_ConsumeCredits_Insufficient(t *testing.T) {
	svc, repo := newCreditService(t)

	// Teacher has 3 credits, action requires 5.
	credit, err := repo.GetOrCreate(1, 3)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if credit.Credits != 3 {
		t.Fatalf("fixture credits = %d, want 3", credit.Credits)
	}

	ok, err := svc.ConsumeCredits(1, 5, "approve homework", "", 0)
	if err != nil {
		t.Fatalf("ConsumeCredits() error = %v", err)
	}
	if ok {
		t.Error("ConsumeCredits() = true, want false")
	}

	credit, err = svc.GetBalance(1)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if credit.Credits != 3 || credit.UsedCredits != 0 {
		t.Errorf("balance mutated on failed consume: %+v", credit)
	}
}

func TestCreditService_UnlimitedBypass(t *testing.T) {
	svc, repo := newCreditService(t)

	credit, err := repo.GetOrCreate(7, 0)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	credit.Unlimited = true
	if err := svcDB(t, svc, credit); err != nil {
		t.Fatalf("failed to set unlimited: %v", err)
	}

	ok, err := svc.HasCredits(7, 1_000_000)
	if err != nil || !ok {
		t.Errorf("HasCredits() unlimited = %v, %v; want true, nil", ok, err)
	}

	ok, err = svc.ConsumeCredits(7, 500, "big award", "", 0)
	if err != nil || !ok {
		t.Fatalf("ConsumeCredits() unlimited = %v, %v; want true, nil", ok, err)
	}

	credit, err = svc.GetBalance(7)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if credit.Credits != 0 || credit.UsedCredits != 0 {
		t.Errorf("unlimited consume mutated balance: %+v", credit)
	}
}

func TestCreditService_CostPolicy(t *testing.T) {
	svc, _ := newCreditService(t)

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{name: "create student", got: svc.CreateStudentCost(), want: 5},
		{name: "post homework clamps low", got: svc.PostHomeworkCost(0), want: 1},
		{name: "post homework in band", got: svc.PostHomeworkCost(3), want: 3},
		{name: "post homework clamps high", got: svc.PostHomeworkCost(9), want: 5},
		{name: "approve homework rounds up", got: svc.ApproveHomeworkCost(11), want: 2},
		{name: "approve homework minimum one", got: svc.ApproveHomeworkCost(1), want: 1},
		{name: "approve homework exact multiple", got: svc.ApproveHomeworkCost(30), want: 3},
		{name: "remove common pokemon", got: svc.RemovePokemonCost(models.RarityCommon), want: 2},
		{name: "remove uncommon pokemon", got: svc.RemovePokemonCost(models.RarityUncommon), want: 2},
		{name: "remove rare pokemon", got: svc.RemovePokemonCost(models.RarityRare), want: 3},
		{name: "remove legendary pokemon", got: svc.RemovePokemonCost(models.RarityLegendary), want: 3},
		{name: "manual award proportional", got: svc.ManualAwardCost(25), want: 3},
		{name: "manual award minimum one", got: svc.ManualAwardCost(2), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("cost = %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func newMirroredCreditService(t *testing.T) (*CreditService, *gorm.DB, *mirror.Store) {
	t.Helper()
	db := newTestDB(t)
	store, err := mirror.Open(filepath.Join(t.TempDir(), "mirror.json"))
	if err != nil {
		t.Fatalf("mirror.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewCreditService(repositories.NewCreditRepository(db), testConfig(), store, newBus()), db, store
}

func TestCreditService_ConsumeCredits_MirrorFallback(t *testing.T) {
	svc, db, store := newMirroredCreditService(t)

	// Warm the mirror through a healthy check (starting grant of 30).
	if _, err := svc.HasCredits(1, 1); err != nil {
		t.Fatalf("HasCredits() error = %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	sqlDB.Close()

	ok, err := svc.ConsumeCredits(1, 4, "offline award", "", 0)
	if err != nil {
		t.Fatalf("ConsumeCredits() with remote down error = %v", err)
	}
	if !ok {
		t.Fatal("ConsumeCredits() = false, want true from mirror")
	}
	if store.PendingCount() != 1 {
		t.Errorf("pending journal = %d, want 1", store.PendingCount())
	}

	// The spend is reflected in fallback checks: 26 left of 30.
	ok, err = svc.HasCredits(1, 26)
	if err != nil || !ok {
		t.Errorf("HasCredits(26) after offline spend = %v, %v; want true, nil", ok, err)
	}
	ok, err = svc.HasCredits(1, 27)
	if err != nil || ok {
		t.Errorf("HasCredits(27) after offline spend = %v, %v; want false, nil", ok, err)
	}
}

func TestCreditService_ConsumeCredits_MirrorRejectsUnaffordable(t *testing.T) {
	svc, db, store := newMirroredCreditService(t)

	if _, err := svc.HasCredits(1, 1); err != nil {
		t.Fatalf("HasCredits() error = %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	sqlDB.Close()

	ok, err := svc.ConsumeCredits(1, 31, "oversized offline spend", "", 0)
	if err != nil {
		t.Fatalf("ConsumeCredits() error = %v", err)
	}
	if ok {
		t.Error("ConsumeCredits() = true, want false for unaffordable spend")
	}
	if store.PendingCount() != 0 {
		t.Errorf("pending journal = %d, want 0", store.PendingCount())
	}
}

func TestCreditService_ConsumeCredits_ColdMirrorSurfacesStorageError(t *testing.T) {
	svc, db, _ := newMirroredCreditService(t)

	// Teacher 9 has never been mirrored; the failure must surface.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	sqlDB.Close()

	_, err = svc.ConsumeCredits(9, 1, "unknown teacher", "", 0)
	if !errors.HasCode(err, errors.ErrCodeStorage) {
		t.Errorf("ConsumeCredits() error = %v, want STORAGE_ERROR", err)
	}
}

func TestCreditService_AddCredits_RequiresTeacherID(t *testing.T) {
	db := newTestDB(t)
	svc := NewCreditService(repositories.NewCreditRepository(db), testConfig(), nil, newBus())

	if _, err := svc.AddCredits(0, 10, "typo grant"); !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("AddCredits(0) error = %v, want VALIDATION_ERROR", err)
	}

	// No row was conjured for teacher 0.
	var count int64
	if err := db.Model(&models.TeacherCredit{}).Count(&count).Error; err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 0 {
		t.Errorf("credit rows = %d, want 0", count)
	}
}

// svcDB saves a credit row mutation directly, bypassing the ledger, to
// arrange test fixtures.
func svcDB(t *testing.T, svc *CreditService, credit *models.TeacherCredit) error {
	t.Helper()
	return svc.credits.Save(credit)
}
