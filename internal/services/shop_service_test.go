package services

import (
	"path/filepath"
	"testing"

	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"gorm.io/gorm"
)

func newShopFixture(t *testing.T) (*ShopService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	bus := newBus()
	pokemonRepo := repositories.NewPokemonRepository(db)
	coinRepo := repositories.NewCoinRepository(db)
	collection := NewCollectionService(pokemonRepo, bus)
	return NewShopService(pokemonRepo, coinRepo, collection, nil, bus), db
}

func TestShopService_PurchaseSucceeds(t *testing.T) {
	shop, db := newShopFixture(t)
	studentID := seedStudent(t, db, 20)
	pokemonID := seedPokemon(t, db, "Pikachu", models.RarityUncommon, 15)

	result, err := shop.PurchasePokemon(studentID, pokemonID)
	if err != nil {
		t.Fatalf("PurchasePokemon() error = %v", err)
	}
	if result.NewBalance != 5 {
		t.Errorf("new balance = %d, want 5", result.NewBalance)
	}
	if result.EntryID == 0 {
		t.Error("no collection entry id returned")
	}

	var entry models.StudentPokemon
	if err := db.First(&entry, result.EntryID).Error; err != nil {
		t.Fatalf("collection entry missing: %v", err)
	}
	if entry.Source != models.SourceShopPurchase {
		t.Errorf("entry source = %s, want shop_purchase", entry.Source)
	}
	if got := studentCoins(t, db, studentID); got != 5 {
		t.Errorf("stored balance = %d, want 5", got)
	}
}

func TestShopService_InsufficientFunds(t *testing.T) {
	shop, db := newShopFixture(t)
	studentID := seedStudent(t, db, 10)
	pokemonID := seedPokemon(t, db, "Pikachu", models.RarityUncommon, 15)

	_, err := shop.PurchasePokemon(studentID, pokemonID)
	if !errors.HasCode(err, errors.ErrCodeInsufficientFunds) {
		t.Fatalf("PurchasePokemon() error = %v, want INSUFFICIENT_FUNDS", err)
	}

	// No writes at all: balance untouched, collection empty, no ledger rows.
	if got := studentCoins(t, db, studentID); got != 10 {
		t.Errorf("balance = %d, want 10", got)
	}
	if got := collectionCount(t, db, studentID); got != 0 {
		t.Errorf("collection entries = %d, want 0", got)
	}
	var txCount int64
	db.Model(&models.CoinTransaction{}).Count(&txCount)
	if txCount != 0 {
		t.Errorf("ledger rows = %d, want 0", txCount)
	}
}

func TestShopService_UnknownPokemon(t *testing.T) {
	shop, db := newShopFixture(t)
	studentID := seedStudent(t, db, 100)

	_, err := shop.PurchasePokemon(studentID, 999)
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("PurchasePokemon() error = %v, want NOT_FOUND", err)
	}
	if got := studentCoins(t, db, studentID); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}
}

// failingGranter simulates the grant step dying after the debit.
type failingGranter struct{}

func (failingGranter) AwardPokemon(studentID, pokemonID uint, source string) (*models.StudentPokemon, error) {
	return nil, errors.New(errors.ErrCodeStorage, "collection insert failed")
}

func TestShopService_RefundOnFailedGrant(t *testing.T) {
	db := newTestDB(t)
	bus := newBus()
	pokemonRepo := repositories.NewPokemonRepository(db)
	coinRepo := repositories.NewCoinRepository(db)
	shop := NewShopService(pokemonRepo, coinRepo, failingGranter{}, nil, bus)

	studentID := seedStudent(t, db, 20)
	pokemonID := seedPokemon(t, db, "Pikachu", models.RarityUncommon, 15)

	_, err := shop.PurchasePokemon(studentID, pokemonID)
	if !errors.HasCode(err, errors.ErrCodePaymentFailed) {
		t.Fatalf("PurchasePokemon() error = %v, want PAYMENT_FAILED", err)
	}

	// Refund restored the original balance; nothing was granted.
	if got := studentCoins(t, db, studentID); got != 20 {
		t.Errorf("balance = %d, want 20 (refunded)", got)
	}
	if got := collectionCount(t, db, studentID); got != 0 {
		t.Errorf("collection entries = %d, want 0", got)
	}

	// The ledger shows both legs: the debit and the refund.
	var txs []models.CoinTransaction
	db.Where("student_id = ?", studentID).Order("id").Find(&txs)
	if len(txs) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(txs))
	}
	if txs[0].Amount != -15 || txs[0].TransactionType != models.TxTypeShopPurchase {
		t.Errorf("debit row = %+v", txs[0])
	}
	if txs[1].Amount != 15 || txs[1].TransactionType != models.TxTypePurchaseRefund {
		t.Errorf("refund row = %+v", txs[1])
	}
}

// brokenLedger debits fine but cannot refund, forcing the
// reconciliation path.
type brokenLedger struct {
	real *repositories.CoinRepository
}

func (b brokenLedger) GetBalance(studentID uint) (int64, error) {
	return b.real.GetBalance(studentID)
}

func (b brokenLedger) DebitStrict(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error) {
	return b.real.DebitStrict(studentID, amount, txType, reason, relatedType, relatedID)
}

func (b brokenLedger) AwardCoins(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error) {
	return 0, errors.New(errors.ErrCodeStorage, "refund write failed")
}

func TestShopService_ReconciliationWhenRefundFails(t *testing.T) {
	db := newTestDB(t)
	bus := newBus()
	pokemonRepo := repositories.NewPokemonRepository(db)
	ledger := brokenLedger{real: repositories.NewCoinRepository(db)}
	shop := NewShopService(pokemonRepo, ledger, failingGranter{}, nil, bus)

	studentID := seedStudent(t, db, 20)
	pokemonID := seedPokemon(t, db, "Pikachu", models.RarityUncommon, 15)

	reconciled := make(chan events.Event, 1)
	bus.Subscribe(func(e events.Event) {
		if e.Type == events.TypeReconciliation {
			reconciled <- e
		}
	})

	_, err := shop.PurchasePokemon(studentID, pokemonID)
	if !errors.HasCode(err, errors.ErrCodeReconciliation) {
		t.Fatalf("PurchasePokemon() error = %v, want RECONCILIATION_REQUIRED", err)
	}

	// The debit stands (15 gone) and the failure was surfaced, not
	// silently dropped.
	if got := studentCoins(t, db, studentID); got != 5 {
		t.Errorf("balance = %d, want 5 (debit stands, refund failed)", got)
	}

	bus.Flush()
	select {
	case e := <-reconciled:
		if e.StudentID != studentID || e.PokemonID != pokemonID {
			t.Errorf("reconciliation event = %+v", e)
		}
	default:
		t.Error("no reconciliation event published")
	}
}

func TestShopService_PurchaseWritesThroughMirror(t *testing.T) {
	db := newTestDB(t)
	bus := newBus()
	pokemonRepo := repositories.NewPokemonRepository(db)
	coinRepo := repositories.NewCoinRepository(db)
	collection := NewCollectionService(pokemonRepo, bus)

	store, err := mirror.Open(filepath.Join(t.TempDir(), "mirror.json"))
	if err != nil {
		t.Fatalf("mirror.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	shop := NewShopService(pokemonRepo, coinRepo, collection, store, bus)
	studentID := seedStudent(t, db, 20)
	pokemonID := seedPokemon(t, db, "Pikachu", models.RarityUncommon, 15)

	result, err := shop.PurchasePokemon(studentID, pokemonID)
	if err != nil {
		t.Fatalf("PurchasePokemon() error = %v", err)
	}

	local, err := store.StudentCoins(studentID)
	if err != nil {
		t.Fatalf("StudentCoins() error = %v", err)
	}
	if local != result.NewBalance {
		t.Errorf("mirrored balance = %d, want %d", local, result.NewBalance)
	}
}

func TestShopService_RefundWritesThroughMirror(t *testing.T) {
	db := newTestDB(t)
	bus := newBus()
	pokemonRepo := repositories.NewPokemonRepository(db)
	coinRepo := repositories.NewCoinRepository(db)

	store, err := mirror.Open(filepath.Join(t.TempDir(), "mirror.json"))
	if err != nil {
		t.Fatalf("mirror.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	shop := NewShopService(pokemonRepo, coinRepo, failingGranter{}, store, bus)
	studentID := seedStudent(t, db, 20)
	pokemonID := seedPokemon(t, db, "Pikachu", models.RarityUncommon, 15)

	_, err = shop.PurchasePokemon(studentID, pokemonID)
	if !errors.HasCode(err, errors.ErrCodePaymentFailed) {
		t.Fatalf("PurchasePokemon() error = %v, want PAYMENT_FAILED", err)
	}

	// The mirror tracks the refunded balance, not the debited one.
	local, err := store.StudentCoins(studentID)
	if err != nil {
		t.Fatalf("StudentCoins() error = %v", err)
	}
	if local != 20 {
		t.Errorf("mirrored balance = %d, want 20", local)
	}
}
