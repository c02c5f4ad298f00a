package services

import (
	"fmt"

	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// coinLedger is the slice of the coin repository the shop needs.
type coinLedger interface {
	GetBalance(studentID uint) (int64, error)
	DebitStrict(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error)
	AwardCoins(studentID uint, amount int64, txType, reason, relatedType string, relatedID uint) (int64, error)
}

// pokemonGranter is the slice of the collection service the shop needs.
type pokemonGranter interface {
	AwardPokemon(studentID, pokemonID uint, source string) (*models.StudentPokemon, error)
}

// ShopService orchestrates a purchase across the coin ledger and the
// collection. There is no cross-table transaction underneath: the
// sequence is debit, grant, and a compensating refund when the grant
// fails. Debit-before-grant means the bad failure mode is "paid but
// not delivered", which the refund closes; grant-before-debit would
// leave "delivered but not paid", which nothing could claw back.
type ShopService struct {
	catalog *repositories.PokemonRepository
	coins   coinLedger
	grants  pokemonGranter
	mirror  *mirror.Store
	bus     *events.Bus
}

func NewShopService(catalog *repositories.PokemonRepository, coins coinLedger, grants pokemonGranter, m *mirror.Store, bus *events.Bus) *ShopService {
	return &ShopService{catalog: catalog, coins: coins, grants: grants, mirror: m, bus: bus}
}

type PurchaseResult struct {
	EntryID    uint  `json:"entry_id"`
	PokemonID  uint  `json:"pokemon_id"`
	Price      int64 `json:"price"`
	NewBalance int64 `json:"new_balance"`
}

// PurchasePokemon buys one instance of a catalog Pokemon with the
// student's coins.
func (s *ShopService) PurchasePokemon(studentID, pokemonID uint) (*PurchaseResult, error) {
	if studentID == 0 || pokemonID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "student id and pokemon id are required")
	}

	pokemon, err := s.catalog.GetPokemonByID(pokemonID)
	if err != nil {
		return nil, err
	}

	balance, err := s.coins.GetBalance(studentID)
	if err != nil {
		return nil, err
	}
	if balance < pokemon.Price {
		return nil, errors.New(errors.ErrCodeInsufficientFunds,
			fmt.Sprintf("You need %d coins to buy %s, you have %d", pokemon.Price, pokemon.Name, balance))
	}

	reason := fmt.Sprintf("Shop purchase: %s", pokemon.Name)
	newBalance, err := s.coins.DebitStrict(studentID, pokemon.Price, models.TxTypeShopPurchase, reason, models.EntityTypePokemon, pokemonID)
	if err != nil {
		// A concurrent debit may have drained the balance between the
		// precheck and here; either way nothing was charged.
		return nil, errors.Wrap(err, errors.ErrCodePaymentFailed, "payment could not be completed")
	}
	s.writeThrough(studentID, newBalance)

	entry, err := s.grants.AwardPokemon(studentID, pokemonID, models.SourceShopPurchase)
	if err != nil {
		return nil, s.refund(studentID, pokemon, err)
	}

	s.bus.Publish(events.Event{
		Type:        events.TypePurchaseDone,
		StudentID:   studentID,
		PokemonID:   pokemonID,
		PokemonName: pokemon.Name,
		EntryID:     entry.ID,
		Amount:      -pokemon.Price,
		NewBalance:  newBalance,
	})
	return &PurchaseResult{
		EntryID:    entry.ID,
		PokemonID:  pokemonID,
		Price:      pokemon.Price,
		NewBalance: newBalance,
	}, nil
}

// refund compensates a debited-but-ungranted purchase. A refund that
// itself fails leaves the student charged for nothing; that state is
// reported loudly for manual reconciliation, never dropped.
func (s *ShopService) refund(studentID uint, pokemon *models.Pokemon, grantErr error) error {
	reason := fmt.Sprintf("Refund for failed %s purchase", pokemon.Name)
	refunded, err := s.coins.AwardCoins(studentID, pokemon.Price, models.TxTypePurchaseRefund, reason, models.EntityTypePokemon, pokemon.ID)
	if err != nil {
		logger.Error("purchase refund failed, manual reconciliation required",
			"operation", "purchase_pokemon",
			"student_id", studentID,
			"pokemon_id", pokemon.ID,
			"price", pokemon.Price,
			"grant_error", grantErr,
			"refund_error", err,
		)
		s.bus.Publish(events.Event{
			Type:      events.TypeReconciliation,
			StudentID: studentID,
			PokemonID: pokemon.ID,
			Amount:    -pokemon.Price,
		})
		return errors.Wrap(err, errors.ErrCodeReconciliation,
			"purchase may not have completed, contact support")
	}
	s.writeThrough(studentID, refunded)

	logger.Warn("purchase grant failed, coins refunded",
		"student_id", studentID,
		"pokemon_id", pokemon.ID,
		"price", pokemon.Price,
		"grant_error", grantErr,
	)
	s.bus.Publish(events.Event{
		Type:        events.TypePurchaseFailed,
		StudentID:   studentID,
		PokemonID:   pokemon.ID,
		PokemonName: pokemon.Name,
		Amount:      -pokemon.Price,
	})
	return errors.Wrap(grantErr, errors.ErrCodePaymentFailed,
		fmt.Sprintf("could not deliver %s, your coins were refunded", pokemon.Name))
}

// writeThrough keeps the local mirror current after a successful
// remote mutation so a later outage answers with a fresh balance.
func (s *ShopService) writeThrough(studentID uint, balance int64) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.PutStudentCoins(studentID, balance); err != nil {
		logger.Warn("mirror write-through failed", "student_id", studentID, "error", err)
	}
}
