// Package events decouples economic operations from their side
// effects. Services publish a domain event after a balance or
// collection change; subscribers (notifications, owner audit) run on
// their own goroutines and their failures cannot reach the ledger.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// Event types
const (
	TypeCoinsAwarded    = "coins.awarded"
	TypeCoinsRemoved    = "coins.removed"
	TypeCreditsConsumed = "credits.consumed"
	TypePokemonGranted  = "pokemon.granted"
	TypePokemonRemoved  = "pokemon.removed"
	TypePurchaseDone    = "purchase.completed"
	TypePurchaseFailed  = "purchase.failed"
	TypeMysteryRolled   = "mystery.rolled"
	TypeReconciliation  = "reconciliation.required"
)

type Event struct {
	ID         string
	Type       string
	OccurredAt time.Time

	StudentID uint
	TeacherID uint

	Amount     int64
	NewBalance int64
	Reason     string

	PokemonID   uint
	PokemonName string
	EntryID     uint
}

type Handler func(Event)

type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	wg       sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish dispatches the event to every subscriber asynchronously.
// A panicking subscriber is logged and contained.
func (b *Bus) Publish(e Event) {
	e.ID = uuid.NewString()
	e.OccurredAt = time.Now()

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event subscriber panicked",
						"event_id", e.ID,
						"event_type", e.Type,
						"panic", r,
					)
				}
			}()
			h(e)
		}(h)
	}
}

// Flush waits for in-flight subscribers, for shutdown and tests.
func (b *Bus) Flush() {
	b.wg.Wait()
}
