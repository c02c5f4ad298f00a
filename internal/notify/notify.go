// Package notify turns domain events into best-effort messages for the
// acting student and the platform owners. Send failures are logged and
// dropped; the economy never waits on a notification.
package notify

import (
	"fmt"

	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// Notifier delivers a single message to a recipient. Implementations
// must not panic; errors are swallowed by the subscriber.
type Notifier interface {
	NotifyStudent(studentID uint, title, message string) error
	NotifyOwners(title, message string) error
}

// Subscriber adapts a Notifier to the event bus.
type Subscriber struct {
	notifier Notifier
}

func NewSubscriber(notifier Notifier) *Subscriber {
	return &Subscriber{notifier: notifier}
}

// Register attaches the subscriber to the bus.
func (s *Subscriber) Register(bus *events.Bus) {
	bus.Subscribe(s.Handle)
}

func (s *Subscriber) Handle(e events.Event) {
	title, studentMsg, ownerMsg := render(e)
	if title == "" {
		return
	}

	if studentMsg != "" && e.StudentID != 0 {
		if err := s.notifier.NotifyStudent(e.StudentID, title, studentMsg); err != nil {
			logger.Warn("student notification failed",
				"event_type", e.Type,
				"student_id", e.StudentID,
				"error", err,
			)
		}
	}
	if ownerMsg != "" {
		if err := s.notifier.NotifyOwners(title, ownerMsg); err != nil {
			logger.Warn("owner notification failed",
				"event_type", e.Type,
				"error", err,
			)
		}
	}
}

func render(e events.Event) (title, studentMsg, ownerMsg string) {
	switch e.Type {
	case events.TypeCoinsAwarded:
		title = "Coins awarded"
		studentMsg = fmt.Sprintf("You received %d coins: %s. New balance: %d.", e.Amount, e.Reason, e.NewBalance)
		ownerMsg = fmt.Sprintf("Student %d received %d coins (%s).", e.StudentID, e.Amount, e.Reason)
	case events.TypeCoinsRemoved:
		title = "Coins removed"
		studentMsg = fmt.Sprintf("%d coins were removed: %s. New balance: %d.", -e.Amount, e.Reason, e.NewBalance)
		ownerMsg = fmt.Sprintf("Student %d lost %d coins (%s).", e.StudentID, -e.Amount, e.Reason)
	case events.TypePokemonGranted:
		title = "New Pokemon!"
		studentMsg = fmt.Sprintf("%s joined your collection!", e.PokemonName)
		ownerMsg = fmt.Sprintf("Student %d was granted %s (%s).", e.StudentID, e.PokemonName, e.Reason)
	case events.TypePokemonRemoved:
		title = "Pokemon removed"
		studentMsg = fmt.Sprintf("%s left your collection.", e.PokemonName)
	case events.TypePurchaseDone:
		title = "Purchase complete"
		studentMsg = fmt.Sprintf("You bought %s for %d coins. New balance: %d.", e.PokemonName, -e.Amount, e.NewBalance)
		ownerMsg = fmt.Sprintf("Student %d bought %s for %d coins.", e.StudentID, e.PokemonName, -e.Amount)
	case events.TypeMysteryRolled:
		title = "Mystery Ball"
		if e.PokemonName != "" {
			studentMsg = fmt.Sprintf("The Mystery Ball revealed %s!", e.PokemonName)
		} else {
			studentMsg = fmt.Sprintf("The Mystery Ball paid out %d coins!", e.Amount)
		}
	case events.TypeReconciliation:
		title = "Reconciliation required"
		ownerMsg = fmt.Sprintf("Purchase by student %d debited %d coins but the grant and refund both failed (pokemon %d). Manual intervention needed.",
			e.StudentID, -e.Amount, e.PokemonID)
	}
	return title, studentMsg, ownerMsg
}

// LogNotifier is the fallback sink used when no Telegram bot is
// configured: everything lands in the structured log.
type LogNotifier struct{}

func (LogNotifier) NotifyStudent(studentID uint, title, message string) error {
	logger.Info("notification", "recipient_student", studentID, "title", title, "message", message)
	return nil
}

func (LogNotifier) NotifyOwners(title, message string) error {
	logger.Info("notification", "recipient", "owners", "title", title, "message", message)
	return nil
}
