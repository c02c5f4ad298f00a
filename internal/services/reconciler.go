package services

import (
	"context"
	"time"

	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// Reconciler replays balance mutations that were journaled to the local
// mirror while the database was unreachable. Replayed coin rows land in
// the ledger as mirror_replay so they stay distinguishable from live
// activity.
type Reconciler struct {
	coins   *repositories.CoinRepository
	credits *repositories.CreditRepository
	mirror  *mirror.Store
}

func NewReconciler(coins *repositories.CoinRepository, credits *repositories.CreditRepository, m *mirror.Store) *Reconciler {
	return &Reconciler{coins: coins, credits: credits, mirror: m}
}

// ReplayPending pushes the journal into the database. It stops at the
// first storage failure so the remaining entries stay queued; entries
// that fail for business reasons (a spend the teacher can no longer
// afford) are logged and dropped rather than wedging the queue.
func (r *Reconciler) ReplayPending() error {
	if r.mirror == nil || r.mirror.PendingCount() == 0 {
		return nil
	}
	logger.Info("replaying mirrored writes", "pending", r.mirror.PendingCount())

	return r.mirror.Drain(func(w mirror.PendingWrite) error {
		err := r.apply(w)
		if err == nil {
			return nil
		}
		if errors.HasCode(err, errors.ErrCodeStorage) {
			return err
		}
		logger.Warn("dropping unreplayable mirrored write",
			"table", w.Table,
			"subject_id", w.SubjectID,
			"delta", w.Delta,
			"error", err,
		)
		return nil
	})
}

func (r *Reconciler) apply(w mirror.PendingWrite) error {
	switch w.Table {
	case mirror.TableStudentCoins:
		if w.Delta >= 0 {
			_, err := r.coins.AwardCoins(w.SubjectID, w.Delta, models.TxTypeMirrorReplay, w.Reason, "", 0)
			return err
		}
		_, err := r.coins.RemoveCoins(w.SubjectID, -w.Delta, models.TxTypeMirrorReplay, w.Reason, "", 0)
		return err
	case mirror.TableTeacherCredits:
		if w.Delta >= 0 {
			_, err := r.credits.AddCredits(w.SubjectID, w.Delta, models.TxTypeAdminGrant, w.Reason)
			return err
		}
		ok, err := r.credits.Consume(w.SubjectID, -w.Delta, w.Reason, "", 0)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrCodeInsufficientFunds, "mirrored spend exceeds current credits")
		}
		return nil
	default:
		return errors.New(errors.ErrCodeValidation, "unknown mirror table")
	}
}

// Run replays on an interval until ctx is cancelled. Failures are
// logged and retried on the next tick.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ReplayPending(); err != nil {
				logger.Warn("mirror replay incomplete", "error", err)
			}
		}
	}
}
