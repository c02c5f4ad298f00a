// Package mirror is the local fallback store consulted when the remote
// database is unreachable. It keeps a JSON snapshot of the balances the
// engine cares about, warmed by write-through after every successful
// remote operation, and a journal of writes that failed remotely so
// they can be replayed once the database comes back.
package mirror

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrNotFound = errors.New("mirror: not found")

type CreditState struct {
	Credits     int64 `json:"credits"`
	UsedCredits int64 `json:"used_credits"`
	Unlimited   bool  `json:"unlimited"`
}

// PendingWrite is a balance mutation that could not reach the remote
// store. Deltas are replayed in order through Drain.
type PendingWrite struct {
	Table     string    `json:"table"`
	SubjectID uint      `json:"subject_id"`
	Delta     int64     `json:"delta"`
	UsedDelta int64     `json:"used_delta,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}

const (
	TableStudentCoins   = "student_coins"
	TableTeacherCredits = "teacher_credits"
)

type snapshot struct {
	Version        int                  `json:"version"`
	StudentCoins   map[uint]int64       `json:"student_coins"`
	TeacherCredits map[uint]CreditState `json:"teacher_credits"`
	Pending        []PendingWrite       `json:"pending"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type Store struct {
	mu   sync.RWMutex
	file *os.File
	snap *snapshot
	path string
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	s := &Store{file: f, path: path}
	if err := s.load(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.file.Close() }

func (s *Store) load() error {
	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		s.snap = &snapshot{
			Version:        1,
			StudentCoins:   map[uint]int64{},
			TeacherCredits: map[uint]CreditState{},
			UpdatedAt:      time.Now(),
		}
		return s.flushLocked()
	}
	dec := json.NewDecoder(s.file)
	var snap snapshot
	if err := dec.Decode(&snap); err != nil {
		return err
	}
	if snap.StudentCoins == nil {
		snap.StudentCoins = map[uint]int64{}
	}
	if snap.TeacherCredits == nil {
		snap.TeacherCredits = map[uint]CreditState{}
	}
	s.snap = &snap
	return nil
}

func (s *Store) flushLocked() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.snap.UpdatedAt = time.Now()
	enc := json.NewEncoder(s.file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.snap); err != nil {
		return err
	}
	// truncate in case new content is shorter
	pos, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	return s.file.Truncate(pos)
}

// PutStudentCoins records the authoritative balance after a successful
// remote write (write-through).
func (s *Store) PutStudentCoins(studentID uint, coins int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.StudentCoins[studentID] = coins
	return s.flushLocked()
}

func (s *Store) StudentCoins(studentID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coins, ok := s.snap.StudentCoins[studentID]
	if !ok {
		return 0, ErrNotFound
	}
	return coins, nil
}

func (s *Store) PutTeacherCredits(teacherID uint, state CreditState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.TeacherCredits[teacherID] = state
	return s.flushLocked()
}

func (s *Store) TeacherCredits(teacherID uint) (CreditState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.snap.TeacherCredits[teacherID]
	if !ok {
		return CreditState{}, ErrNotFound
	}
	return state, nil
}

// QueueCoinDelta journals a coin mutation that failed remotely and
// applies it to the local view so fallback reads stay coherent.
func (s *Store) QueueCoinDelta(studentID uint, delta int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap.StudentCoins[studentID] + delta
	if next < 0 {
		next = 0
	}
	s.snap.StudentCoins[studentID] = next
	s.snap.Pending = append(s.snap.Pending, PendingWrite{
		Table:     TableStudentCoins,
		SubjectID: studentID,
		Delta:     delta,
		Reason:    reason,
		QueuedAt:  time.Now(),
	})
	return s.flushLocked()
}

// QueueCreditSpend journals a credit spend that failed remotely.
func (s *Store) QueueCreditSpend(teacherID uint, amount int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.snap.TeacherCredits[teacherID]
	if state.Credits >= amount {
		state.Credits -= amount
		state.UsedCredits += amount
		s.snap.TeacherCredits[teacherID] = state
	}
	s.snap.Pending = append(s.snap.Pending, PendingWrite{
		Table:     TableTeacherCredits,
		SubjectID: teacherID,
		Delta:     -amount,
		UsedDelta: amount,
		Reason:    reason,
		QueuedAt:  time.Now(),
	})
	return s.flushLocked()
}

// PendingCount reports how many journaled writes await replay.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Pending)
}

// Drain replays the journal through apply in order. Replay stops at the
// first failure; already-applied entries are dropped, the rest stay
// queued for the next attempt.
func (s *Store) Drain(apply func(PendingWrite) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.snap.Pending) > 0 {
		w := s.snap.Pending[0]
		if err := apply(w); err != nil {
			if ferr := s.flushLocked(); ferr != nil {
				return ferr
			}
			return err
		}
		s.snap.Pending = s.snap.Pending[1:]
	}
	return s.flushLocked()
}
