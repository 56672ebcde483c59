package quest

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCorruptSnapshot is wrapped by backends when a stored snapshot cannot be
// decoded. The store treats it like a fresh ledger.
var ErrCorruptSnapshot = errors.New("quest: corrupt snapshot")

// Completion reports the outcome of Store.Complete.
type Completion struct {
	Quest   Quest
	Found   bool // false when the id is outside the fixed quest set
	Awarded bool // true only on the call that flipped the quest to completed
}

// Store is the quest ledger of a single owner. Mutations are serialized
// within the process; concurrent writers in other processes are last
// writer wins.
type Store struct {
	mu      sync.Mutex
	locks   *ownerLocks
	backend Backend
	pub     Publisher
	owner   string
}

// NewStore binds a ledger to owner. A nil backend behaves like Unavailable
// and a nil publisher drops events.
func NewStore(backend Backend, pub Publisher, owner string) *Store {
	return &Store{backend: backend, pub: pub, owner: owner}
}

func (s *Store) Owner() string { return s.owner }

func (s *Store) lock() (unlock func()) {
	if s.locks != nil {
		return s.locks.lock(s.owner)
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Quests returns the ledger, persisting the defaults on first use.
func (s *Store) Quests(ctx context.Context) ([]Quest, error) {
	unlock := s.lock()
	defer unlock()
	quests, _, err := s.load(ctx)
	return quests, err
}

// TotalXP is recomputed from the ledger on every call.
func (s *Store) TotalXP(ctx context.Context) (int, error) {
	quests, err := s.Quests(ctx)
	if err != nil {
		return 0, err
	}
	return SumXP(quests), nil
}

// Complete marks id completed. Repeated calls, unknown ids and unavailable
// persistence are no-ops; the completion event is only published after the
// updated ledger has been saved.
func (s *Store) Complete(ctx context.Context, id ID) (Completion, error) {
	i, ok := definitionIndex(id)
	if !ok {
		return Completion{}, nil
	}

	unlock := s.lock()
	quests, persisted, err := s.load(ctx)
	if err != nil {
		unlock()
		return Completion{}, err
	}
	res := Completion{Quest: quests[i], Found: true}
	if !persisted || quests[i].Completed {
		unlock()
		return res, nil
	}

	quests[i].Completed = true
	if err := s.backend.Save(ctx, s.owner, quests); err != nil {
		unlock()
		if errors.Is(err, ErrUnavailable) {
			return res, nil
		}
		return Completion{}, fmt.Errorf("save quests: %w", err)
	}
	unlock()

	res.Quest = quests[i]
	res.Awarded = true
	s.publish(ctx, Event{Kind: EventCompleted, Owner: s.owner, QuestID: id, XP: quests[i].XP})
	return res, nil
}

// Reset restores the default ledger and announces it.
func (s *Store) Reset(ctx context.Context) error {
	unlock := s.lock()
	if s.backend == nil {
		unlock()
		return nil
	}
	if err := s.backend.Save(ctx, s.owner, Defaults()); err != nil {
		unlock()
		if errors.Is(err, ErrUnavailable) {
			return nil
		}
		return fmt.Errorf("reset quests: %w", err)
	}
	unlock()

	s.publish(ctx, Event{Kind: EventReset, Owner: s.owner})
	return nil
}

// Summary bundles the ledger with derived progress.
type Summary struct {
	Owner     string   `json:"owner"`
	Quests    []Quest  `json:"quests"`
	TotalXP   int      `json:"totalXP"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
	Level     Progress `json:"level"`
}

func (s *Store) Summary(ctx context.Context) (Summary, error) {
	quests, err := s.Quests(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(s.owner, quests), nil
}

func Summarize(owner string, quests []Quest) Summary {
	done := 0
	for _, q := range quests {
		if q.Completed {
			done++
		}
	}
	total := SumXP(quests)
	return Summary{
		Owner:     owner,
		Quests:    quests,
		TotalXP:   total,
		Completed: done,
		Total:     len(quests),
		Level:     LevelFor(total),
	}
}

// load reads the snapshot. persisted is false when the backend is missing or
// unavailable, in which case the defaults are returned without error.
func (s *Store) load(ctx context.Context) (quests []Quest, persisted bool, err error) {
	if s.backend == nil {
		return Defaults(), false, nil
	}

	stored, err := s.backend.Load(ctx, s.owner)
	switch {
	case errors.Is(err, ErrUnavailable):
		return Defaults(), false, nil
	case errors.Is(err, ErrCorruptSnapshot):
		return Defaults(), true, nil
	case err != nil:
		return nil, false, fmt.Errorf("load quests: %w", err)
	}

	if stored != nil {
		return normalize(stored), true, nil
	}

	defaults := Defaults()
	if err := s.backend.Save(ctx, s.owner, defaults); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return defaults, false, nil
		}
		return nil, false, fmt.Errorf("init quests: %w", err)
	}
	return defaults, true, nil
}

func (s *Store) publish(ctx context.Context, ev Event) {
	if s.pub != nil {
		s.pub.Publish(ctx, ev)
	}
}

// Ledgers builds a Store per call. Stores for the same owner share a lock
// that only lives while some call holds or waits for it.
type Ledgers struct {
	backend Backend
	pub     Publisher
	locks   *ownerLocks
}

func NewLedgers(backend Backend, pub Publisher) *Ledgers {
	return &Ledgers{backend: backend, pub: pub, locks: newOwnerLocks()}
}

func (l *Ledgers) For(owner string) *Store {
	s := NewStore(l.backend, l.pub, owner)
	s.locks = l.locks
	return s
}

// Active reports how many owners currently hold or wait for a lock.
func (l *Ledgers) Active() int {
	return l.locks.len()
}

type ownerLock struct {
	sync.Mutex
	refs int
}

type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// lock blocks until owner is free. The entry is dropped once the last
// holder or waiter releases it.
func (o *ownerLocks) lock(owner string) (unlock func()) {
	o.mu.Lock()
	l, ok := o.locks[owner]
	if !ok {
		l = &ownerLock{}
		o.locks[owner] = l
	}
	l.refs++
	o.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, owner)
		}
		o.mu.Unlock()
	}
}

func (o *ownerLocks) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.locks)
}
