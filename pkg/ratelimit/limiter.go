package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultLimit is the calls allowed per window. The provider allows
	// 200; 20 are held back as a safety margin.
	DefaultLimit = 180

	// DefaultWindow is the rolling window duration.
	DefaultWindow = time.Hour
)

// State is the persisted window state.
type State struct {
	Calls       int       `json:"calls"`
	WindowStart time.Time `json:"window_start"`
}

// StateStore persists the window state across invocations. Implementations
// need not be safe for concurrent use; the Tracker serializes access.
type StateStore interface {
	// Load returns the stored state. A zero State is valid and means no
	// calls have been recorded yet.
	Load() (State, error)
	Save(State) error
}

// LimitError reports an exhausted call budget.
type LimitError struct {
	CallsUsed int
	ResetAt   time.Time
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit reached (%d calls), resets at %s",
		e.CallsUsed, e.ResetAt.Format(time.RFC3339))
}

// Tracker enforces the rolling-window call budget against a StateStore.
type Tracker struct {
	store  StateStore
	limit  int
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// NewTracker creates a tracker over the given state store. Zero limit or
// window fall back to the defaults.
func NewTracker(store StateStore, limit int, window time.Duration) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// SetClock overrides the tracker's time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// current loads the state, treating an expired or unstarted window as a
// fresh one. The store is not written here; expiry is committed lazily on
// the next Record.
func (t *Tracker) current() (State, error) {
	state, err := t.store.Load()
	if err != nil {
		return State{}, fmt.Errorf("failed to load rate state: %w", err)
	}
	now := t.now()
	if state.WindowStart.IsZero() || now.Sub(state.WindowStart) > t.window {
		return State{Calls: 0, WindowStart: now}, nil
	}
	return state, nil
}

// Check fails with a *LimitError when the current window's budget is
// exhausted. It performs no I/O beyond reading the state store.
func (t *Tracker) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.current()
	if err != nil {
		return err
	}
	if state.Calls >= t.limit {
		return &LimitError{
			CallsUsed: state.Calls,
			ResetAt:   state.WindowStart.Add(t.window),
		}
	}
	return nil
}

// Record counts one physical HTTP request against the window and persists
// the new state. Call it once per request that reached the provider.
func (t *Tracker) Record() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.current()
	if err != nil {
		return err
	}
	state.Calls++
	if err := t.store.Save(state); err != nil {
		return fmt.Errorf("failed to save rate state: %w", err)
	}
	return nil
}

// Remaining returns how many calls are left in the current window.
func (t *Tracker) Remaining() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.current()
	if err != nil {
		return 0, err
	}
	remaining := t.limit - state.Calls
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// MemoryStateStore keeps the window state in memory. Used in tests and for
// runs that should not share a budget with previous invocations.
type MemoryStateStore struct {
	state State
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

// Load returns the held state.
func (m *MemoryStateStore) Load() (State, error) {
	return m.state, nil
}

// Save replaces the held state.
func (m *MemoryStateStore) Save(s State) error {
	m.state = s
	return nil
}
