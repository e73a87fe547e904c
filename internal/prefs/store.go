// Package prefs keeps the active theme preset for the signed-in user and
// persists it per user through an injected Storage.
//
// The in-memory value is authoritative for rendering: SetPreset updates
// it immediately and persistence happens afterwards on a single writer
// goroutine. Callers never wait on storage writes; writes for the same user
// coalesce to the latest preset, and when the queue is full they are
// dropped with a warning. Storage failures are logged and never surface to
// callers.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-marketplace-core/internal/theme"
)

var (
	ErrClosed     = errors.New("preference store closed")
	errQueueFull  = errors.New("preference write queue full")
	errBadAggJSON = errors.New("stored user themes are not valid json")
)

type LoadState int

const (
	Uninitialized LoadState = iota
	Loading
	Ready
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Change is delivered to subscribers whenever the active preset is set
// or re-resolved. UserID is empty when nobody is signed in.
type Change struct {
	UserID string       `json:"user_id,omitempty"`
	Preset theme.Preset `json:"preset"`
}

type Option func(*Store)

// WithDefaultPreset overrides theme.PresetDefault. Unregistered presets
// are ignored.
func WithDefaultPreset(p theme.Preset) Option {
	return func(s *Store) {
		if _, ok := theme.Lookup(p); ok {
			s.def = p
		}
	}
}

// WithQueueSize sets how many writes may wait for the writer. Writes past
// that are dropped, never blocking the caller.
func WithQueueSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

type job func(ctx context.Context)

type Store struct {
	storage   Storage
	log       *zap.Logger
	def       theme.Preset
	queueSize int

	mu         sync.RWMutex
	state      LoadState
	active     theme.Preset
	user       string
	touched    bool // set by SetPreset/ResolveForUser; Load must not clobber it
	userThemes map[string]theme.Preset
	pending    map[string]theme.Preset // accepted by SetPreset, not yet written
	queued     map[string]bool         // a persist job for the user waits in inbox
	subs       map[int]func(Change)
	nextSub    int
	ready      chan struct{}

	sendMu sync.RWMutex
	closed bool
	inbox  chan job
	done   chan struct{}
}

func NewStore(storage Storage, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		storage:    storage,
		log:        log.Named("prefs"),
		def:        theme.PresetDefault,
		queueSize:  64,
		userThemes: map[string]theme.Preset{},
		pending:    map[string]theme.Preset{},
		queued:     map[string]bool{},
		subs:       map[int]func(Change){},
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.active = s.def
	s.inbox = make(chan job, s.queueSize)
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.done)
	for j := range s.inbox {
		j(context.Background())
	}
}

// enqueue never blocks.
func (s *Store) enqueue(j job) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.inbox <- j:
		return nil
	default:
		return errQueueFull
	}
}

// Load reads the signed-in user's preset and the aggregate map
// concurrently. Missing keys and read failures both leave the default in
// place. The per-user value wins over the map entry and is written back
// into the map when they differ. Only the first call does any work.
func (s *Store) Load(ctx context.Context, userID string) {
	s.mu.Lock()
	if s.state != Uninitialized {
		s.mu.Unlock()
		return
	}
	s.state = Loading
	s.mu.Unlock()

	var (
		g         errgroup.Group
		userVal   theme.Preset
		userFound bool
		userErr   error
		agg       map[string]theme.Preset
		aggErr    error
	)
	if userID != "" {
		g.Go(func() error {
			userVal, userFound, userErr = s.readUser(ctx, userID)
			return userErr
		})
	}
	g.Go(func() error {
		agg, aggErr = s.readAggregate(ctx)
		return aggErr
	})
	_ = g.Wait()

	if userErr != nil {
		s.log.Warn("load user theme failed", zap.String("user_id", userID), zap.Error(userErr))
	}
	if aggErr != nil {
		s.log.Warn("load user themes failed", zap.Error(aggErr))
	}
	// the aggregate is re-read before every write, so a failed read here
	// cannot shrink the stored map

	s.mu.Lock()
	for u, p := range agg {
		if _, ok := s.userThemes[u]; !ok {
			s.userThemes[u] = p
		}
	}
	resync := false
	if userFound && s.userThemes[userID] != userVal {
		s.userThemes[userID] = userVal
		resync = true
	}
	var changed *Change
	if !s.touched {
		s.user = userID
		next := s.def
		if userFound {
			next = userVal
		}
		if next != s.active {
			s.active = next
			changed = &Change{UserID: userID, Preset: next}
		}
	}
	known := len(s.userThemes)
	s.state = Ready
	close(s.ready)
	s.mu.Unlock()

	s.log.Debug("preferences loaded",
		zap.String("user_id", userID),
		zap.String("active", string(s.Active())),
		zap.Int("known_users", known))

	if changed != nil {
		s.notify(*changed)
	}
	if resync {
		if err := s.enqueue(func(ctx context.Context) { s.mergeAggregate(ctx, userID, userVal) }); err != nil {
			s.log.Warn("user themes resync not queued", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// SetPreset switches the active preset right away. For a signed-in user
// the preset is then written under the user's key and, once that write
// succeeds, into the aggregate map.
func (s *Store) SetPreset(p theme.Preset) {
	if _, ok := theme.Lookup(p); !ok {
		s.log.Warn("ignoring unknown preset", zap.String("preset", string(p)))
		return
	}

	s.mu.Lock()
	s.active = p
	s.touched = true
	user := s.user
	needJob := false
	if user != "" {
		s.pending[user] = p
		if !s.queued[user] {
			s.queued[user] = true
			needJob = true
		}
	}
	s.mu.Unlock()

	s.notify(Change{UserID: user, Preset: p})

	if !needJob {
		return
	}
	if err := s.enqueue(func(ctx context.Context) { s.persistUser(ctx, user) }); err != nil {
		s.mu.Lock()
		s.queued[user] = false
		s.mu.Unlock()
		s.log.Warn("theme not persisted",
			zap.String("user_id", user), zap.String("preset", string(p)), zap.Error(err))
	}
}

// ResolveForUser makes userID the current user and re-reads their preset.
// An empty userID means signed out and yields the default without
// touching storage. A preset still waiting to be written wins over what
// storage holds. Nothing is written back when the key is absent.
func (s *Store) ResolveForUser(ctx context.Context, userID string) theme.Preset {
	p := s.def
	stored := false

	if userID != "" {
		s.mu.RLock()
		v, pending := s.pending[userID]
		s.mu.RUnlock()

		if pending {
			p = v
		} else {
			v, ok, err := s.readUser(ctx, userID)
			switch {
			case err != nil:
				s.log.Warn("resolve user theme failed", zap.String("user_id", userID), zap.Error(err))
			case ok:
				p, stored = v, true
			}
		}
	}

	s.mu.Lock()
	s.user = userID
	s.active = p
	s.touched = true
	if stored {
		s.userThemes[userID] = p
	}
	s.mu.Unlock()

	s.notify(Change{UserID: userID, Preset: p})
	return p
}

// Flush waits until every write queued before the call has been tried.
func (s *Store) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	mark := func(context.Context) { close(barrier) }

	retry := time.NewTicker(5 * time.Millisecond)
	defer retry.Stop()
	for {
		err := s.enqueue(mark)
		if err == nil {
			break
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		select {
		case <-retry.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued writes and stops the writer. The in-memory state
// stays readable; later SetPreset calls are not persisted.
func (s *Store) Close() { _ = s.Shutdown(context.Background()) }

// Shutdown is Close with a bound on how long it waits for the drain. The
// writer keeps draining in the background if ctx ends first.
func (s *Store) Shutdown(ctx context.Context) error {
	s.sendMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.inbox)
	}
	s.sendMu.Unlock()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for every Change. The returned func removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) Active() theme.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) Palette() theme.Palette { return theme.PaletteFor(s.Active()) }

func (s *Store) Default() theme.Preset { return s.def }

func (s *Store) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) State() LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready is closed once the first Load has resolved.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// UserThemes returns a copy of the in-memory aggregate map.
func (s *Store) UserThemes() map[string]theme.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userThemesLocked()
}

func (s *Store) userThemesLocked() map[string]theme.Preset {
	out := make(map[string]theme.Preset, len(s.userThemes))
	for k, v := range s.userThemes {
		out[k] = v
	}
	return out
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// persistUser writes the newest pending preset for user, then records it
// in the aggregate map.
func (s *Store) persistUser(ctx context.Context, user string) {
	s.mu.Lock()
	p, ok := s.pending[user]
	s.queued[user] = false
	s.mu.Unlock()
	if !ok {
		return
	}

	err := s.storage.Set(ctx, UserThemeKey(user), string(p))

	s.mu.Lock()
	if s.pending[user] == p {
		delete(s.pending, user)
	}
	if err == nil {
		s.userThemes[user] = p
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("persist user theme failed",
			zap.String("user_id", user), zap.String("preset", string(p)), zap.Error(err))
		return
	}
	s.mergeAggregate(ctx, user, p)
}

// mergeAggregate re-reads the stored map and sets one entry in it, so
// entries written elsewhere and entries this process never loaded
// survive. Nothing is written when the stored map cannot be read; a map
// that is not valid json is replaced.
func (s *Store) mergeAggregate(ctx context.Context, user string, p theme.Preset) {
	raw, err := s.readAggregateRaw(ctx)
	switch {
	case errors.Is(err, errBadAggJSON):
		s.log.Warn("replacing corrupt user themes", zap.Error(err))
		raw = nil
	case err != nil:
		s.log.Error("persist user themes skipped, stored map unreadable",
			zap.String("user_id", user), zap.Error(err))
		return
	}
	if raw == nil {
		raw = map[string]string{}
	}
	raw[user] = string(p)

	b, err := json.Marshal(raw)
	if err != nil {
		s.log.Error("encode user themes failed", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, KeyUserThemes, string(b)); err != nil {
		s.log.Error("persist user themes failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	for u, name := range raw {
		if _, ok := s.userThemes[u]; ok {
			continue
		}
		if known, ok := theme.ParsePreset(name); ok {
			s.userThemes[u] = known
		}
	}
	s.mu.Unlock()
}

// readUser treats an unregistered stored preset as absent.
func (s *Store) readUser(ctx context.Context, userID string) (theme.Preset, bool, error) {
	v, ok, err := s.storage.Get(ctx, UserThemeKey(userID))
	if err != nil || !ok {
		return "", false, err
	}
	p, known := theme.ParsePreset(v)
	if !known {
		s.log.Warn("stored preset unknown, using default",
			zap.String("user_id", userID), zap.String("preset", v))
		return "", false, nil
	}
	return p, true, nil
}

// readAggregateRaw keeps entries with unregistered presets so writing the
// map back does not drop them.
func (s *Store) readAggregateRaw(ctx context.Context) (map[string]string, error) {
	v, ok, err := s.storage.Get(ctx, KeyUserThemes)
	if err != nil || !ok {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadAggJSON, err)
	}
	return raw, nil
}

func (s *Store) readAggregate(ctx context.Context) (map[string]theme.Preset, error) {
	raw, err := s.readAggregateRaw(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]theme.Preset, len(raw))
	for u, name := range raw {
		if p, known := theme.ParsePreset(name); known {
			out[u] = p
		}
	}
	return out, nil
}
