package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Store is the durable key-value store holding one serialized Session
// snapshot per user. Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Recorder receives best-effort copies of appended messages for the
// append-only event log. Implementations must not block.
type Recorder interface {
	Record(userID, role, content, channel string, ts time.Time)
}

const keyPrefix = "session:"

func sessionKey(userID string) string { return keyPrefix + userID }

// Manager is the sole authority over Session records: the only component
// that writes to the Store. Store failures degrade to absent/no-op so the
// conversation flow is never blocked by a persistence outage.
//
// Each read-modify-write is serialized per user id with an in-process keyed
// mutex; the lock is only ever held across a single store round-trip. The
// serialization does not extend across processes, so a multi-instance
// deployment still sees last-write-wins between instances.
type Manager struct {
	store  Store
	rec    Recorder
	logger *slog.Logger
	ttl    time.Duration
	locks  *keyedMutex
	now    func() time.Time
}

func NewManager(store Store, rec Recorder, logger *slog.Logger, ttl time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		store:  store,
		rec:    rec,
		logger: logger,
		ttl:    ttl,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

// load reads and decodes the snapshot for userID. Any store or decode
// failure is reported as absence.
func (m *Manager) load(ctx context.Context, userID string) (*Session, bool) {
	raw, err := m.store.Get(ctx, sessionKey(userID))
	if err != nil {
		m.logger.Warn("session store read failed", "user_id", userID, "err", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		m.logger.Warn("session snapshot corrupt", "user_id", userID, "err", err)
		return nil, false
	}
	return &s, true
}

// save persists the complete snapshot with a sliding TTL.
func (m *Manager) save(ctx context.Context, s *Session) {
	raw, err := json.Marshal(s)
	if err != nil {
		m.logger.Warn("session snapshot encode failed", "user_id", s.UserID, "err", err)
		return
	}
	if err := m.store.Set(ctx, sessionKey(s.UserID), raw, m.ttl); err != nil {
		m.logger.Warn("session store write failed", "user_id", s.UserID, "err", err)
	}
}

// Get returns the current persisted snapshot, or (nil, false) when the
// session is absent or the store is unreachable. No side effects.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, bool) {
	return m.load(ctx, userID)
}

// GetOrCreate returns the session for userID, creating it on first contact.
// For an existing session it applies channel bookkeeping: the switch counter
// increments once when channel differs from the stored last_channel, and
// last_channel/last_active are refreshed.
func (m *Manager) GetOrCreate(ctx context.Context, userID, channel string) *Session {
	unlock := m.locks.lock(userID)
	defer unlock()
	return m.getOrCreateLocked(ctx, userID, channel)
}

func (m *Manager) getOrCreateLocked(ctx context.Context, userID, channel string) *Session {
	s, ok := m.load(ctx, userID)
	if !ok {
		s = New(userID, channel, m.now())
		m.save(ctx, s)
		m.logger.Info("session created", "user_id", userID, "channel", channel)
		return s
	}

	if s.LastChannel != channel {
		m.logger.Info("channel switch detected",
			"user_id", userID, "from", s.LastChannel, "to", channel)
	}
	s.Touch(channel, m.now())
	m.save(ctx, s)
	return s
}

// AppendMessage ensures the session exists (applying channel bookkeeping),
// appends one turn with ring-buffer truncation, persists the snapshot, and
// hands the turn to the event recorder best-effort.
func (m *Manager) AppendMessage(ctx context.Context, userID, role, content, channel string) {
	unlock := m.locks.lock(userID)

	s := m.getOrCreateLocked(ctx, userID, channel)
	msg := s.Append(role, content, channel, m.now())
	m.save(ctx, s)

	unlock()

	if m.rec != nil {
		m.rec.Record(userID, role, content, channel, msg.Timestamp)
	}
}

// History returns at most limit of the newest turns, oldest first. Absent
// session means an empty history.
func (m *Manager) History(ctx context.Context, userID string, limit int) []Message {
	s, ok := m.load(ctx, userID)
	if !ok {
		return nil
	}
	return s.Recent(limit)
}

// UpdateStyleProfile overwrites the stored profile wholesale. When the
// session does not exist this is a silent no-op: callers are expected to have
// created the session via a preceding message append.
func (m *Manager) UpdateStyleProfile(ctx context.Context, userID string, profile StyleProfile) {
	unlock := m.locks.lock(userID)
	defer unlock()

	s, ok := m.load(ctx, userID)
	if !ok {
		return
	}
	s.StyleProfile = &profile
	m.save(ctx, s)
	m.logger.Info("style profile updated", "user_id", userID, "undertone", profile.Undertone)
}

// AddToCart appends an item to the session cart. No-op when absent.
func (m *Manager) AddToCart(ctx context.Context, userID string, name string, price int) {
	unlock := m.locks.lock(userID)
	defer unlock()

	s, ok := m.load(ctx, userID)
	if !ok {
		return
	}
	s.Cart = append(s.Cart, CartItem{Name: name, Price: price, AddedAt: m.now()})
	m.save(ctx, s)
}

// Cart returns the session cart, empty when absent.
func (m *Manager) Cart(ctx context.Context, userID string) []CartItem {
	s, ok := m.load(ctx, userID)
	if !ok {
		return nil
	}
	out := make([]CartItem, len(s.Cart))
	copy(out, s.Cart)
	return out
}

// ClearCart empties the session cart. No-op when absent.
func (m *Manager) ClearCart(ctx context.Context, userID string) {
	unlock := m.locks.lock(userID)
	defer unlock()

	s, ok := m.load(ctx, userID)
	if !ok {
		return
	}
	s.Cart = []CartItem{}
	m.save(ctx, s)
}

// Clear deletes the session record outright. Idempotent: clearing an absent
// session is not an error.
func (m *Manager) Clear(ctx context.Context, userID string) {
	unlock := m.locks.lock(userID)
	defer unlock()

	if err := m.store.Delete(ctx, sessionKey(userID)); err != nil {
		m.logger.Warn("session delete failed", "user_id", userID, "err", err)
	}
}
