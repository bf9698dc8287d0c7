package bot

import (
	"errors"
	"sync"
)

// PurchaseState is the step of the purchase flow a user currently occupies.
type PurchaseState int

const (
	StateIdle PurchaseState = iota
	StateAwaitingContinue
	StateAwaitingConsent
	StateAwaitingEmail
	StatePaymentCreated
)

func (s PurchaseState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingContinue:
		return "awaiting_continue"
	case StateAwaitingConsent:
		return "awaiting_consent"
	case StateAwaitingEmail:
		return "awaiting_email"
	case StatePaymentCreated:
		return "payment_created"
	default:
		return "invalid"
	}
}

// ErrWrongState is returned when a trigger arrives while the session is not
// in the state that trigger expects (stale button press, completed flow).
var ErrWrongState = errors.New("purchase session is not in the expected state")

// PurchaseSession is the transient, in-memory flow state for one user. The
// consent flags here are uncommitted: they reach the consent ledger only at
// the AwaitingConsent exit transition. Lost on restart by design.
type PurchaseSession struct {
	State            PurchaseState
	DataConsent      bool
	OfferConsent     bool
	GatewayPaymentID string
	RedirectURL      string
}

const sessionShards = 16

type sessionShard struct {
	mu       sync.Mutex
	sessions map[int64]PurchaseSession
}

// SessionStore keeps purchase sessions keyed by Telegram user id. Mutations
// for the same user are serialized by the shard lock, so two concurrent
// triggers cannot interleave reads and writes of one user's flags.
type SessionStore struct {
	shards [sessionShards]sessionShard
}

func NewSessionStore() *SessionStore {
	s := &SessionStore{}
	for i := range s.shards {
		s.shards[i].sessions = make(map[int64]PurchaseSession)
	}
	return s
}

func (s *SessionStore) shard(userID int64) *sessionShard {
	return &s.shards[uint64(userID)%sessionShards]
}

// Get returns a copy of the user's session. Absence is the Idle state.
func (s *SessionStore) Get(userID int64) PurchaseSession {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sessions[userID]
}

// Put replaces the user's session wholesale.
func (s *SessionStore) Put(userID int64, sess PurchaseSession) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sessions[userID] = sess
}

// Mutate runs fn on the user's session under the shard lock, but only when
// the session currently sits in the expected state; otherwise ErrWrongState
// and no change. Returns the resulting session.
func (s *SessionStore) Mutate(userID int64, expect PurchaseState, fn func(*PurchaseSession)) (PurchaseSession, error) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess := sh.sessions[userID]
	if sess.State != expect {
		return sess, ErrWrongState
	}
	fn(&sess)
	sh.sessions[userID] = sess
	return sess, nil
}

// Clear drops the user's session, returning them to Idle.
func (s *SessionStore) Clear(userID int64) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.sessions, userID)
}
