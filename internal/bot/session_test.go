package bot

import (
	"errors"
	"sync"
	"testing"
)

func TestSessionStoreMutateWrongState(t *testing.T) {
	store := NewSessionStore()
	store.Put(1, PurchaseSession{State: StateAwaitingConsent})

	_, err := store.Mutate(1, StateAwaitingContinue, func(s *PurchaseSession) {
		s.State = StateAwaitingConsent
	})
	if !errors.Is(err, ErrWrongState) {
		t.Fatalf("Mutate with stale expectation = %v; want ErrWrongState", err)
	}

	// The session must be untouched after a rejected mutation.
	if got := store.Get(1).State; got != StateAwaitingConsent {
		t.Errorf("session state after rejected mutation = %v; want %v", got, StateAwaitingConsent)
	}
}

func TestSessionStoreMutateMissingSession(t *testing.T) {
	store := NewSessionStore()

	_, err := store.Mutate(42, StateAwaitingContinue, func(s *PurchaseSession) {})
	if !errors.Is(err, ErrWrongState) {
		t.Fatalf("Mutate on missing session = %v; want ErrWrongState", err)
	}
}

func TestSessionStoreMutateReturnsUpdatedCopy(t *testing.T) {
	store := NewSessionStore()
	store.Put(1, PurchaseSession{State: StateAwaitingConsent})

	sess, err := store.Mutate(1, StateAwaitingConsent, func(s *PurchaseSession) {
		s.DataConsent = true
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !sess.DataConsent {
		t.Error("returned session copy does not carry the mutation")
	}
}

// Concurrent toggles of the two consent flags must all land: mutations on
// the same user are serialized by the store.
func TestSessionStoreConcurrentMutations(t *testing.T) {
	store := NewSessionStore()
	store.Put(7, PurchaseSession{State: StateAwaitingConsent})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Mutate(7, StateAwaitingConsent, func(s *PurchaseSession) {
				s.DataConsent = true
			})
		}()
		go func() {
			defer wg.Done()
			store.Mutate(7, StateAwaitingConsent, func(s *PurchaseSession) {
				s.OfferConsent = true
			})
		}()
	}
	wg.Wait()

	sess := store.Get(7)
	if !sess.DataConsent || !sess.OfferConsent {
		t.Errorf("after concurrent toggles DataConsent=%v OfferConsent=%v; want both true",
			sess.DataConsent, sess.OfferConsent)
	}
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore()
	store.Put(3, PurchaseSession{State: StatePaymentCreated, GatewayPaymentID: "pay-1"})
	store.Clear(3)

	sess := store.Get(3)
	if sess.State != StateIdle || sess.GatewayPaymentID != "" {
		t.Errorf("cleared session = %+v; want zero value", sess)
	}
}

func TestSessionStoreUsersAreIndependent(t *testing.T) {
	store := NewSessionStore()
	store.Put(1, PurchaseSession{State: StateAwaitingEmail})
	store.Put(2, PurchaseSession{State: StatePaymentCreated})

	if got := store.Get(1).State; got != StateAwaitingEmail {
		t.Errorf("user 1 state = %v; want %v", got, StateAwaitingEmail)
	}
	if got := store.Get(2).State; got != StatePaymentCreated {
		t.Errorf("user 2 state = %v; want %v", got, StatePaymentCreated)
	}
}
