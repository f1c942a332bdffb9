package interactions

import (
	"context"
	"errors"
	"testing"
)

func invocation(command, userID string) Invocation {
	return Invocation{Command: command, User: User{ID: userID, Username: "x"}}
}

func TestGateDeniesWithoutAccount(t *testing.T) {
	finder := &mapFinder{users: map[string]bool{}}
	g := NewGate(finder, "start", nil)

	dec := g.Allow(context.Background(), invocation("balance", "u1"))
	if dec.Allowed {
		t.Fatal("expected denial without account")
	}
	if dec.Reason != DeniedNoAccount {
		t.Errorf("Reason = %q", dec.Reason)
	}
}

func TestGateAllowsAccountHolder(t *testing.T) {
	finder := &mapFinder{users: map[string]bool{"u1": true}}
	g := NewGate(finder, "start", nil)

	if dec := g.Allow(context.Background(), invocation("balance", "u1")); !dec.Allowed {
		t.Fatalf("expected account holder to be allowed: %+v", dec)
	}
}

func TestGateExemptsAccountCreation(t *testing.T) {
	finder := &mapFinder{users: map[string]bool{}}
	g := NewGate(finder, "start", nil)

	if dec := g.Allow(context.Background(), invocation("start", "u1")); !dec.Allowed {
		t.Fatal("expected start to bypass the gate")
	}
	if finder.calls != 0 {
		t.Errorf("exempt command consulted the store %d times", finder.calls)
	}
}

func TestGateFailsOpenOnStoreError(t *testing.T) {
	finder := &mapFinder{err: errors.New("connection refused")}
	g := NewGate(finder, "start", nil)

	if dec := g.Allow(context.Background(), invocation("balance", "u1")); !dec.Allowed {
		t.Fatal("store errors must let the request through")
	}
}

func TestGateNilFinderAllows(t *testing.T) {
	g := NewGate(nil, "start", nil)
	if dec := g.Allow(context.Background(), invocation("balance", "u1")); !dec.Allowed {
		t.Fatal("expected nil finder to allow")
	}

	var nilGate *Gate
	if dec := nilGate.Allow(context.Background(), invocation("balance", "u1")); !dec.Allowed {
		t.Fatal("expected nil gate to allow")
	}
}
