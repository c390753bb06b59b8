package auth

import (
	"errors"
	"testing"
)

func TestGateWrongThenCorrect(t *testing.T) {
	g := NewGate("opensesame")

	if g.State() != StateUnauthenticated {
		t.Errorf("initial state = %q, want %q", g.State(), StateUnauthenticated)
	}

	if err := g.Submit("nope"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("Submit wrong = %v, want ErrWrongPassword", err)
	}
	if g.State() != StateAwaitingPassword {
		t.Errorf("state after wrong = %q, want %q", g.State(), StateAwaitingPassword)
	}

	if err := g.Submit("opensesame"); err != nil {
		t.Fatalf("Submit correct: %v", err)
	}
	if g.State() != StateAuthenticated {
		t.Errorf("state after correct = %q, want %q", g.State(), StateAuthenticated)
	}
}

func TestGateIdempotentOnRepeatedCorrect(t *testing.T) {
	g := NewGate("opensesame")

	for i := 0; i < 3; i++ {
		if err := g.Submit("opensesame"); err != nil {
			t.Fatalf("Submit #%d: %v", i, err)
		}
		if !g.Authenticated() {
			t.Fatalf("not authenticated after submit #%d", i)
		}
	}
}

func TestGateWrongAfterCorrectKeepsAuthenticated(t *testing.T) {
	g := NewGate("opensesame")

	if err := g.Submit("opensesame"); err != nil {
		t.Fatal(err)
	}
	// A later mismatched submission reports the error but does not revoke.
	if err := g.Submit("nope"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("Submit wrong = %v, want ErrWrongPassword", err)
	}
	if !g.Authenticated() {
		t.Error("gate lost authentication after a wrong submission")
	}
}

func TestGateFailClosedWithoutSecret(t *testing.T) {
	g := NewGate("")

	if g.Configured() {
		t.Error("Configured() = true for empty secret")
	}
	if err := g.Submit(""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Submit = %v, want ErrNotConfigured", err)
	}
	if err := g.Submit("anything"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Submit = %v, want ErrNotConfigured", err)
	}
	if g.Authenticated() {
		t.Error("gate authenticated without a configured secret")
	}
}
