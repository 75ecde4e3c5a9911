package session

import (
	"testing"
	"time"
)

func TestManager_GetCreatesAndReuses(t *testing.T) {
	m := NewManager(time.Hour)

	id, ledger := m.Get("")
	if id == "" || ledger == nil {
		t.Fatalf("Get(\"\") = (%q, %v)", id, ledger)
	}

	sameID, same := m.Get(id)
	if sameID != id || same != ledger {
		t.Errorf("Get(%q) returned a different session", id)
	}

	otherID, other := m.Get("forged-id")
	if otherID == "forged-id" || other == ledger {
		t.Errorf("unknown id must start a fresh session, got %q", otherID)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManager_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(30 * time.Minute)
	m.now = func() time.Time { return now }

	idle, _ := m.Get("")
	_, busy := m.Get("")
	now = now.Add(20 * time.Minute)
	fresh, _ := m.Get("")

	if err := busy.BeginSubmission(); err != nil {
		t.Fatal(err)
	}
	defer busy.EndSubmission()

	removed := m.Sweep(now.Add(15 * time.Minute))
	if removed != 1 {
		t.Fatalf("Sweep() removed %d, want 1", removed)
	}
	if id, _ := m.Get(idle); id == idle {
		t.Error("idle session survived sweep")
	}
	if id, _ := m.Get(fresh); id != fresh {
		t.Error("fresh session was swept")
	}
}

func TestManager_NoTTL(t *testing.T) {
	m := NewManager(0)
	m.Get("")
	if n := m.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("Sweep() removed %d with expiry disabled", n)
	}
}
