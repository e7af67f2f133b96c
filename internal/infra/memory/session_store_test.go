package memory

import (
	"testing"

	"fan-quiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	store.Put(app.NewSession("s-1", "u-1", nil))
	session, ok := store.Get("s-1")
	if !ok || session.OwnerID() != "u-1" {
		t.Fatalf("expected session owned by u-1, got %+v ok=%v", session, ok)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
	store.Delete("s-1")
}
