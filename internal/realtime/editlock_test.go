package realtime

import "testing"

func TestEditLockLastAcquirerWins(t *testing.T) {
	lock := NewEditLock()
	a, _ := newTestClient(t, "a")
	b, _ := newTestClient(t, "b")

	if displaced := lock.Acquire(a); displaced != nil {
		t.Fatalf("first acquire displaced %v", displaced)
	}
	if !lock.IsHolder(a) {
		t.Fatal("a should hold the lock")
	}

	if displaced := lock.Acquire(b); displaced != a {
		t.Fatal("second acquire should displace a")
	}
	if !lock.IsHolder(b) {
		t.Fatal("b should hold the lock after displacing a")
	}

	// Re-acquiring by the current holder reports no displacement.
	if displaced := lock.Acquire(b); displaced != nil {
		t.Fatalf("re-acquire displaced %v", displaced)
	}
}

func TestEditLockReleaseOnlyByHolder(t *testing.T) {
	lock := NewEditLock()
	holder, _ := newTestClient(t, "holder")
	other, _ := newTestClient(t, "other")

	lock.Acquire(holder)

	if lock.Release(other) {
		t.Fatal("release by a non-holder should be a no-op")
	}
	if !lock.IsHolder(holder) {
		t.Fatal("holder should keep the lock after a stray release")
	}

	if !lock.Release(holder) {
		t.Fatal("release by the holder should succeed")
	}
	if lock.Holder() != nil {
		t.Fatal("lock should be unlocked")
	}
	if lock.Release(holder) {
		t.Fatal("releasing an unlocked lock should be a no-op")
	}
}
