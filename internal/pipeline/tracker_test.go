package pipeline

import (
	"sync"
	"testing"

	"corkboard/internal/store"
)

func TestTrackerCleanupFiresOnce(t *testing.T) {
	cases := []struct {
		name  string
		first func(*tracker) bool
		then  func(*tracker) bool
	}{
		{
			name:  "metadata first",
			first: func(tr *tracker) bool { return tr.setMetadata(store.StageDone) },
			then:  func(tr *tracker) bool { return tr.setDarkMode(store.StageDone) },
		},
		{
			name:  "dark mode first",
			first: func(tr *tracker) bool { return tr.setDarkMode(store.StageFailed) },
			then:  func(tr *tracker) bool { return tr.setMetadata(store.StageSkipped) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTracker()
			if tc.first(tr) {
				t.Fatal("cleanup must not fire with one stage outstanding")
			}
			if !tc.then(tr) {
				t.Fatal("cleanup should fire on the second terminal stage")
			}
			// Any further completion must not claim cleanup again.
			if tr.setMetadata(store.StageDone) || tr.setDarkMode(store.StageDone) {
				t.Fatal("cleanup fired twice")
			}
		})
	}
}

func TestTrackerPendingIsNotTerminal(t *testing.T) {
	tr := newTracker()
	if tr.setMetadata(store.StagePending) {
		t.Fatal("pending should never satisfy the barrier")
	}
	if tr.setDarkMode(store.StageDone) {
		t.Fatal("barrier needs both stages terminal")
	}
	if !tr.setMetadata(store.StageDone) {
		t.Fatal("barrier should fire once metadata turns terminal")
	}
}

func TestTrackerConcurrentCompletion(t *testing.T) {
	for i := 0; i < 100; i++ {
		tr := newTracker()
		var wg sync.WaitGroup
		fired := make(chan struct{}, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			if tr.setMetadata(store.StageDone) {
				fired <- struct{}{}
			}
		}()
		go func() {
			defer wg.Done()
			if tr.setDarkMode(store.StageDone) {
				fired <- struct{}{}
			}
		}()
		wg.Wait()
		close(fired)

		count := 0
		for range fired {
			count++
		}
		if count != 1 {
			t.Fatalf("cleanup fired %d times, want exactly 1", count)
		}
	}
}
