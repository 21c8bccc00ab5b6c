package utils

import (
	"sync"
	"sync/atomic"
	"testing"
)

type pair struct {
	code string
	url  string
}

func TestKeySetNoDuplicates(t *testing.T) {
	s := NewKeySet[pair]()

	if !s.Add(pair{"28001", "https://x/a"}) {
		t.Error("first Add should return true")
	}
	if s.Add(pair{"28001", "https://x/a"}) {
		t.Error("second Add of same pair should return false")
	}
	if !s.Add(pair{"28002", "https://x/a"}) {
		t.Error("same URL under another postal code is a new key")
	}

	if s.Size() != 2 {
		t.Errorf("size: got %d, want 2", s.Size())
	}
	if !s.Contains(pair{"28002", "https://x/a"}) {
		t.Error("Contains should find an added key")
	}
}

func TestKeySetKeepsFirstSeenOrder(t *testing.T) {
	s := NewKeySet[string]()
	for _, k := range []string{"c", "a", "c", "b", "a"} {
		s.Add(k)
	}

	got := s.Keys()
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("keys: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keys[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeySetConcurrency(t *testing.T) {
	s := NewKeySet[string]()
	var added int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("https://x/same") {
				atomic.AddInt64(&added, 1)
			}
		}()
	}
	wg.Wait()

	if added != 1 {
		t.Errorf("exactly one goroutine should have added the key, got %d", added)
	}
}
