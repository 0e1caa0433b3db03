package module

import (
	"sync"
	"testing"
)

func TestNewMetadataDefaults(t *testing.T) {
	m := NewMetadata()
	if m.Priority != PriorityNormal {
		t.Errorf("default priority = %v, want normal", m.Priority)
	}
	if m.Source != "" {
		t.Errorf("default source = %q, want empty", m.Source)
	}
	if m.Transaction == "" {
		t.Error("transaction identifier is empty")
	}
}

func TestNewMetadataOptions(t *testing.T) {
	m := NewMetadata(WithPriority(PriorityHigh), WithSource("gpio"), WithTransaction("tx-1"))
	if m.Priority != PriorityHigh {
		t.Errorf("priority = %v, want high", m.Priority)
	}
	if m.Source != "gpio" {
		t.Errorf("source = %q, want gpio", m.Source)
	}
	if m.Transaction != "tx-1" {
		t.Errorf("transaction = %q, want tx-1", m.Transaction)
	}
}

func TestWithPriorityClamps(t *testing.T) {
	m := NewMetadata(WithPriority(Priority(99)))
	if m.Priority != PriorityLowest {
		t.Errorf("priority = %v, want clamped to lowest", m.Priority)
	}
	m = NewMetadata(WithPriority(Priority(-3)))
	if m.Priority != PriorityHighest {
		t.Errorf("priority = %v, want clamped to highest", m.Priority)
	}
}

func TestTransactionIDsUnique(t *testing.T) {
	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := NewMetadata().Transaction
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate transaction id %q", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("got %d unique ids, want %d", len(seen), workers*perWorker)
	}
}

func TestPriorityClamp(t *testing.T) {
	if got := Priority(0).Clamp(); got != PriorityHighest {
		t.Errorf("Clamp(0) = %v, want highest", got)
	}
	if got := Priority(7).Clamp(); got != PriorityLowest {
		t.Errorf("Clamp(7) = %v, want lowest", got)
	}
	if got := PriorityNormal.Clamp(); got != PriorityNormal {
		t.Errorf("Clamp(normal) = %v, want normal", got)
	}
}

func TestPriorityString(t *testing.T) {
	if PriorityHighest.String() != "highest" || Priority(42).String() != "invalid" {
		t.Error("unexpected priority strings")
	}
}
