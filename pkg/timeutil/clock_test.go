package timeutil

import (
	"sync"
	"testing"
	"time"
)

func TestSystemClock_UTC(t *testing.T) {
	var c Clock = SystemClock{}

	if c.Now().Location() != time.UTC {
		t.Errorf("SystemClock.Now() returned non-UTC: %v", c.Now().Location())
	}
}

func TestSimulatedClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	c := NewSimulatedClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(36 * time.Hour)
	if want := time.Date(2024, 2, 1, 21, 0, 0, 0, time.UTC); !c.Now().Equal(want) {
		t.Errorf("after Advance Now() = %v, want %v", c.Now(), want)
	}

	c.AdvanceDays(28)
	if want := time.Date(2024, 2, 29, 21, 0, 0, 0, time.UTC); !c.Now().Equal(want) {
		t.Errorf("after AdvanceDays Now() = %v, want %v", c.Now(), want)
	}

	// rewinding is allowed
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("after Set Now() = %v, want %v", c.Now(), start)
	}
}

func TestSimulatedClock_ConcurrentReads(t *testing.T) {
	c := NewSimulatedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
		go func() {
			defer wg.Done()
			c.Advance(time.Minute)
		}()
	}
	wg.Wait()

	if want := time.Date(2024, 1, 1, 0, 20, 0, 0, time.UTC); !c.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", c.Now(), want)
	}
}
