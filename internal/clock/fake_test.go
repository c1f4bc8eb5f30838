package clock

import (
	"testing"
	"time"
)

func TestFakeNow(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	c := Fake(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !c.Now().Equal(want) {
		t.Fatalf("after Advance, Now() = %v, want %v", c.Now(), want)
	}
}

func TestFakeTickerFiresOnAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	c := Fake(start)
	ticker := c.NewTicker(time.Hour)
	defer ticker.Stop()

	c.Advance(30 * time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	c.Advance(30 * time.Minute)
	select {
	case got := <-ticker.C:
		if want := start.Add(time.Hour); !got.Equal(want) {
			t.Errorf("tick time = %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not fire after one interval")
	}
}

func TestFakeTickerStop(t *testing.T) {
	t.Parallel()

	c := Fake(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	if c.TickerCount() != 1 {
		t.Fatalf("TickerCount() = %d, want 1", c.TickerCount())
	}
	ticker.Stop()
	if c.TickerCount() != 0 {
		t.Fatalf("TickerCount() after Stop = %d, want 0", c.TickerCount())
	}

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}
