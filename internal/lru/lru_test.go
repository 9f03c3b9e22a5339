package lru

import (
	"testing"
	"time"
)

func TestSeen(t *testing.T) {
	c := New[int](2, time.Minute)
	if c.Seen(1) {
		t.Fatal("first sighting reported as seen")
	}
	if !c.Seen(1) {
		t.Fatal("second sighting not seen")
	}
}

func TestSeenExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New[string](8, time.Second)
	c.nowF = func() time.Time { return now }

	c.Seen("a")
	now = now.Add(2 * time.Second)
	if c.Seen("a") {
		t.Fatal("expired key reported as seen")
	}
}

func TestSeenEvictsOldest(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Seen(1)
	c.Seen(2)
	c.Seen(3)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d", c.Len())
	}
	if c.Seen(1) {
		t.Fatal("evicted key reported as seen")
	}
}
