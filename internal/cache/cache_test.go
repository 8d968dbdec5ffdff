package cache

import (
	"sync"
	"testing"
	"time"
)

func TestMemory_PutGetWithTTL(t *testing.T) {
	c := NewMemory()

	type snapshot struct {
		Commodity string
		Price     float64
	}

	in := snapshot{Commodity: "tomato", Price: 82.5}
	if err := c.Put("trend|tomato|kiambu", in, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var out snapshot
	found, err := c.Get("trend|tomato|kiambu", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Expected to find cached entry")
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory()

	if err := c.Put("k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var got string
	if found, _ := c.Get("k", &got); !found {
		t.Fatal("Entry should be live inside its TTL")
	}

	time.Sleep(20 * time.Millisecond)

	if found, _ := c.Get("k", &got); found {
		t.Error("Entry should have expired")
	}
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemory()

	if err := c.Put("k", 42, 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got int
	found, err := c.Get("k", &got)
	if err != nil || !found {
		t.Fatalf("Expected entry to persist, found=%v err=%v", found, err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
}

func TestMemory_RemoveAndClear(t *testing.T) {
	c := NewMemory()
	_ = c.Put("a", 1, time.Hour)
	_ = c.Put("b", 2, time.Hour)

	if err := c.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	var got int
	if found, _ := c.Get("a", &got); found {
		t.Error("Removed entry should be gone")
	}
	if found, _ := c.Get("b", &got); !found {
		t.Error("Other entry should survive Remove")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if found, _ := c.Get("b", &got); found {
		t.Error("Clear should drop all entries")
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	c := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := BuildKey("trend", "tomato", "kiambu")
			_ = c.Put(key, n, time.Hour)
			var got int
			_, _ = c.Get(key, &got)
		}(i)
	}
	wg.Wait()
}

func TestNoop_NeverStores(t *testing.T) {
	var c Store = Noop{}
	if err := c.Put("k", "v", time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	var got string
	found, err := c.Get("k", &got)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("Noop cache should never return a hit")
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		parts    []string
		expected string
	}{
		{[]string{"trend", "tomato", "kiambu"}, "trend|tomato|kiambu"},
		{[]string{"single"}, "single"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := BuildKey(tt.parts...); got != tt.expected {
			t.Errorf("BuildKey(%v) = %q, expected %q", tt.parts, got, tt.expected)
		}
	}
}

func TestSemanticKeys(t *testing.T) {
	if got := TrendKey("tomato", "kiambu"); got != "trend|tomato|kiambu" {
		t.Errorf("TrendKey = %q", got)
	}
	if got := PriceKey("onion", "grade-A", 5, "nakuru"); got != "price|onion|grade-A|q5|nakuru" {
		t.Errorf("PriceKey = %q", got)
	}
	if got := SummaryKey("nationwide"); got != "summary|nationwide" {
		t.Errorf("SummaryKey = %q", got)
	}
}
