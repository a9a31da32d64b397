package ratelimit

import "testing"

func TestLimiterBurstThenDeny(t *testing.T) {
	l := NewLimiter(1, 3)
	defer l.Close()

	for i := range 3 {
		if !l.Allow("client-a") {
			t.Fatalf("request %d within burst denied", i)
		}
	}
	if l.Allow("client-a") {
		t.Fatal("request beyond burst allowed")
	}
	// Separate keys get separate buckets.
	if !l.Allow("client-b") {
		t.Fatal("fresh client denied")
	}
}
