package http

import (
	"testing"
	"time"

	"github.com/vovakirdan/droprelay/internal/log"
)

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !r.allow() {
			t.Fatalf("disabled limiter rejected frame %d", i)
		}
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	r := newRateLimiterWindow(2, 50*time.Millisecond)
	r.startReset(stop)

	if !r.allow() || !r.allow() {
		t.Fatal("first two frames should pass")
	}
	if r.allow() {
		t.Fatal("third frame should be limited")
	}

	deadline := time.Now().Add(time.Second)
	for !r.allow() {
		if time.Now().After(deadline) {
			t.Fatal("limiter never reset")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOriginPatterns(t *testing.T) {
	patterns, allowAll := originPatterns([]string{"https://Example.com", "*.example.org", " ", "*"}, log.Nop())
	if !allowAll {
		t.Fatal("expected allowAll")
	}
	if len(patterns) != 2 || patterns[0] != "example.com" || patterns[1] != "*.example.org" {
		t.Fatalf("unexpected patterns: %v", patterns)
	}
}
