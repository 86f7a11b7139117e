package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/synapsedb/mnemosyne/internal/ratelimit"
)

func TestRateLimitedProviderAllows(t *testing.T) {
	inner := NewLocalProvider(32)
	cfg := &ratelimit.Config{
		Enabled: true,
		Global:  ratelimit.LimitConfig{RequestsPerSecond: 100, BurstSize: 10},
	}
	p := NewRateLimitedProvider(inner, ratelimit.NewLimiter(cfg))

	vec, err := p.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 32 {
		t.Errorf("expected dimension 32, got %d", len(vec))
	}
}

func TestRateLimitedProviderRejectsOverBudget(t *testing.T) {
	inner := NewLocalProvider(8)
	cfg := &ratelimit.Config{
		Enabled: true,
		Global:  ratelimit.LimitConfig{RequestsPerSecond: 0.001, BurstSize: 1},
	}
	p := NewRateLimitedProvider(inner, ratelimit.NewLimiter(cfg))

	if _, err := p.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("first call should be allowed: %v", err)
	}
	_, err := p.Embed(context.Background(), "second")
	if err == nil {
		t.Fatal("expected second call to be rate limited")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimitedProviderNilLimiterAlwaysAllows(t *testing.T) {
	inner := NewLocalProvider(8)
	p := NewRateLimitedProvider(inner, nil)
	for i := 0; i < 5; i++ {
		if _, err := p.Embed(context.Background(), "x"); err != nil {
			t.Fatalf("call %d failed with nil limiter: %v", i, err)
		}
	}
}
