package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimitedDelegates(t *testing.T) {
	inner := ClientFunc(func(_ context.Context, msgs []Message) (string, error) {
		return msgs[0].Content, nil
	})

	rl := NewRateLimited(inner, 100, 1)
	out, err := rl.GenerateResponse(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if out != "hi" {
		t.Fatalf("response = %q", out)
	}
}

func TestRateLimitedRespectsCancellation(t *testing.T) {
	inner := ClientFunc(func(_ context.Context, _ []Message) (string, error) {
		return "", nil
	})

	// Burst 1 at a very slow refill: the first call drains the bucket,
	// the second must wait and sees the cancelled context.
	rl := NewRateLimited(inner, 0.001, 1)
	if _, err := rl.GenerateResponse(context.Background(), []Message{User("a")}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rl.GenerateResponse(ctx, []Message{User("b")})
	if err == nil {
		t.Fatal("expected context error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded in chain, got %v", err)
	}
}
