package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/avast/retry-go"
)

func TestConnectRetryUsesFixedDelay(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	errDown := errors.New("connection refused")

	calls := 0
	start := time.Now()
	err := retry.Do(func() error {
		calls++
		return errDown
	}, connectRetryOptions(5, 25*time.Millisecond, logger)...)
	elapsed := time.Since(start)

	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if !errors.Is(err, errDown) {
		t.Errorf("err = %v, want the last connection error", err)
	}
	// Four waits of 25ms; exponential backoff would take 375ms or more.
	if elapsed < 100*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Errorf("elapsed = %s, want about 100ms", elapsed)
	}
}
