package ml

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, "0")
	store, err := NewArtifactStore(paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, err := NewWatcher(store, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	defer func() {
		cancel()
		<-w.Done()
	}()

	writeArtifacts(t, dir, "7")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, gen := store.Current(); gen > 1 {
			artifacts, _ := store.Current()
			price, _, err := artifacts.Predict(RawInput{}, OtherCity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if price != 7 {
				t.Fatalf("expected reloaded intercept 7, got %v", price)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("artifacts were not reloaded")
}
