package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/surface"
)

// fakeSurface renders one frame per RequestFrame call, like a cooperative
// animation. It can report completion after a given frame and can stop
// advancing to simulate a stall.
type fakeSurface struct {
	counter    int64
	rendered   int
	doneAfter  int // report done once this many frames were rendered; 0 = never
	stallAfter int // stop advancing after this many frames; 0 = never
	payload    func(i int) string
	closed     bool
}

func pngPayload(i int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("png-%d", i)))
}

func (f *fakeSurface) FrameCount(ctx context.Context) (int64, error) { return f.counter, nil }

func (f *fakeSurface) RequestFrame(ctx context.Context) error {
	if f.stallAfter > 0 && f.rendered >= f.stallAfter {
		return nil // permission granted, but the surface never advances
	}
	f.rendered++
	f.counter++
	return nil
}

func (f *fakeSurface) Snapshot(ctx context.Context) (string, error) {
	if f.payload != nil {
		return f.payload(f.rendered), nil
	}
	return pngPayload(f.rendered), nil
}

func (f *fakeSurface) Done(ctx context.Context) (bool, error) {
	return f.doneAfter > 0 && f.rendered >= f.doneAfter, nil
}

func (f *fakeSurface) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func fastOpts(dir string) Options {
	return Options{
		FramesDir:    dir,
		FPS:          1000,
		MaxFrames:    10,
		StallTimeout: 100 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
	}
}

func frameFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestRunStopsOnDone(t *testing.T) {
	dir := t.TempDir()
	surf := &fakeSurface{doneAfter: 5}

	res, err := Run(context.Background(), surf, fastOpts(dir), zap.NewNop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.FrameCount != 5 {
		t.Errorf("expected 5 frames (done on cycle 5), got %d", res.FrameCount)
	}

	files := frameFiles(t, dir)
	if len(files) != 5 {
		t.Fatalf("expected 5 frame files, got %d", len(files))
	}
	// Strictly ordered, gap-free, zero-padded sequence.
	for i, f := range files {
		want := fmt.Sprintf("frame_%05d.png", i)
		if filepath.Base(f) != want {
			t.Errorf("frame %d named %s, want %s", i, filepath.Base(f), want)
		}
	}

	// The frame carrying the done signal must have been persisted.
	data, err := os.ReadFile(filepath.Join(dir, "frame_00004.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-5" {
		t.Errorf("last frame content %q, want %q", data, "png-5")
	}
}

func TestRunExhaustsFrameBudget(t *testing.T) {
	dir := t.TempDir()
	surf := &fakeSurface{} // never done

	res, err := Run(context.Background(), surf, fastOpts(dir), zap.NewNop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.FrameCount != 10 {
		t.Errorf("expected max-frames (10) frames, got %d", res.FrameCount)
	}
	if got := len(frameFiles(t, dir)); got != 10 {
		t.Errorf("expected 10 frame files, got %d", got)
	}
}

func TestRunStallIsFatal(t *testing.T) {
	dir := t.TempDir()
	surf := &fakeSurface{stallAfter: 2}

	_, err := Run(context.Background(), surf, fastOpts(dir), zap.NewNop())
	if !errors.Is(err, ErrStalled) {
		t.Fatalf("expected ErrStalled, got %v", err)
	}
	if !surf.closed {
		t.Error("surface must be released before the stall error propagates")
	}
	// Frames captured before the stall stay on disk.
	if got := len(frameFiles(t, dir)); got != 2 {
		t.Errorf("expected 2 retained frames, got %d", got)
	}
}

func TestRunMalformedSnapshotIsFatal(t *testing.T) {
	dir := t.TempDir()
	surf := &fakeSurface{payload: func(i int) string { return "no delimiter here" }}

	_, err := Run(context.Background(), surf, fastOpts(dir), zap.NewNop())
	if !errors.Is(err, surface.ErrBadSnapshot) {
		t.Fatalf("expected ErrBadSnapshot, got %v", err)
	}
	if got := len(frameFiles(t, dir)); got != 0 {
		t.Errorf("no frames should persist from a rejected payload, got %d", got)
	}
}

func TestRunValidatesOptions(t *testing.T) {
	surf := &fakeSurface{}
	if _, err := Run(context.Background(), surf, Options{FramesDir: t.TempDir(), FPS: 0, MaxFrames: 1}, zap.NewNop()); err == nil {
		t.Error("expected error for fps < 1")
	}
	if _, err := Run(context.Background(), surf, Options{FramesDir: t.TempDir(), FPS: 30, MaxFrames: 0}, zap.NewNop()); err == nil {
		t.Error("expected error for max-frames < 1")
	}
}

func TestWaitForTimeout(t *testing.T) {
	start := time.Now()
	err := waitFor(context.Background(), 30*time.Millisecond, 5*time.Millisecond,
		func(ctx context.Context) (bool, error) { return false, nil })
	if !errors.Is(err, errWaitTimeout) {
		t.Fatalf("expected errWaitTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("waitFor returned after %v, before the timeout", elapsed)
	}
}

func TestWaitForPredicate(t *testing.T) {
	calls := 0
	err := waitFor(context.Background(), time.Second, time.Millisecond,
		func(ctx context.Context) (bool, error) {
			calls++
			return calls >= 3, nil
		})
	if err != nil {
		t.Fatalf("waitFor failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("predicate called %d times, want 3", calls)
	}
}

func TestWaitForCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitFor(ctx, time.Second, time.Millisecond,
		func(ctx context.Context) (bool, error) { return false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
