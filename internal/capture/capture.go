// Package capture drives a rendering surface through a frame-synchronized
// capture session: request a frame, wait for the surface-owned counter to
// advance, persist the snapshot, repeat until the frame budget is spent or
// the surface reports completion.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/surface"
)

// ErrStalled marks a surface that stopped producing frames within the stall
// timeout. It is fatal: skipping frames silently would desynchronize the
// captured sequence from the logical animation rate.
var ErrStalled = errors.New("rendering surface stalled")

// errWaitTimeout is the internal waitFor timeout, mapped to ErrStalled by the
// session loop after the surface has been released.
var errWaitTimeout = errors.New("wait timeout")

const (
	// DefaultStallTimeout bounds how long a single frame may take to appear.
	DefaultStallTimeout = 5 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

// Options configures one capture session.
type Options struct {
	FramesDir string
	FPS       int
	MaxFrames int

	// StallTimeout and PollInterval default to DefaultStallTimeout and 25ms.
	// They are injectable so the STALLED transition is reproducible in tests.
	StallTimeout time.Duration
	PollInterval time.Duration

	// ProgressWriter receives the progress bar; nil discards it.
	ProgressWriter io.Writer
}

// Result describes a completed session. Frames are left on disk for the
// encoder (and are retained even when a later stage fails).
type Result struct {
	FramesDir  string
	FrameCount int
}

// session states
type state int

const (
	stateIdle state = iota
	stateCapturing
	stateStalled
	stateComplete
)

// Run executes a capture session against surf. On a stall it closes the
// surface before propagating ErrStalled; on any fatal error the frames
// persisted so far stay on disk. Run never retries.
func Run(ctx context.Context, surf surface.Surface, opts Options, log *zap.Logger) (*Result, error) {
	if opts.FPS < 1 {
		return nil, fmt.Errorf("fps must be >= 1, got %d", opts.FPS)
	}
	if opts.MaxFrames < 1 {
		return nil, fmt.Errorf("max-frames must be >= 1, got %d", opts.MaxFrames)
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = DefaultStallTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if err := os.MkdirAll(opts.FramesDir, 0o755); err != nil {
		return nil, err
	}

	progressOut := opts.ProgressWriter
	if progressOut == nil {
		progressOut = io.Discard
	}
	bar := progressbar.NewOptions(opts.MaxFrames,
		progressbar.OptionSetDescription("🎬 Capturing"),
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionShowCount(),
	)

	st := stateIdle
	lastSeen, err := surf.FrameCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("read initial frame counter: %w", err)
	}

	interval := time.Second / time.Duration(opts.FPS)
	frameIndex := 0
	st = stateCapturing

	for frameIndex < opts.MaxFrames && st == stateCapturing {
		// Cooperative signal: permission for the surface to advance, not a
		// guarantee that it will.
		if err := surf.RequestFrame(ctx); err != nil {
			return nil, fmt.Errorf("request frame: %w", err)
		}

		err := waitFor(ctx, opts.StallTimeout, opts.PollInterval, func(ctx context.Context) (bool, error) {
			n, err := surf.FrameCount(ctx)
			if err != nil {
				return false, err
			}
			if n > lastSeen {
				lastSeen = n
				return true, nil
			}
			return false, nil
		})
		if errors.Is(err, errWaitTimeout) {
			st = stateStalled
			log.Error("surface stalled, aborting session",
				zap.Int("frames_captured", frameIndex),
				zap.Duration("timeout", opts.StallTimeout),
			)
			// Release the hosted surface before propagating the fatal error.
			surf.Close(ctx)
			return nil, fmt.Errorf("%w after %s at frame %d", ErrStalled, opts.StallTimeout, frameIndex)
		}
		if err != nil {
			return nil, err
		}

		payload, err := surf.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		raw, err := surface.DecodeSnapshot(payload)
		if err != nil {
			return nil, err
		}

		// Zero-padded names keep lexicographic order equal to capture order;
		// the encoder consumes the sequence by filename pattern.
		framePath := filepath.Join(opts.FramesDir, fmt.Sprintf("frame_%05d.png", frameIndex))
		if err := os.WriteFile(framePath, raw, 0o644); err != nil {
			return nil, fmt.Errorf("persist frame %d: %w", frameIndex, err)
		}
		frameIndex++
		bar.Add(1)

		done, err := surf.Done(ctx)
		if err != nil {
			return nil, fmt.Errorf("read done flag: %w", err)
		}
		if done {
			// The frame that carried the completion signal is kept.
			st = stateComplete
			break
		}

		// Best-effort pacing, not hard real-time.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	if st == stateCapturing {
		st = stateComplete
	}
	bar.Finish()

	log.Info("capture complete",
		zap.Int("frames", frameIndex),
		zap.String("dir", opts.FramesDir),
	)
	return &Result{FramesDir: opts.FramesDir, FrameCount: frameIndex}, nil
}

// waitFor polls pred every interval until it reports true, the timeout
// elapses (errWaitTimeout), or ctx is cancelled. It is the session's only
// blocking primitive.
func waitFor(ctx context.Context, timeout, interval time.Duration, pred func(context.Context) (bool, error)) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		ok, err := pred(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errWaitTimeout
		case <-tick.C:
		}
	}
}
