// Package surface abstracts the externally-owned rendering surface the
// capture pipeline polls: a frame counter, an on-demand raster snapshot in a
// text transport, a completion flag, and a cooperative render-request signal.
package surface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Surface is the pollable rendering collaborator. Implementations run in
// their own execution context (a headless browser, a native renderer, a test
// fake); the capture loop never assumes anything about their internals beyond
// these signals.
type Surface interface {
	// FrameCount reports the surface-owned monotonic frame counter. It
	// increases only when a new frame has actually been rendered.
	FrameCount(ctx context.Context) (int64, error)
	// Snapshot returns the current raster as a text-encoded payload
	// (a data URL). Decode with DecodeSnapshot.
	Snapshot(ctx context.Context) (string, error)
	// Done reports whether the animation has signalled completion.
	Done(ctx context.Context) (bool, error)
	// RequestFrame clears the surface's await flag, granting it permission
	// to advance to the next frame.
	RequestFrame(ctx context.Context) error
	Close(ctx context.Context) error
}

// ErrBadSnapshot marks a malformed snapshot payload. This is an integrity
// failure and aborts the session; it is never retried.
var ErrBadSnapshot = errors.New("malformed snapshot payload")

// DecodeSnapshot extracts the binary image from a data-URL payload. Anything
// without the comma delimiter or with an undecodable body is rejected as
// ErrBadSnapshot.
func DecodeSnapshot(payload string) ([]byte, error) {
	idx := strings.IndexByte(payload, ',')
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing data URL delimiter", ErrBadSnapshot)
	}
	raw, err := base64.StdEncoding.DecodeString(payload[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image body", ErrBadSnapshot)
	}
	return raw, nil
}
