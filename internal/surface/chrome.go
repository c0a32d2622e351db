package surface

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeOptions configures the headless-browser surface.
type ChromeOptions struct {
	EffectJS string // path to the generated effect JS
	Width    int
	Height   int
	DPR      float64
	ExecPath string // optional browser binary override
}

// Chrome hosts the effect JS in a headless Chrome tab and exposes it as a
// Surface. The effect script owns the frame counter (__davidEffectFrame),
// the done flag (__davidEffectDone) and the await flag (__davidEffectAwait).
type Chrome struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	workDir     string
	log         *zap.Logger
	closed      bool
}

const shellHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <style>html,body{margin:0;background:transparent;width:%dpx;height:%dpx;overflow:hidden}canvas{display:block;width:%dpx;height:%dpx}</style>
</head>
<body>
  <canvas id="c" width="%d" height="%d"></canvas>
  <script src="%s"></script>
  <script>window.initDavidEffect('c');</script>
</body>
</html>
`

// NewChrome launches a headless browser, loads a shell page around the effect
// JS, and waits for the first navigation to finish. The returned surface must
// be closed by the caller, including on error paths.
func NewChrome(ctx context.Context, opts ChromeOptions, log *zap.Logger) (*Chrome, error) {
	if _, err := os.Stat(opts.EffectJS); err != nil {
		return nil, fmt.Errorf("effect js not readable: %w", err)
	}
	jsAbs, err := filepath.Abs(opts.EffectJS)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "goldendavid-surface-*")
	if err != nil {
		return nil, err
	}
	jsURL := (&url.URL{Scheme: "file", Path: jsAbs}).String()
	shellPath := filepath.Join(workDir, "render.html")
	html := fmt.Sprintf(shellHTML, opts.Width, opts.Height, opts.Width, opts.Height, opts.Width, opts.Height, jsURL)
	if err := os.WriteFile(shellPath, []byte(html), 0o644); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("allow-file-access-from-files", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		workDir:     workDir,
		log:         log,
	}

	// The capture-mode hook must be installed before the effect script runs,
	// and the DPR override has to match the device metrics or the canvas
	// backing store ends up at the wrong resolution.
	initScript := fmt.Sprintf(
		"window.__DAVID_EFFECT_CAPTURE_MODE = true; Object.defineProperty(window, 'devicePixelRatio', { get: () => %g });",
		opts.DPR,
	)
	shellURL := (&url.URL{Scheme: "file", Path: shellPath}).String()

	err = chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), opts.DPR, false),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(initScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(shellURL),
		chromedp.WaitReady("c", chromedp.ByID),
	)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("launch surface: %w", err)
	}

	log.Info("surface ready",
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
		zap.Float64("dpr", opts.DPR),
	)
	return c, nil
}

func (c *Chrome) FrameCount(ctx context.Context) (int64, error) {
	var n int64
	err := c.run(ctx, chromedp.Evaluate(`Number(window.__davidEffectFrame || 0)`, &n))
	return n, err
}

func (c *Chrome) Snapshot(ctx context.Context) (string, error) {
	var payload string
	err := c.run(ctx, chromedp.Evaluate(
		`document.getElementById('c').toDataURL('image/png')`, &payload))
	return payload, err
}

func (c *Chrome) Done(ctx context.Context) (bool, error) {
	var done bool
	err := c.run(ctx, chromedp.Evaluate(`Boolean(window.__davidEffectDone)`, &done))
	return done, err
}

func (c *Chrome) RequestFrame(ctx context.Context) error {
	return c.run(ctx, chromedp.Evaluate(`window.__davidEffectAwait = false; true`, nil))
}

// run executes an action on the tab while still honoring the caller's
// cancellation.
func (c *Chrome) run(ctx context.Context, action chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(c.tabCtx, action)
}

// Close tears down the tab and browser process and removes the shell page.
// Subsequent calls are no-ops, so the stall path can release the surface and
// callers can still defer a Close.
func (c *Chrome) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := chromedp.Cancel(c.tabCtx)
	c.cancelTab()
	c.cancelAlloc()
	if c.workDir != "" {
		os.RemoveAll(c.workDir)
	}
	if err != nil {
		c.log.Warn("surface shutdown", zap.Error(err))
	}
	return err
}
