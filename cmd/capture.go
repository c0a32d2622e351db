package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/capture"
	"github.com/Noetix-AI-platform/GoldenDavid/internal/encode"
	"github.com/Noetix-AI-platform/GoldenDavid/internal/surface"
	"github.com/Noetix-AI-platform/GoldenDavid/internal/utils"
)

// renderOptions is shared between `capture` and `extract --render`.
type renderOptions struct {
	Width     int
	Height    int
	FPS       int
	MaxFrames int
	DPR       float64
	Lossless  bool
	Alpha     bool
}

var (
	renderOpts    renderOptions
	captureJS     string
	captureOutDir string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the animated rendering surface into frames and a WebM artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := validateCaptureFlags(); err != nil {
			return err
		}
		return runCaptureSession(cmd.Context(), captureJS, captureOutDir)
	},
}

func init() {
	captureCmd.Flags().StringVar(&captureJS, "js", "david_effect_generated.js", "Generated effect JS to render")
	captureCmd.Flags().StringVarP(&captureOutDir, "out", "o", "out_david_effect", "Output directory")
	addRenderFlags(captureCmd)
	rootCmd.AddCommand(captureCmd)
}

// addRenderFlags registers the surface/encoder flags on a command.
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&renderOpts.Width, "width", 800, "Surface width in CSS pixels")
	cmd.Flags().IntVar(&renderOpts.Height, "height", 800, "Surface height in CSS pixels")
	cmd.Flags().IntVar(&renderOpts.FPS, "fps", 30, "Target capture and encode frame rate")
	cmd.Flags().IntVar(&renderOpts.MaxFrames, "max-frames", 600, "Frame budget for one capture session")
	cmd.Flags().Float64Var(&renderOpts.DPR, "dpr", 2.0, "Device pixel ratio of the surface")
	cmd.Flags().BoolVar(&renderOpts.Lossless, "lossless", false, "Lossless VP9 profile")
	cmd.Flags().BoolVar(&renderOpts.Alpha, "alpha", false, "Preserve the alpha channel")
}

func validateCaptureFlags() error {
	info, err := os.Stat(captureJS)
	if err != nil {
		if os.IsNotExist(err) {
			utils.ShowError("Effect JS does not exist (run extract first)", err, nil)
			return err
		}
		utils.ShowError("Unable to access effect JS", err, nil)
		return err
	}
	if info.IsDir() {
		err := fmt.Errorf("is a directory")
		utils.ShowError("Effect JS path is a directory", err, nil)
		return err
	}
	return validateRenderFlags(&renderOpts)
}

func validateRenderFlags(opts *renderOptions) error {
	if opts.Width < 1 || opts.Height < 1 {
		err := fmt.Errorf("got %dx%d", opts.Width, opts.Height)
		utils.ShowError("Invalid surface dimensions", err, nil)
		return err
	}
	if opts.FPS < 1 {
		err := fmt.Errorf("must be >= 1, got %d", opts.FPS)
		utils.ShowError("Invalid fps", err, nil)
		return err
	}
	if opts.MaxFrames < 1 {
		err := fmt.Errorf("must be >= 1, got %d", opts.MaxFrames)
		utils.ShowError("Invalid max-frames", err, nil)
		return err
	}
	if opts.DPR <= 0 {
		err := fmt.Errorf("must be > 0, got %g", opts.DPR)
		utils.ShowError("Invalid dpr", err, nil)
		return err
	}
	return nil
}

// runCaptureSession hosts the surface, runs the frame-acquisition loop, then
// encodes. Encoder absence is a successful outcome with raw frames only.
func runCaptureSession(ctx context.Context, jsPath, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		utils.ShowError("Failed to create output directory", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🚀 Launching rendering surface...")
	surf, err := surface.NewChrome(ctx, surface.ChromeOptions{
		EffectJS: jsPath,
		Width:    renderOpts.Width,
		Height:   renderOpts.Height,
		DPR:      renderOpts.DPR,
		ExecPath: Cfg.ChromeBin,
	}, Log)
	if err != nil {
		utils.ShowError("Failed to launch rendering surface", err, nil)
		return err
	}
	defer surf.Close(context.Background())

	framesDir := filepath.Join(outDir, "frames")
	res, err := capture.Run(ctx, surf, capture.Options{
		FramesDir:      framesDir,
		FPS:            renderOpts.FPS,
		MaxFrames:      renderOpts.MaxFrames,
		ProgressWriter: os.Stderr,
	}, Log)
	if err != nil {
		recordCapture(ctx, jsPath, 0, captureStatus(err), "", "")
		utils.ShowError("Capture session failed", err, nil)
		return err
	}

	videoPath := filepath.Join(outDir, "david_effect.webm")
	embedPath := ""
	status := "raw_only"

	enc := encode.New(Cfg.FFmpegBin, Log)
	ok, err := enc.Encode(ctx, framesDir, videoPath, encode.Options{
		FPS:      renderOpts.FPS,
		Lossless: renderOpts.Lossless,
		Alpha:    renderOpts.Alpha,
	})
	if err != nil {
		utils.ShowError("Encoder invocation failed", err, nil)
		return err
	}
	if ok {
		status = "encoded"
		embedPath = filepath.Join(outDir, "david_effect_embed.html")
		if err := encode.WriteEmbedHTML(videoPath, embedPath); err != nil {
			utils.ShowError("Failed to write embed document", err, nil)
			return err
		}
	} else {
		videoPath = ""
	}

	recordCapture(ctx, jsPath, res.FrameCount, status, videoPath, embedPath)

	fmt.Fprintf(os.Stderr, "\n🎞️  Frames: %s (%d)\n", framesDir, res.FrameCount)
	if status == "encoded" {
		fmt.Fprintf(os.Stderr, "📦 WebM:   %s\n", videoPath)
		fmt.Fprintf(os.Stderr, "🌐 Embed:  %s\n", embedPath)
	} else {
		fmt.Fprintln(os.Stderr, "⚠️  No encoder available: kept the raw frame sequence. Install ffmpeg and re-run for a WebM.")
	}
	return nil
}

func captureStatus(err error) string {
	if errors.Is(err, capture.ErrStalled) {
		return "stalled"
	}
	return "failed"
}

// recordCapture writes to the run registry when it is configured; registry
// problems are reported but never fail the session.
func recordCapture(ctx context.Context, jsPath string, frames int, status, videoPath, embedPath string) {
	if DB == nil {
		return
	}
	if _, err := DB.RecordCapture(ctx, jsPath, frames, renderOpts.FPS, status, videoPath, embedPath); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to record capture session: %v\n", err)
	}
}
