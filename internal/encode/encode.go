// Package encode turns a captured frame sequence into a WebM artifact via an
// external ffmpeg process, degrading gracefully to the raw frames when no
// encoder is available.
package encode

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/utils"
)

// Options selects the encoding profile.
type Options struct {
	FPS      int
	Lossless bool
	Alpha    bool
}

// Encoder invokes ffmpeg over an ordered frame sequence.
type Encoder struct {
	Binary string // defaults to "ffmpeg"
	Log    *zap.Logger
}

func New(binary string, log *zap.Logger) *Encoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Encoder{Binary: binary, Log: log}
}

// Encode compresses framesDir/frame_%05d.png into outPath. A missing encoder
// binary or a non-zero exit both report (false, nil): the capture still
// succeeded, there is just no video artifact. The frames are never deleted.
func (e *Encoder) Encode(ctx context.Context, framesDir, outPath string, opts Options) (bool, error) {
	if _, err := exec.LookPath(e.Binary); err != nil {
		e.Log.Warn("encoder not found, keeping raw frame sequence",
			zap.String("binary", e.Binary),
		)
		return false, nil
	}

	args := e.buildArgs(framesDir, outPath, opts)
	cmd := utils.NewSafeCommand(ctx, e.Binary, args...)
	if err := cmd.Run(); err != nil {
		// "Crashed" and "not installed" degrade identically; neither is
		// retried.
		e.Log.Warn("encoder failed, keeping raw frame sequence",
			zap.Error(err),
			zap.String("stderr", cmd.Stderr.String()),
		)
		return false, nil
	}

	e.Log.Info("video encoded",
		zap.String("path", outPath),
		zap.Bool("lossless", opts.Lossless),
		zap.Bool("alpha", opts.Alpha),
	)
	return true, nil
}

func (e *Encoder) buildArgs(framesDir, outPath string, opts Options) []string {
	inPattern := filepath.Join(framesDir, "frame_%05d.png")
	args := []string{"-y", "-framerate", strconv.Itoa(opts.FPS), "-i", inPattern}

	pixFmt := "yuv444p"
	if opts.Alpha {
		pixFmt = "yuva420p"
	}
	if opts.Lossless {
		args = append(args, "-c:v", "libvpx-vp9", "-lossless", "1", "-pix_fmt", pixFmt)
	} else {
		args = append(args, "-c:v", "libvpx-vp9", "-b:v", "0", "-crf", "18", "-row-mt", "1", "-pix_fmt", pixFmt)
	}
	if opts.Alpha {
		// Alt-ref frames corrupt the alpha channel in libvpx; disable them
		// and tag the stream so players pick the alpha path.
		args = append(args, "-metadata:s:v:0", "alpha_mode=1", "-auto-alt-ref", "0")
	}
	return append(args, outPath)
}

const embedHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>goldendavid embed</title>
  <style>html,body{height:100%%;margin:0;background:#000}body{display:flex;align-items:center;justify-content:center}video{display:block;max-width:100vw;max-height:100vh;width:auto;height:auto}</style>
</head>
<body>
  <video autoplay loop muted playsinline src="data:video/webm;base64,%s"></video>
</body>
</html>
`

// WriteEmbedHTML produces a standalone document with the encoded video
// inlined as base64, for environments that cannot host a separate video file.
func WriteEmbedHTML(videoPath, htmlPath string) error {
	video, err := os.ReadFile(videoPath)
	if err != nil {
		return fmt.Errorf("read video artifact: %w", err)
	}
	doc := fmt.Sprintf(embedHTML, base64.StdEncoding.EncodeToString(video))
	return os.WriteFile(htmlPath, []byte(doc), 0o644)
}
