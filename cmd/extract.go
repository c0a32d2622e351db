package cmd

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/edge"
	"github.com/Noetix-AI-platform/GoldenDavid/internal/genjs"
	"github.com/Noetix-AI-platform/GoldenDavid/internal/utils"
)

type extractOptions struct {
	ImagePath  string
	OutDir     string
	MaxDim     int
	Threshold  float64
	SampleRate int
	MaxPoints  int
	Seed       int64
	Unseeded   bool
	TemplateJS string
	OutJS      string
	OutJSON    string
	Render     bool
}

var extractOpts extractOptions

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract oriented edge points from an image into a point-cloud artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runExtract(cmd.Context(), extractOpts)
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOpts.ImagePath, "img", "i", "", "Path to input image")
	extractCmd.Flags().StringVarP(&extractOpts.OutDir, "out", "o", "out_effect", "Output directory")
	extractCmd.Flags().IntVar(&extractOpts.MaxDim, "max-dim", 520, "Longest output dimension after downscale")
	extractCmd.Flags().Float64VarP(&extractOpts.Threshold, "threshold", "t", 95, "Minimum gradient magnitude to keep a point")
	extractCmd.Flags().IntVar(&extractOpts.SampleRate, "sample-rate", 2, "Grid stride in both axes")
	extractCmd.Flags().IntVar(&extractOpts.MaxPoints, "max-points", 50000, "Hard cap on emitted points")
	extractCmd.Flags().Int64Var(&extractOpts.Seed, "seed", 123, "Seed for reproducible point-budget subsampling")
	extractCmd.Flags().BoolVar(&extractOpts.Unseeded, "unseeded", false, "Disable deterministic subsampling")
	extractCmd.Flags().StringVar(&extractOpts.TemplateJS, "template-js", "david_effect.js", "Effect JS template")
	extractCmd.Flags().StringVar(&extractOpts.OutJS, "out-js", "david_effect_generated.js", "Generated effect JS filename")
	extractCmd.Flags().StringVar(&extractOpts.OutJSON, "out-json", "precomputed_data.json", "Point-cloud artifact filename")
	extractCmd.Flags().BoolVar(&extractOpts.Render, "render", false, "Chain straight into the capture pipeline")
	addRenderFlags(extractCmd)

	extractCmd.MarkFlagRequired("img")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(ctx context.Context, opts extractOptions) error {
	if err := validateExtractFlags(&opts); err != nil {
		return err
	}

	f, err := os.Open(opts.ImagePath)
	if err != nil {
		utils.ShowError("Failed to open input image", err, nil)
		return err
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		utils.ShowError("Failed to decode input image", err, nil)
		return err
	}

	var seed *int64
	if !opts.Unseeded {
		seed = &opts.Seed
	}
	pc, err := edge.Extract(img, edge.Options{
		MaxDim:     opts.MaxDim,
		Threshold:  opts.Threshold,
		SampleRate: opts.SampleRate,
		MaxPoints:  opts.MaxPoints,
		Seed:       seed,
	})
	if err != nil {
		utils.ShowError("Extraction failed", err, nil)
		return err
	}

	jsonPath := filepath.Join(opts.OutDir, opts.OutJSON)
	if err := pc.WriteFile(jsonPath); err != nil {
		utils.ShowError("Failed to write point-cloud artifact", err, nil)
		return err
	}

	jsPath := filepath.Join(opts.OutDir, opts.OutJS)
	if err := genjs.Generate(opts.TemplateJS, jsPath, pc); err != nil {
		utils.ShowError("Failed to generate effect JS", err, nil)
		return err
	}

	if DB != nil {
		if _, err := DB.RecordExtraction(ctx, opts.ImagePath, pc.W, pc.H, len(pc.Points),
			opts.Threshold, opts.SampleRate, seed, jsonPath); err != nil {
			utils.ShowError("Failed to record extraction run", err, nil)
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "🧮 Extracted %d edge points (%dx%d)\n", len(pc.Points), pc.W, pc.H)
	fmt.Fprintf(os.Stderr, "📄 Point cloud: %s\n", jsonPath)
	fmt.Fprintf(os.Stderr, "📜 Effect JS:   %s\n", jsPath)

	if opts.Render {
		return runCaptureSession(ctx, jsPath, opts.OutDir)
	}
	return nil
}

// validateExtractFlags ensures all CLI arguments are valid before decoding
// anything.
func validateExtractFlags(opts *extractOptions) error {
	info, err := os.Stat(opts.ImagePath)
	if err != nil {
		if os.IsNotExist(err) {
			utils.ShowError("Input image does not exist", err, nil)
			return err
		}
		utils.ShowError("Unable to access input image", err, nil)
		return err
	}
	if info.IsDir() {
		err := fmt.Errorf("is a directory")
		utils.ShowError("Input path is a directory, expected an image file", err, nil)
		return err
	}
	if opts.MaxDim < 1 {
		err := fmt.Errorf("must be >= 1, got %d", opts.MaxDim)
		utils.ShowError("Invalid max-dim", err, nil)
		return err
	}
	if opts.SampleRate < 1 {
		err := fmt.Errorf("must be >= 1, got %d", opts.SampleRate)
		utils.ShowError("Invalid sample-rate", err, nil)
		return err
	}
	if opts.MaxPoints < 1 {
		err := fmt.Errorf("must be >= 1, got %d", opts.MaxPoints)
		utils.ShowError("Invalid max-points", err, nil)
		return err
	}
	if opts.Render {
		return validateRenderFlags(&renderOpts)
	}
	return nil
}
