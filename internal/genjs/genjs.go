// Package genjs splices a precomputed point cloud into the effect JS
// template consumed by the rendering surface.
package genjs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/types"
)

// Anchor is where the template's public entry point starts. Everything before
// it is discarded and replaced by the data prelude.
const Anchor = "window.initDavidEffect"

// Generate reads the template, injects the artifact as PRECOMPUTED_DATA ahead
// of the anchor, and writes the result to outPath.
func Generate(templatePath, outPath string, pc *types.PointCloud) error {
	src, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	out, err := Splice(string(src), pc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte(out), 0o644)
}

// Splice produces the generated JS body from template source.
func Splice(src string, pc *types.PointCloud) (string, error) {
	idx := strings.Index(src, Anchor)
	if idx < 0 {
		return "", fmt.Errorf("template js missing anchor %q", Anchor)
	}
	data, err := pc.Marshal()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("(function() {\nconst PRECOMPUTED_DATA = ")
	b.Write(data)
	b.WriteString(";\n\n")
	b.WriteString(src[idx:])
	return b.String(), nil
}
