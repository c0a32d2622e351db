package genjs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/types"
)

const template = `// helper code that must be dropped
const scratch = 1;
window.initDavidEffect = function(id) { /* ... */ };
})();
`

func testCloud() *types.PointCloud {
	return &types.PointCloud{
		W: 4, H: 3,
		Points: []types.EdgePoint{{X: 1, Y: 1, NX: 0.707, NY: -0.707, Mag: 120}},
	}
}

func TestSplice(t *testing.T) {
	out, err := Splice(template, testCloud())
	if err != nil {
		t.Fatalf("Splice failed: %v", err)
	}
	if !strings.HasPrefix(out, "(function() {\nconst PRECOMPUTED_DATA = {\"w\":4,\"h\":3,") {
		t.Errorf("unexpected prelude: %q", out[:60])
	}
	if strings.Contains(out, "scratch") {
		t.Error("content before the anchor must be dropped")
	}
	if !strings.Contains(out, "window.initDavidEffect = function(id)") {
		t.Error("anchor and everything after it must be preserved")
	}
}

func TestSpliceMissingAnchor(t *testing.T) {
	if _, err := Splice("const nothing = here;", testCloud()); err == nil {
		t.Error("expected error for a template without the anchor")
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "david_effect.js")
	if err := os.WriteFile(tplPath, []byte(template), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "nested", "david_effect_generated.js")
	if err := Generate(tplPath, outPath, testCloud()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"mag":120`) {
		t.Error("generated JS missing the injected point data")
	}
}

func TestGenerateMissingTemplate(t *testing.T) {
	err := Generate(filepath.Join(t.TempDir(), "absent.js"), filepath.Join(t.TempDir(), "out.js"), testCloud())
	if err == nil {
		t.Error("expected error for a missing template")
	}
}
