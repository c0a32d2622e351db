package types

import (
	"os"
	"path/filepath"
	"testing"
)

// The artifact format is a cross-component contract: compact single-line
// JSON with exactly these keys in this order.
func TestPointCloudWireFormat(t *testing.T) {
	pc := &PointCloud{
		W: 520, H: 260,
		Points: []EdgePoint{
			{X: 12, Y: 7, NX: 0.707, NY: -0.707, Mag: 141},
			{X: 3, Y: 9, NX: 0, NY: 0, Mag: 96},
		},
	}
	raw, err := pc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"w":520,"h":260,"points":[{"x":12,"y":7,"nx":0.707,"ny":-0.707,"mag":141},{"x":3,"y":9,"nx":0,"ny":0,"mag":96}]}`
	if string(raw) != want {
		t.Errorf("artifact format drifted:\n got %s\nwant %s", raw, want)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	pc := &PointCloud{W: 1, H: 1, Points: []EdgePoint{}}
	path := filepath.Join(t.TempDir(), "out", "deep", "precomputed_data.json")
	if err := pc.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"w":1,"h":1,"points":[]}` {
		t.Errorf("unexpected artifact: %s", raw)
	}
}
