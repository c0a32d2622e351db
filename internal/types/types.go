package types

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// EdgePoint is a single oriented edge sample: pixel location, unit gradient
// direction rounded to 3 decimals, and a coarse integer magnitude.
type EdgePoint struct {
	X   int     `json:"x"`
	Y   int     `json:"y"`
	NX  float64 `json:"nx"`
	NY  float64 `json:"ny"`
	Mag int     `json:"mag"`
}

// PointCloud is the interchange artifact between extraction and the rendering
// surface. W and H are the extractor's (possibly downscaled) dimensions.
type PointCloud struct {
	W      int         `json:"w"`
	H      int         `json:"h"`
	Points []EdgePoint `json:"points"`
}

// Marshal renders the artifact as compact single-line JSON.
func (pc *PointCloud) Marshal() ([]byte, error) {
	return json.Marshal(pc)
}

// WriteFile persists the artifact, creating parent directories as needed.
func (pc *PointCloud) WriteFile(path string) error {
	data, err := pc.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
