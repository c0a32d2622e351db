package edge

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/types"
)

// Options controls one extraction pass. Seed, when set, makes the point-budget
// subsample reproducible; nil yields a time-seeded (non-deterministic) cap.
type Options struct {
	MaxDim     int     // longest output dimension after downscale
	Threshold  float64 // minimum gradient magnitude to keep a point
	SampleRate int     // grid stride in both axes
	MaxPoints  int     // hard cap on emitted points
	Seed       *int64
}

// areaKernel is a box filter. With x/image kernel scaling it averages all
// source pixels under each destination pixel, which avoids the aliasing
// artifacts that bilinear/nearest minification introduces into the gradient
// field.
var areaKernel = &xdraw.Kernel{
	Support: 0.5,
	At: func(t float64) float64 {
		if t < -0.5 || t > 0.5 {
			return 0
		}
		return 1
	},
}

// Extract converts a raster image into a bounded set of oriented edge points.
// It is a pure function of its arguments: no global state is touched, and two
// calls with the same image and options (including Seed) produce identical
// artifacts.
func Extract(img image.Image, opts Options) (*types.PointCloud, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image %dx%d", w, h)
	}

	// Downscale so the longer dimension fits MaxDim. Never upscale.
	scale := math.Min(math.Min(float64(opts.MaxDim)/float64(w), float64(opts.MaxDim)/float64(h)), 1.0)
	if scale < 1.0 {
		nw := int(math.Round(float64(w) * scale))
		nh := int(math.Round(float64(h) * scale))
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		areaKernel.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
		b = dst.Bounds()
		w, h = nw, nh
	}

	lum := grayscale(img)
	gradX, gradY := sobel(lum, w, h)

	// Interior grid scan. The 1-pixel border is excluded so the 3x3 stencil
	// stays inside the image.
	// Always an array in the artifact, even when nothing qualifies.
	points := []types.EdgePoint{}
	for y := 1; y < h-1; y += opts.SampleRate {
		for x := 1; x < w-1; x += opts.SampleRate {
			gx := gradX[y*w+x]
			gy := gradY[y*w+x]
			m := math.Hypot(gx, gy)
			if m <= opts.Threshold {
				continue
			}
			inv := 0.0
			if m > 0 {
				inv = 1.0 / m
			}
			points = append(points, types.EdgePoint{
				X:  x,
				Y:  y,
				NX: round3(gx * inv),
				NY: round3(gy * inv),
				// Coarse magnitude on purpose: downstream rendering only
				// needs relative intensity. Truncation, not rounding.
				Mag: int(m),
			})
		}
	}

	// Budget cap: uniform seeded shuffle, no magnitude weighting, so the
	// surviving points keep the same spatial distribution as the candidates.
	if len(points) > opts.MaxPoints {
		src := rand.NewSource(time.Now().UnixNano())
		if opts.Seed != nil {
			src = rand.NewSource(*opts.Seed)
		}
		rng := rand.New(src)
		rng.Shuffle(len(points), func(i, j int) {
			points[i], points[j] = points[j], points[i]
		})
		points = points[:opts.MaxPoints]
	}

	return &types.PointCloud{W: w, H: h, Points: points}, nil
}

func (o Options) validate() error {
	if o.MaxDim < 1 {
		return fmt.Errorf("max-dim must be >= 1, got %d", o.MaxDim)
	}
	if o.SampleRate < 1 {
		return fmt.Errorf("sample-rate must be >= 1, got %d", o.SampleRate)
	}
	if o.MaxPoints < 1 {
		return fmt.Errorf("max-points must be >= 1, got %d", o.MaxPoints)
	}
	return nil
}

// grayscale flattens the image to BT.601 luma in [0,255].
func grayscale(img image.Image) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]float64, w*h)

	if rgba, ok := img.(*image.RGBA); ok {
		// Fast path over the raw pixel buffer, same access pattern as the
		// redaction loops.
		for y := 0; y < h; y++ {
			row := rgba.Pix[y*rgba.Stride:]
			for x := 0; x < w; x++ {
				off := x * 4
				r := float64(row[off])
				g := float64(row[off+1])
				bl := float64(row[off+2])
				lum[y*w+x] = 0.299*r + 0.587*g + 0.114*bl
			}
		}
		return lum
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}
	return lum
}

// sobel computes 3x3 horizontal and vertical first derivatives at float
// precision. Border pixels are left at zero; callers never sample them.
func sobel(lum []float64, w, h int) (gradX, gradY []float64) {
	gradX = make([]float64, w*h)
	gradY = make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			tl := lum[(y-1)*w+x-1]
			tc := lum[(y-1)*w+x]
			tr := lum[(y-1)*w+x+1]
			ml := lum[y*w+x-1]
			mr := lum[y*w+x+1]
			bl := lum[(y+1)*w+x-1]
			bc := lum[(y+1)*w+x]
			br := lum[(y+1)*w+x+1]

			gradX[y*w+x] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gradY[y*w+x] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gradX, gradY
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
