package palette

import (
	"cmp"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/fogleman/gg"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// colorObservation wraps a distinct color and its pixel count to implement clusters.Observation.
type colorObservation struct {
	coords clusters.Coordinates
	count  int
}

func (o colorObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o colorObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

type swatch struct {
	color      RGB
	population int
}

// Quantize reduces img to at most k dominant colors ordered by population, largest first.
//
// Images with no more than k distinct opaque colors return those colors exactly; otherwise the distinct
// colors are partitioned with k-means, each cluster reporting its center and the pixel count of its members.
func Quantize(img image.Image, k int) ([]RGB, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", shared.ErrInvalidArgument, k)
	}

	counts := make(map[RGB]int)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a < 0x8000 {
				continue
			}
			c := RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
			counts[c]++
		}
	}

	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: image has no opaque pixels", shared.ErrImageLoad)
	}

	var swatches []swatch
	if len(counts) <= k {
		for c, n := range counts {
			swatches = append(swatches, swatch{color: c, population: n})
		}
	} else {
		var obs clusters.Observations
		for c, n := range counts {
			obs = append(obs, colorObservation{coords: clusters.Coordinates{float64(c.R), float64(c.G), float64(c.B)}, count: n})
		}

		result, err := kmeans.New().Partition(obs, k)
		if err != nil {
			return nil, fmt.Errorf("failed to cluster colors: %w", err)
		}
		for _, cluster := range result {
			population := 0
			for _, o := range cluster.Observations {
				population += o.(colorObservation).count
			}
			if population == 0 {
				continue
			}
			swatches = append(swatches, swatch{color: centerColor(cluster.Center), population: population})
		}
	}

	slices.SortFunc(swatches, func(a, b swatch) int {
		return cmp.Or(
			cmp.Compare(b.population, a.population),
			cmp.Compare(a.color.Hex(), b.color.Hex()),
		)
	})

	colors := make([]RGB, len(swatches))
	for i, s := range swatches {
		colors[i] = s.color
	}
	return colors, nil
}

func centerColor(c clusters.Coordinates) RGB {
	channel := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return RGB{R: channel(c[0]), G: channel(c[1]), B: channel(c[2])}
}

// Downscale shrinks img so its longer edge is at most maxEdge pixels. Smaller images are returned as is.
func Downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}

	scale := float64(maxEdge) / float64(max(w, h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	dc := gg.NewContext(nw, nh)
	dc.Scale(float64(nw)/float64(w), float64(nh)/float64(h))
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	return dc.Image()
}
