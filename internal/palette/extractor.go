// Package palette derives a dark color gradient from track artwork.
package palette

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

const (
	DefaultSampleCount = 6
	DefaultMinColors   = 4
	DefaultThreshold   = 0.6
	DefaultArtworkSize = 300
	// maxEdge bounds the image size fed to the quantizer.
	maxEdge = 64
	// maxImageBytes caps artwork downloads.
	maxImageBytes = 10 << 20
)

// Options configures an [Extractor]. Zero values use the package defaults.
type Options struct {
	SampleCount int
	MinColors   int
	Threshold   float64
	ArtworkSize int
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// Extractor loads artwork and reduces it to a gradient.
type Extractor struct {
	client      *http.Client
	logger      *log.Logger
	sampleCount int
	minColors   int
	threshold   float64
	artworkSize int
}

// NewExtractor creates an extractor.
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		client:      opts.HTTPClient,
		logger:      opts.Logger,
		sampleCount: opts.SampleCount,
		minColors:   opts.MinColors,
		threshold:   opts.Threshold,
		artworkSize: opts.ArtworkSize,
	}

	if e.client == nil {
		e.client = &http.Client{Timeout: 15 * time.Second}
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	if e.sampleCount <= 0 {
		e.sampleCount = DefaultSampleCount
	}
	if e.minColors <= 0 {
		e.minColors = DefaultMinColors
	}
	if e.threshold <= 0 {
		e.threshold = DefaultThreshold
	}
	if e.artworkSize <= 0 {
		e.artworkSize = DefaultArtworkSize
	}
	return e
}

// Load fetches and decodes a JPEG or PNG image. Failures wrap [shared.ErrImageLoad].
func (e *Extractor) Load(ctx context.Context, imageURL string) (image.Image, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("%w: no image url", shared.ErrImageLoad)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImageLoad, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImageLoad, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrImageLoad, imageURL, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", shared.ErrImageLoad, err)
	}
	return img, nil
}

// Extract returns up to sampleCount dominant colors of the image at imageURL, darkest first, with bright
// colors dropped unless too few dark ones remain.
func (e *Extractor) Extract(ctx context.Context, imageURL string, sampleCount int) ([]RGB, error) {
	if sampleCount <= 0 {
		sampleCount = e.sampleCount
	}

	img, err := e.Load(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	colors, err := Quantize(Downscale(img, maxEdge), sampleCount)
	if err != nil {
		return nil, err
	}

	return Darkest(colors, e.threshold, e.minColors), nil
}

// Gradient extracts the gradient for a track's artwork.
func (e *Extractor) Gradient(ctx context.Context, track models.Track) (*Gradient, error) {
	url := track.ArtworkURL(e.artworkSize, e.artworkSize)
	if url == "" {
		return nil, fmt.Errorf("%w: %q has no artwork", shared.ErrImageLoad, track.Name)
	}

	colors, err := e.Extract(ctx, url, e.sampleCount)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("palette extracted", "track", track.Name, "colors", len(colors))
	return NewGradient(colors), nil
}
