// Package vision derives a style profile from an uploaded photo. Analyze
// never fails: images without usable signal get the neutral default with a
// lowered confidence marker.
package vision

import (
	"bytes"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/threadline/stylist/internal/session"
)

type palette struct {
	best        []string
	avoid       []string
	personality string
}

var palettes = map[string]palette{
	"warm": {
		best: []string{"coral", "peach", "olive green", "warm red", "golden yellow",
			"terracotta", "cream", "bronze", "rust", "camel"},
		avoid:       []string{"icy blue", "bright pink", "silver", "pure white"},
		personality: "Classic Elegant",
	},
	"cool": {
		best: []string{"royal blue", "emerald green", "purple", "pink", "silver",
			"navy", "lavender", "burgundy", "charcoal", "true red"},
		avoid:       []string{"orange", "golden yellow", "warm brown", "rust"},
		personality: "Modern Minimalist",
	},
	"neutral": {
		best: []string{"jade green", "dusty pink", "teal", "soft white", "taupe",
			"blush", "sage", "medium blue", "mauve", "soft black"},
		avoid:       []string{"neon colors", "very bright shades"},
		personality: "Versatile Classic",
	},
}

const (
	analyzedConfidence = 0.85
	defaultConfidence  = 0.5
)

type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze extracts undertone and color recommendations from image bytes.
// Unusable input degrades to the neutral default.
func (a *Analyzer) Analyze(imageBytes []byte) session.StyleProfile {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		a.logger.Warn("image decode failed, using default profile", "err", err)
		return DefaultProfile()
	}

	r, g, b, ok := sampleCenter(img)
	_ = g
	if !ok {
		a.logger.Warn("no usable skin sample, using default profile")
		return DefaultProfile()
	}

	undertone := classifyUndertone(r, b)
	p := palettes[undertone]
	return session.StyleProfile{
		Undertone:        undertone,
		BestColors:       p.best,
		AvoidColors:      p.avoid,
		StylePersonality: p.personality,
		Confidence:       analyzedConfidence,
	}
}

// DefaultProfile is the degraded result used when no face or color signal is
// found. Palette lists stay non-empty so downstream context assembly always
// has something to recommend.
func DefaultProfile() session.StyleProfile {
	p := palettes["neutral"]
	return session.StyleProfile{
		Undertone:        "neutral",
		BestColors:       p.best,
		AvoidColors:      p.avoid,
		StylePersonality: p.personality,
		Confidence:       defaultConfidence,
	}
}

// sampleCenter averages the middle third of the frame, where a selfie's face
// sits in practice.
func sampleCenter(img image.Image) (r, g, b float64, ok bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0, 0, 0, false
	}

	x0 := bounds.Min.X + w/3
	x1 := bounds.Min.X + 2*w/3
	y0 := bounds.Min.Y + h/3
	y1 := bounds.Min.Y + 2*h/3

	var sr, sg, sb, n float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			sr += float64(cr >> 8)
			sg += float64(cg >> 8)
			sb += float64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0, false
	}
	return sr / n, sg / n, sb / n, true
}

func classifyUndertone(r, b float64) string {
	warmth := (r - b) / 255.0
	switch {
	case warmth > 0.15:
		return "warm"
	case warmth < -0.05:
		return "cool"
	default:
		return "neutral"
	}
}
