package roboflow

import (
	"errors"
	"fmt"

	"github.com/JulienRioux/slabbers/internal/model"
)

var (
	ErrNoDetection = errors.New("no card-like region detected, try a clearer photo or background")
	ErrBoxTooSmall = errors.New("detected box too small after clamping")
)

const (
	paddingRatio = 0.02
	minBoxSide   = 5
)

// LargestBox decodes predictions against an image of the given size and
// returns the positive box with the largest area.
func LargestBox(predictions []any, imageWidth, imageHeight int) (model.BoundingBox, error) {
	var best model.BoundingBox
	bestArea := 0
	for _, pred := range predictions {
		b, ok := decodeBox(pred)
		if !ok {
			continue
		}
		px := b.pixels(imageWidth, imageHeight)
		if px.Width <= 0 || px.Height <= 0 {
			continue
		}
		if area := px.Width * px.Height; area > bestArea {
			best, bestArea = px, area
		}
	}
	if bestArea == 0 {
		return model.BoundingBox{}, ErrNoDetection
	}
	return best, nil
}

// PadAndClamp grows b by 2% of its larger side on every edge and clips it to
// the image.
func PadAndClamp(b model.BoundingBox, imageWidth, imageHeight int) (model.BoundingBox, error) {
	pad := round(paddingRatio * float64(max(b.Width, b.Height)))
	x, y := b.X-pad, b.Y-pad
	w, h := b.Width+2*pad, b.Height+2*pad

	x = max(0, x)
	y = max(0, y)
	w = min(imageWidth-x, w)
	h = min(imageHeight-y, h)

	if w <= minBoxSide || h <= minBoxSide {
		return model.BoundingBox{}, fmt.Errorf("%w: %dx%d", ErrBoxTooSmall, w, h)
	}
	return model.BoundingBox{X: x, Y: y, Width: w, Height: h}, nil
}
