package roboflow

import (
	"math"
	"strconv"
	"strings"

	"github.com/JulienRioux/slabbers/internal/model"
)

// box is one detection in the coordinate shape the model happened to emit.
// Coordinates are normalized (0..1) when width and height are both at most 1.
type box interface {
	pixels(imageWidth, imageHeight int) model.BoundingBox
}

// edgeBox is given by its four edges: left/top/right/bottom,
// xmin/ymin/xmax/ymax, x1/y1/x2/y2 or x0/y0.
type edgeBox struct {
	left, top, right, bottom float64
	normalized               bool
}

// centerBox is given by its center point and size.
type centerBox struct {
	x, y, width, height float64
	normalized          bool
}

func (b edgeBox) pixels(w, h int) model.BoundingBox {
	sx, sy := scale(b.normalized, w, h)
	left, top := b.left*sx, b.top*sy
	return model.BoundingBox{
		X:      round(left),
		Y:      round(top),
		Width:  round(b.right*sx - left),
		Height: round(b.bottom*sy - top),
	}
}

func (b centerBox) pixels(w, h int) model.BoundingBox {
	sx, sy := scale(b.normalized, w, h)
	width, height := b.width*sx, b.height*sy
	return model.BoundingBox{
		X:      round(b.x*sx - width/2),
		Y:      round(b.y*sy - height/2),
		Width:  round(width),
		Height: round(height),
	}
}

func scale(normalized bool, w, h int) (float64, float64) {
	if normalized {
		return float64(w), float64(h)
	}
	return 1, 1
}

// round rounds half up, so -2.5 becomes -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// decodeBox reads a prediction object. A nested "bbox" object takes the place
// of the prediction itself. Edge shapes win over the center shape.
func decodeBox(pred any) (box, bool) {
	obj, ok := pred.(map[string]any)
	if !ok {
		return nil, false
	}
	if nested, ok := obj["bbox"].(map[string]any); ok {
		obj = nested
	}

	width, hasW := firstNumber(obj, "width")
	height, hasH := firstNumber(obj, "height")
	normalized := hasW && hasH && width <= 1 && height <= 1

	left, okL := firstNumber(obj, "left", "xmin", "x1", "x0")
	top, okT := firstNumber(obj, "top", "ymin", "y1", "y0")
	right, okR := firstNumber(obj, "right", "xmax", "x2")
	bottom, okB := firstNumber(obj, "bottom", "ymax", "y2")
	if okL && okT && okR && okB {
		return edgeBox{left: left, top: top, right: right, bottom: bottom, normalized: normalized}, true
	}

	x, okX := firstNumber(obj, "x")
	y, okY := firstNumber(obj, "y")
	if okX && okY && hasW && hasH {
		return centerBox{x: x, y: y, width: width, height: height, normalized: normalized}, true
	}
	return nil, false
}

// firstNumber returns the first key of obj holding a finite number or a
// numeric string.
func firstNumber(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if n, ok := toNumber(obj[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// collectPredictions gathers the elements of every "predictions" array found
// anywhere in a decoded workflow response.
func collectPredictions(result any) []any {
	var out []any
	stack := []any{result}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := current.(type) {
		case []any:
			stack = append(stack, v...)
		case map[string]any:
			if preds, ok := v["predictions"].([]any); ok {
				out = append(out, preds...)
			}
			for _, child := range v {
				switch child.(type) {
				case []any, map[string]any:
					stack = append(stack, child)
				}
			}
		}
	}
	return out
}
