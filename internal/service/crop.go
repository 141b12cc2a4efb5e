package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/roboflow"
)

var (
	ErrDetectorUnavailable = errors.New("card detection is not configured")
	ErrInvalidImage        = errors.New("image must be a JPEG or PNG")
)

const jpegQuality = 92

type CardDetector interface {
	Predictions(ctx context.Context, jpeg []byte) ([]any, error)
}

type CropService struct {
	detector CardDetector
}

func NewCropService(detector CardDetector) *CropService {
	return &CropService{detector: detector}
}

// Crop finds the card in a photo and returns it cut out as a JPEG, together
// with its box in the original image.
func (s *CropService) Crop(ctx context.Context, data []byte) (*model.CropResult, error) {
	if s.detector == nil {
		return nil, ErrDetectorUnavailable
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrInvalidImage
	}

	normalized, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	preds, err := s.detector.Predictions(ctx, normalized)
	if err != nil {
		return nil, err
	}
	best, err := roboflow.LargestBox(preds, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	box, err := roboflow.PadAndClamp(best, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("%w: unsupported pixel format", ErrInvalidImage)
	}
	rect := image.Rect(box.X, box.Y, box.X+box.Width, box.Y+box.Height).Add(bounds.Min)
	cropped, err := encodeJPEG(sub.SubImage(rect))
	if err != nil {
		return nil, err
	}
	return &model.CropResult{BBox: box, JPEG: cropped}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
