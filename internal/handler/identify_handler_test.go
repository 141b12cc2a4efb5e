package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/service"
	"github.com/JulienRioux/slabbers/internal/vision"

	"github.com/gofiber/fiber/v2"
)

type stubVision struct {
	images int
}

func (s *stubVision) Identify(_ context.Context, imgs []vision.Image) (model.Identification, error) {
	s.images = len(imgs)
	player := "Ken Griffey Jr."
	return model.Identification{Confidence: 88, Player: &player}, nil
}

type stubMarket struct {
	country string
}

func (s *stubMarket) FindListings(_ context.Context, _, country string) ([]model.MarketplaceListing, error) {
	s.country = country
	return []model.MarketplaceListing{{Title: "Griffey", Price: 40, Currency: "USD", URL: "https://ebay.test/1"}}, nil
}

type stubDetector struct{}

func (stubDetector) Predictions(context.Context, []byte) ([]any, error) {
	return []any{map[string]any{"left": 10.0, "top": 10.0, "right": 50.0, "bottom": 70.0}}, nil
}

func newIdentifyApp(v service.CardIdentifier, m service.ListingFinder, d service.CardDetector) *fiber.App {
	h := NewIdentifyHandler(service.NewIdentifyService(v, m), service.NewCropService(d))
	app := fiber.New()
	app.Post("/identify", h.Identify)
	app.Post("/crop", h.Crop)
	return app
}

func TestIdentify(t *testing.T) {
	v, m := &stubVision{}, &stubMarket{}
	app := newIdentifyApp(v, m, nil)

	req := multipartRequest(t, "/identify", map[string]string{"country": " us "}, "images", 7)
	resp, body := doRequest(t, app, req)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var res model.IdentifyResult
	decodeBody(t, body, &res)
	if res.Confidence != 88 || res.ListingsUsed != 1 || len(res.Listings) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.EstimatedPrice == nil || *res.EstimatedPrice != 40 || *res.Currency != "USD" {
		t.Fatalf("estimate = %+v", res.PriceEstimate)
	}
	if v.images != vision.MaxImages || m.country != "US" {
		t.Fatalf("images = %d, country = %q", v.images, m.country)
	}
}

func TestIdentifyErrors(t *testing.T) {
	resp, _ := doRequest(t, newIdentifyApp(&stubVision{}, nil, nil), multipartRequest(t, "/identify", nil, "images", 0))
	if resp.StatusCode != 400 {
		t.Fatalf("no images status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, newIdentifyApp(nil, nil, nil), multipartRequest(t, "/identify", nil, "images", 1))
	if resp.StatusCode != 503 {
		t.Fatalf("unconfigured status = %d", resp.StatusCode)
	}
}

func photoUpload(t *testing.T, w, h int) *http.Request {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "card.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(img.Bytes())
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/crop", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCropHeaders(t *testing.T) {
	resp, body := doRequest(t, newIdentifyApp(nil, nil, stubDetector{}), photoUpload(t, 100, 100))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("content type = %q", ct)
	}
	// 40x60 box padded by 1px on each side.
	want := map[string]string{"x-bbox-x": "9", "x-bbox-y": "9", "x-bbox-w": "42", "x-bbox-h": "62"}
	for k, v := range want {
		if got := resp.Header.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if _, err := jpeg.Decode(bytes.NewReader(body)); err != nil {
		t.Fatalf("body is not a JPEG: %v", err)
	}
}

func TestCropJSON(t *testing.T) {
	req := photoUpload(t, 100, 100)
	req.URL.RawQuery = "format=json"
	resp, body := doRequest(t, newIdentifyApp(nil, nil, stubDetector{}), req)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var res struct {
		BBox          model.BoundingBox `json:"bbox"`
		CroppedBase64 string            `json:"croppedBase64"`
	}
	decodeBody(t, body, &res)
	if res.BBox != (model.BoundingBox{X: 9, Y: 9, Width: 42, Height: 62}) {
		t.Fatalf("bbox = %+v", res.BBox)
	}
	data, err := base64.StdEncoding.DecodeString(res.CroppedBase64)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	cropped, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if b := cropped.Bounds(); b.Dx() != 42 || b.Dy() != 62 {
		t.Fatalf("cropped size = %dx%d", b.Dx(), b.Dy())
	}
}

func TestCropErrors(t *testing.T) {
	resp, body := doRequest(t, newIdentifyApp(nil, nil, stubDetector{}), httptest.NewRequest(http.MethodPost, "/crop", strings.NewReader("")))
	if resp.StatusCode != 400 || !strings.Contains(string(body), "image") {
		t.Fatalf("missing file: %d %s", resp.StatusCode, body)
	}
	resp, _ = doRequest(t, newIdentifyApp(nil, nil, nil), photoUpload(t, 10, 10))
	if resp.StatusCode != 503 {
		t.Fatalf("unconfigured status = %d", resp.StatusCode)
	}
}
