package handler

import (
	"io"
	"math"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/JulienRioux/slabbers/internal/service"
)

// Form values follow the HTML checkbox convention.
func formBool(v string) bool {
	return v == "true" || v == "on"
}

// parseOptionalInt truncates any finite number; blank or garbage is nil.
func parseOptionalInt(v string) *int {
	n, ok := parseTruncated(v)
	if !ok || n > math.MaxInt32 || n < math.MinInt32 {
		return nil
	}
	i := int(n)
	return &i
}

func parseOptionalInt64(v string) *int64 {
	n, ok := parseTruncated(v)
	if !ok {
		return nil
	}
	i := int64(n)
	return &i
}

func parseTruncated(v string) (float64, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return math.Trunc(n), true
}

func optionalString(v string) *string {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	return &s
}

// JSON bodies are loosely typed: values may arrive as strings, numbers or
// booleans regardless of the field.

func toBoolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case nil:
		return false
	}
	s := strings.ToLower(strings.TrimSpace(toText(v)))
	return s == "true" || s == "1" || s == "on" || s == "yes"
}

func toOptionalInt(v any) *int {
	if n, ok := v.(float64); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		i := int(math.Trunc(n))
		return &i
	}
	return parseOptionalInt(toText(v))
}

func toOptionalInt64(v any) *int64 {
	if n, ok := v.(float64); ok {
		i := int64(math.Trunc(n))
		return &i
	}
	return parseOptionalInt64(toText(v))
}

func toOptionalString(v any) *string {
	return optionalString(toText(v))
}

func toRequiredString(v any) string {
	return strings.TrimSpace(toText(v))
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// readUploads loads the files of one multipart field, keeping at most limit.
func readUploads(files []*multipart.FileHeader, limit int) ([]service.ImageUpload, error) {
	if len(files) > limit {
		files = files[:limit]
	}
	uploads := make([]service.ImageUpload, 0, len(files))
	for _, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) (service.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.ImageUpload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.ImageUpload{}, err
	}
	return service.ImageUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
