package vision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/JulienRioux/slabbers/internal/model"
)

const (
	minYear = 1900
	maxYear = 2100
)

// rawIdentification mirrors the model output before coercion. Loosely typed
// fields are kept raw.
type rawIdentification struct {
	Confidence              json.RawMessage `json:"confidence"`
	Title                   json.RawMessage `json:"title"`
	Year                    json.RawMessage `json:"year"`
	Player                  json.RawMessage `json:"player"`
	Manufacturer            json.RawMessage `json:"manufacturer"`
	Team                    json.RawMessage `json:"team"`
	League                  json.RawMessage `json:"league"`
	Sport                   json.RawMessage `json:"sport"`
	SetName                 json.RawMessage `json:"set_name"`
	CardNumber              json.RawMessage `json:"card_number"`
	Condition               json.RawMessage `json:"condition"`
	ConditionDetail         json.RawMessage `json:"condition_detail"`
	CountryOfOrigin         json.RawMessage `json:"country_of_origin"`
	OriginalLicensedReprint json.RawMessage `json:"original_licensed_reprint"`
	ParallelVariety         json.RawMessage `json:"parallel_variety"`
	Features                json.RawMessage `json:"features"`
	Season                  json.RawMessage `json:"season"`
	YearManufactured        json.RawMessage `json:"year_manufactured"`
	Autograph               json.RawMessage `json:"autograph"`
	IsGraded                json.RawMessage `json:"is_graded"`
	GradingCompany          json.RawMessage `json:"grading_company"`
	Grade                   json.RawMessage `json:"grade"`
	EvidenceText            json.RawMessage `json:"evidence_text"`
}

// DecodeIdentification parses a model answer. Unknown or mistyped fields
// become nil instead of failing the whole identification.
func DecodeIdentification(content string) (model.Identification, error) {
	var raw rawIdentification
	if err := DecodeJSON(content, &raw); err != nil {
		return model.Identification{}, fmt.Errorf("vision identify: parse payload: %w", err)
	}

	id := model.Identification{
		Confidence:              CoerceConfidence(raw.Confidence),
		Title:                   trimmedString(raw.Title),
		Player:                  trimmedString(raw.Player),
		Manufacturer:            trimmedString(raw.Manufacturer),
		Team:                    trimmedString(raw.Team),
		League:                  trimmedString(raw.League),
		Sport:                   trimmedString(raw.Sport),
		SetName:                 trimmedString(raw.SetName),
		CardNumber:              trimmedString(raw.CardNumber),
		Condition:               trimmedString(raw.Condition),
		ConditionDetail:         trimmedString(raw.ConditionDetail),
		CountryOfOrigin:         trimmedString(raw.CountryOfOrigin),
		OriginalLicensedReprint: trimmedString(raw.OriginalLicensedReprint),
		ParallelVariety:         trimmedString(raw.ParallelVariety),
		Features:                trimmedString(raw.Features),
		Season:                  trimmedString(raw.Season),
		YearManufactured:        CoerceYear(raw.YearManufactured),
		Autograph:               optionalBool(raw.Autograph),
		IsGraded:                optionalBool(raw.IsGraded),
		GradingCompany:          trimmedString(raw.GradingCompany),
		Grade:                   trimmedString(raw.Grade),
		EvidenceText:            trimmedString(raw.EvidenceText),
	}

	id.Year = CoerceYear(raw.Year)
	if id.Year == nil {
		id.Year = ExtractYear(deref(id.Title) + " " + deref(id.EvidenceText))
	}
	return id, nil
}

// CoerceConfidence accepts a 0-1 or 0-100 number, or a numeric string, and
// returns an integer percentage. Anything else is 0.
func CoerceConfidence(raw json.RawMessage) int {
	n, ok := rawNumber(raw)
	if !ok {
		return 0
	}
	if n <= 1 {
		n *= 100
	}
	return clampInt(n, 0, 100)
}

// CoerceYear accepts a number or text. Text is searched for a season such as
// "2015-16" or a 19xx/20xx year before being parsed as a plain number.
func CoerceYear(raw json.RawMessage) *int {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if y := ExtractYear(s); y != nil {
			return y
		}
	}
	n, ok := rawNumber(raw)
	if !ok {
		return nil
	}
	y := clampInt(n, minYear, maxYear)
	return &y
}

var (
	seasonRe = regexp.MustCompile(`\b(19\d{2}|20\d{2})\s*[/-]\s*\d{2}\b`)
	yearRe   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// ExtractYear finds the card year in free text, preferring the first year of
// a season.
func ExtractYear(text string) *int {
	for _, re := range []*regexp.Regexp{seasonRe, yearRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if y, err := strconv.Atoi(m[1]); err == nil {
				y = clampInt(float64(y), minYear, maxYear)
				return &y
			}
		}
	}
	return nil
}

func rawNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func trimmedString(raw json.RawMessage) *string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalBool(raw json.RawMessage) *bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	return &b
}

func clampInt(n, lo, hi float64) int {
	return int(math.Max(lo, math.Min(hi, math.Trunc(n))))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// DecodeJSON decodes a model answer, tolerating code fences and prose around
// the JSON object.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, snippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" || trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
