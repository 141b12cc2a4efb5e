// Package cardquery converts gallery query strings into typed card filters
// and back. Parsing never fails: malformed input falls back to defaults.
package cardquery

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Sort names a listing order. Unknown values normalize to the caller's
// default.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
	SortPriceDesc Sort = "price_desc"
	SortPriceAsc  Sort = "price_asc"
	SortYearDesc  Sort = "year_desc"
	SortYearAsc   Sort = "year_asc"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 24
	MaxPageSize     = 60
)

// OthersCompany selects graded cards whose company is not one of
// KnownGradingCompanies.
const OthersCompany = "Others"

// KnownGradingCompanies are the companies offered as filters; anything else
// is grouped under OthersCompany.
var KnownGradingCompanies = []string{"PSA", "BGS", "SGC", "CGC", "TAG", "Mint"}

var validSorts = map[Sort]bool{
	SortNewest: true, SortOldest: true,
	SortPriceDesc: true, SortPriceAsc: true,
	SortYearDesc: true, SortYearAsc: true,
}

// Query string keys.
const (
	keyQuery          = "q"
	keyForSale        = "forSale"
	keyGraded         = "graded"
	keyPriceMin       = "price_min"
	keyPriceMax       = "price_max"
	keyYearMin        = "year_min"
	keyYearMax        = "year_max"
	keyGradingCompany = "grading_company"
	keyGradeMin       = "grade_min"
	keyGradeMax       = "grade_max"
	keyRookie         = "rookie"
	keyAutograph      = "autograph"
	keySerialNumbered = "serial_numbered"
	keySort           = "sort"
	keyPage           = "page"
	keyPageSize       = "pageSize"
)

type Filter struct {
	Query          string
	ForSaleOnly    bool
	GradedOnly     bool
	PriceMin       *float64
	PriceMax       *float64
	YearMin        *int
	YearMax        *int
	GradingCompany *string
	GradeMin       *float64
	GradeMax       *float64
	Rookie         bool
	Autograph      bool
	SerialNumbered bool
	Sort           Sort
}

type Pagination struct {
	Page     int
	PageSize int
}

// Offset is the number of rows before the first row of the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Clamp forces Page and PageSize into their valid ranges.
func (p Pagination) Clamp() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Normalize parses raw query parameters. defaultSort is used when the sort
// key is missing or unknown; it differs per entry point.
func Normalize(raw url.Values, defaultSort Sort) (Filter, Pagination) {
	if !validSorts[defaultSort] {
		defaultSort = SortNewest
	}

	f := Filter{
		Query:          strings.TrimSpace(raw.Get(keyQuery)),
		ForSaleOnly:    parseDefaultOn(raw, keyForSale),
		GradedOnly:     parseFlag(raw.Get(keyGraded)),
		PriceMin:       parseOptionalNonNegativeFloat(raw.Get(keyPriceMin)),
		PriceMax:       parseOptionalNonNegativeFloat(raw.Get(keyPriceMax)),
		YearMin:        parseOptionalNonNegativeInt(raw.Get(keyYearMin)),
		YearMax:        parseOptionalNonNegativeInt(raw.Get(keyYearMax)),
		GradingCompany: parseOptionalTrimmedString(raw.Get(keyGradingCompany)),
		GradeMin:       parseOptionalNonNegativeFloat(raw.Get(keyGradeMin)),
		GradeMax:       parseOptionalNonNegativeFloat(raw.Get(keyGradeMax)),
		Rookie:         parseFlag(raw.Get(keyRookie)),
		Autograph:      parseFlag(raw.Get(keyAutograph)),
		SerialNumbered: parseFlag(raw.Get(keySerialNumbered)),
		Sort:           parseSort(raw.Get(keySort), defaultSort),
	}

	p := Pagination{
		Page:     parsePositiveInt(raw.Get(keyPage), DefaultPage),
		PageSize: parsePositiveInt(raw.Get(keyPageSize), DefaultPageSize),
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	return f, p
}

// parseDefaultOn reads a flag that is on unless explicitly set to "0".
func parseDefaultOn(raw url.Values, key string) bool {
	if _, ok := raw[key]; !ok {
		return true
	}
	return raw.Get(key) != "0"
}

func parseFlag(v string) bool {
	return v == "1"
}

func parsePositiveInt(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseOptionalNonNegativeInt(v string) *int {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func parseOptionalNonNegativeFloat(v string) *float64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return nil
	}
	return &n
}

func parseOptionalTrimmedString(v string) *string {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	return &s
}

func parseSort(v string, fallback Sort) Sort {
	s := Sort(v)
	if validSorts[s] {
		return s
	}
	return fallback
}
