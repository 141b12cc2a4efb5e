package cardquery

import (
	"net/url"
	"strconv"
	"strings"
)

// Change edits one field of a query string. Fields at their default value are
// removed so that URLs stay short and canonical.
type Change func(v url.Values, defaultSort Sort)

// Build applies changes on top of a copy of base. Keys without a change keep
// their base value.
func Build(base url.Values, defaultSort Sort, changes ...Change) url.Values {
	out := url.Values{}
	for k, vs := range base {
		out[k] = append([]string(nil), vs...)
	}
	for _, change := range changes {
		change(out, defaultSort)
	}
	return out
}

// Encode serializes a full filter and pagination.
func Encode(f Filter, p Pagination, defaultSort Sort) url.Values {
	return Build(nil, defaultSort,
		SetQuery(f.Query),
		SetForSale(f.ForSaleOnly),
		SetGraded(f.GradedOnly),
		SetPriceMin(f.PriceMin),
		SetPriceMax(f.PriceMax),
		SetYearMin(f.YearMin),
		SetYearMax(f.YearMax),
		SetGradingCompany(f.GradingCompany),
		SetGradeMin(f.GradeMin),
		SetGradeMax(f.GradeMax),
		SetRookie(f.Rookie),
		SetAutograph(f.Autograph),
		SetSerialNumbered(f.SerialNumbered),
		SetSort(f.Sort),
		SetPage(p.Page),
		SetPageSize(p.PageSize),
	)
}

// SetQuery sets the free-text search; blank removes it.
func SetQuery(q string) Change {
	return func(v url.Values, _ Sort) {
		setOrDelete(v, keyQuery, strings.TrimSpace(q))
	}
}

// SetForSale only encodes the off state; on is the default.
func SetForSale(on bool) Change {
	return func(v url.Values, _ Sort) {
		if on {
			v.Del(keyForSale)
			return
		}
		v.Set(keyForSale, "0")
	}
}

// Flag changes encode only the on state.
func SetGraded(on bool) Change         { return flagChange(keyGraded, on) }
func SetRookie(on bool) Change         { return flagChange(keyRookie, on) }
func SetAutograph(on bool) Change      { return flagChange(keyAutograph, on) }
func SetSerialNumbered(on bool) Change { return flagChange(keySerialNumbered, on) }

// Range changes remove the key when n is nil.
func SetPriceMin(n *float64) Change { return floatChange(keyPriceMin, n) }
func SetPriceMax(n *float64) Change { return floatChange(keyPriceMax, n) }
func SetGradeMin(n *float64) Change { return floatChange(keyGradeMin, n) }
func SetGradeMax(n *float64) Change { return floatChange(keyGradeMax, n) }

func SetYearMin(n *int) Change { return intChange(keyYearMin, n) }
func SetYearMax(n *int) Change { return intChange(keyYearMax, n) }

func SetGradingCompany(s *string) Change {
	return func(v url.Values, _ Sort) {
		if s == nil {
			v.Del(keyGradingCompany)
			return
		}
		setOrDelete(v, keyGradingCompany, strings.TrimSpace(*s))
	}
}

// SetSort omits the key when s is the default order of the listing.
func SetSort(s Sort) Change {
	return func(v url.Values, defaultSort Sort) {
		if s == "" || s == defaultSort {
			v.Del(keySort)
			return
		}
		v.Set(keySort, string(s))
	}
}

// SetPage omits the first page.
func SetPage(page int) Change {
	return func(v url.Values, _ Sort) {
		if page > DefaultPage {
			v.Set(keyPage, strconv.Itoa(page))
			return
		}
		v.Del(keyPage)
	}
}

func SetPageSize(size int) Change {
	return func(v url.Values, _ Sort) {
		if size > 0 && size != DefaultPageSize {
			v.Set(keyPageSize, strconv.Itoa(size))
			return
		}
		v.Del(keyPageSize)
	}
}

func flagChange(key string, on bool) Change {
	return func(v url.Values, _ Sort) {
		if on {
			v.Set(key, "1")
			return
		}
		v.Del(key)
	}
}

func floatChange(key string, n *float64) Change {
	return func(v url.Values, _ Sort) {
		if n == nil {
			v.Del(key)
			return
		}
		v.Set(key, strconv.FormatFloat(*n, 'f', -1, 64))
	}
}

func intChange(key string, n *int) Change {
	return func(v url.Values, _ Sort) {
		if n == nil {
			v.Del(key)
			return
		}
		v.Set(key, strconv.Itoa(*n))
	}
}

func setOrDelete(v url.Values, key, value string) {
	if value == "" {
		v.Del(key)
		return
	}
	v.Set(key, value)
}
