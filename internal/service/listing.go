package service

import (
	"context"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/JulienRioux/slabbers/internal/cardquery"
	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/pricing"
	"github.com/JulienRioux/slabbers/internal/repository"
)

// Scope limits a listing to the public gallery or to one owner's collection.
type Scope struct {
	OwnerID string
}

func PublicScope() Scope { return Scope{} }

func UserScope(ownerID string) Scope { return Scope{OwnerID: ownerID} }

func (s Scope) IsPublic() bool { return s.OwnerID == "" }

var searchColumns = []string{"title", "player", "manufacturer", "set_name", "card_number"}

type gradeStrategy int

const (
	gradeNumeric gradeStrategy = iota
	gradeEnumerated
)

// ListPage returns one page of cards visible to viewerID within scope. Store
// failures are logged and produce an empty page.
func (s *CardService) ListPage(ctx context.Context, scope Scope, viewerID string, f cardquery.Filter, p cardquery.Pagination) model.CardPage {
	p = p.Clamp()

	q := buildListQuery(scope, viewerID, f, p, gradeNumeric)
	cards, total, err := s.cards.List(ctx, q)
	if err != nil && repository.IsMissingColumn(err, "grade_number") && q.References("grade_number") {
		log.Printf("[CARDS] grade_number unavailable, enumerating grades")
		q = buildListQuery(scope, viewerID, f, p, gradeEnumerated)
		cards, total, err = s.cards.List(ctx, q)
	}
	if err != nil {
		log.Printf("[CARDS] list error: %v", err)
		return emptyPage(p)
	}

	items := s.attachOwners(ctx, cards)
	return model.CardPage{
		Items:    items,
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		HasPrev:  p.Page > 1,
		HasNext:  p.Offset()+len(items) < total,
	}
}

func emptyPage(p cardquery.Pagination) model.CardPage {
	return model.CardPage{
		Items:    []model.CardSummary{},
		Page:     p.Page,
		PageSize: p.PageSize,
		HasPrev:  p.Page > 1,
	}
}

// attachOwners looks up the profiles of every distinct owner on the page in
// one batch.
func (s *CardService) attachOwners(ctx context.Context, cards []model.Card) []model.CardSummary {
	items := make([]model.CardSummary, len(cards))
	var ids []string
	seen := make(map[string]bool)
	for i, c := range cards {
		items[i] = model.CardSummary{Card: c}
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}
	if len(ids) == 0 {
		return items
	}

	owners, err := s.profiles.OwnersByIDs(ctx, ids)
	if err != nil {
		log.Printf("[CARDS] owner lookup error: %v", err)
		return items
	}
	byID := make(map[string]*model.OwnerProfile, len(owners))
	for i := range owners {
		byID[owners[i].ID] = &owners[i]
	}
	for i := range items {
		items[i].Owner = byID[items[i].UserID]
	}
	return items
}

func buildListQuery(scope Scope, viewerID string, f cardquery.Filter, p cardquery.Pagination, grades gradeStrategy) repository.CardQuery {
	var where []repository.Predicate

	if scope.IsPublic() {
		where = append(where, repository.Eq{Column: "is_private", Value: false})
	} else {
		where = append(where, repository.Eq{Column: "user_id", Value: scope.OwnerID})
		if viewerID != scope.OwnerID {
			where = append(where, repository.Eq{Column: "is_private", Value: false})
		}
	}

	if f.ForSaleOnly {
		where = append(where, repository.Eq{Column: "for_sale", Value: true})
		if f.PriceMin != nil {
			where = append(where, repository.Gte{Column: "price_cents", Value: pricing.CentsFromMajor(*f.PriceMin)})
		}
		if f.PriceMax != nil {
			where = append(where, repository.Lte{Column: "price_cents", Value: pricing.CentsFromMajor(*f.PriceMax)})
		}
	}

	if f.YearMin != nil {
		where = append(where, repository.Gte{Column: "year", Value: *f.YearMin})
	}
	if f.YearMax != nil {
		where = append(where, repository.Lte{Column: "year", Value: *f.YearMax})
	}

	if f.GradedOnly {
		where = append(where, repository.Eq{Column: "is_graded", Value: true})
		where = append(where, gradingCompanyPredicates(f.GradingCompany)...)
		where = append(where, gradeRangePredicates(f.GradeMin, f.GradeMax, grades)...)
	}

	if f.Rookie {
		where = append(where, repository.Eq{Column: "rookie", Value: true})
	}
	if f.Autograph {
		where = append(where, repository.Eq{Column: "autograph", Value: true})
	}
	if f.SerialNumbered {
		where = append(where, repository.Eq{Column: "serial_numbered", Value: true})
	}

	if f.Query != "" {
		where = append(where, repository.ContainsAny{Columns: searchColumns, Text: f.Query})
	}

	return repository.CardQuery{
		Where:  where,
		Order:  sortOrder(f.Sort),
		Offset: p.Offset(),
		Limit:  p.PageSize,
	}
}

func gradingCompanyPredicates(company *string) []repository.Predicate {
	if company == nil {
		return nil
	}
	if *company == cardquery.OthersCompany {
		return []repository.Predicate{
			repository.NotNull{Column: "grading_company"},
			repository.NotIn{Column: "grading_company", Values: cardquery.KnownGradingCompanies},
		}
	}
	return []repository.Predicate{repository.Eq{Column: "grading_company", Value: *company}}
}

func gradeRangePredicates(gradeMin, gradeMax *float64, strategy gradeStrategy) []repository.Predicate {
	if gradeMin == nil && gradeMax == nil {
		return nil
	}
	if strategy == gradeEnumerated {
		lo, hi := 0.0, maxGrade
		if gradeMin != nil {
			lo = *gradeMin
		}
		if gradeMax != nil {
			hi = *gradeMax
		}
		return []repository.Predicate{repository.In{Column: "grade", Values: gradeSteps(lo, hi)}}
	}

	var preds []repository.Predicate
	if gradeMin != nil {
		preds = append(preds, repository.Gte{Column: "grade_number", Value: *gradeMin})
	}
	if gradeMax != nil {
		preds = append(preds, repository.Lte{Column: "grade_number", Value: *gradeMax})
	}
	return preds
}

// gradeSteps lists the half-point grade strings in [lo, hi] that lie on the
// grading scale. An inverted range yields no grades.
func gradeSteps(lo, hi float64) []string {
	const eps = 1e-9
	lo, hi = max(lo, minGrade), min(hi, maxGrade)
	start := math.Ceil(lo*2-eps) / 2
	end := math.Floor(hi*2+eps) / 2

	steps := []string{}
	for g := start; g <= end+eps; g += 0.5 {
		steps = append(steps, formatGrade(g))
	}
	return steps
}

func formatGrade(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}

const (
	minGrade   = 1.0
	maxGrade   = 10.0
	otherGrade = "OTHER"
)

// NormalizeGrade canonicalizes a grade for storage: numeric grades become
// "9" or "9.5", "other" becomes "OTHER", other text is kept trimmed. Blank
// grades are nil. Numeric grades off the 1 to 10 half-point scale are
// rejected with ErrInvalidGrade.
func NormalizeGrade(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}
	if strings.EqualFold(s, otherGrade) {
		s = otherGrade
		return &s, nil
	}
	g, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return &s, nil
	}
	if math.IsNaN(g) || g < minGrade || g > maxGrade || g*2 != math.Trunc(g*2) {
		return nil, ErrInvalidGrade
	}
	s = formatGrade(g)
	return &s, nil
}

// sortOrder makes every sort total by breaking ties on creation time and id.
func sortOrder(sort cardquery.Sort) []repository.OrderBy {
	tieBreak := []repository.OrderBy{
		{Column: "created_at", Desc: true},
		{Column: "id", Desc: true},
	}
	switch sort {
	case cardquery.SortOldest:
		return []repository.OrderBy{{Column: "created_at"}, {Column: "id"}}
	case cardquery.SortYearDesc:
		return append([]repository.OrderBy{{Column: "year", Desc: true}}, tieBreak...)
	case cardquery.SortYearAsc:
		return append([]repository.OrderBy{{Column: "year"}}, tieBreak...)
	case cardquery.SortPriceDesc:
		return append([]repository.OrderBy{{Column: "price_cents", Desc: true}}, tieBreak...)
	case cardquery.SortPriceAsc:
		return append([]repository.OrderBy{{Column: "price_cents"}}, tieBreak...)
	default:
		return tieBreak
	}
}
