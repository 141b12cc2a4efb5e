package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/repository"
)

// memCardStore evaluates card queries in memory.
type memCardStore struct {
	mu            sync.Mutex
	cards         []model.Card
	noGradeNumber bool
	listErr       error
	queries       []repository.CardQuery
	nextID        int
}

func (m *memCardStore) List(_ context.Context, q repository.CardQuery) ([]model.Card, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)

	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	if m.noGradeNumber && q.References("grade_number") {
		return nil, 0, &repository.MissingColumnError{Column: "grade_number", Err: errors.New("undefined column")}
	}

	var matched []model.Card
	for _, c := range m.cards {
		if matchesAll(c, q.Where) {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j], q.Order) })

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return append([]model.Card{}, matched[start:end]...), total, nil
}

func (m *memCardStore) GetByID(_ context.Context, id string) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cards {
		if m.cards[i].ID == id {
			c := m.cards[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCardStore) Create(_ context.Context, userID string, req *model.CreateCardRequest, imageURLs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("new-%d", m.nextID)
	year := req.Year
	m.cards = append(m.cards, model.Card{
		ID: id, UserID: userID, IsPrivate: req.IsPrivate, Title: req.Title, Year: &year,
		Player: req.Player, Manufacturer: req.Manufacturer, ImageURLs: imageURLs,
		IsGraded: req.IsGraded, GradingCompany: req.GradingCompany, Grade: req.Grade,
		ForSale: req.ForSale, PriceCents: req.PriceCents, Currency: req.Currency,
		SerialNumbered: req.SerialNumbered, PrintRun: req.PrintRun, CreatedAt: time.Now(),
	})
	return id, nil
}

func (m *memCardStore) Update(_ context.Context, id, userID string, req *model.UpdateCardRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cards {
		c := &m.cards[i]
		if c.ID != id || c.UserID != userID {
			continue
		}
		c.Title, c.Year, c.Player, c.Manufacturer = req.Title, req.Year, req.Player, req.Manufacturer
		c.IsSport, c.Sport, c.Team, c.League = req.IsSport, req.Sport, req.Team, req.League
		c.IsPrivate, c.IsGraded, c.GradingCompany, c.Grade = req.IsPrivate, req.IsGraded, req.GradingCompany, req.Grade
		c.SerialNumbered, c.PrintRun = req.SerialNumbered, req.PrintRun
		c.ForSale, c.PriceCents, c.Currency = req.ForSale, req.PriceCents, req.Currency
		return true, nil
	}
	return false, nil
}

func (m *memCardStore) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cards {
		if m.cards[i].ID == id && m.cards[i].UserID == userID {
			m.cards = append(m.cards[:i], m.cards[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memCardStore) Stats(context.Context) (*model.CardStats, error) {
	return &model.CardStats{Total: len(m.cards)}, nil
}

func matchesAll(c model.Card, preds []repository.Predicate) bool {
	for _, p := range preds {
		if !matches(c, p) {
			return false
		}
	}
	return true
}

func matches(c model.Card, p repository.Predicate) bool {
	switch p := p.(type) {
	case repository.Eq:
		return column(c, p.Column) == p.Value
	case repository.Gte:
		v, ok := number(column(c, p.Column))
		w, _ := number(p.Value)
		return ok && v >= w
	case repository.Lte:
		v, ok := number(column(c, p.Column))
		w, _ := number(p.Value)
		return ok && v <= w
	case repository.In:
		s, ok := column(c, p.Column).(string)
		return ok && contains(p.Values, s)
	case repository.NotIn:
		s, ok := column(c, p.Column).(string)
		return !ok || !contains(p.Values, s)
	case repository.NotNull:
		return column(c, p.Column) != nil
	case repository.ContainsAny:
		needle := strings.ToLower(p.Text)
		for _, col := range p.Columns {
			if s, ok := column(c, col).(string); ok && strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
		return false
	}
	panic(fmt.Sprintf("unexpected predicate %T", p))
}

// column returns the value of a card column, or nil for SQL NULL.
func column(c model.Card, name string) any {
	switch name {
	case "id":
		return c.ID
	case "user_id":
		return c.UserID
	case "is_private":
		return c.IsPrivate
	case "for_sale":
		return c.ForSale
	case "is_graded":
		return c.IsGraded
	case "rookie":
		return c.Rookie
	case "autograph":
		return c.Autograph
	case "serial_numbered":
		return c.SerialNumbered
	case "title":
		return c.Title
	case "player":
		return c.Player
	case "manufacturer":
		return c.Manufacturer
	case "created_at":
		return c.CreatedAt
	case "price_cents":
		if c.PriceCents == nil {
			return nil
		}
		return *c.PriceCents
	case "year":
		if c.Year == nil {
			return nil
		}
		return *c.Year
	case "set_name":
		return deref(c.SetName)
	case "card_number":
		return deref(c.CardNumber)
	case "grading_company":
		return deref(c.GradingCompany)
	case "grade":
		return deref(c.Grade)
	case "grade_number":
		if c.Grade == nil {
			return nil
		}
		g, err := strconv.ParseFloat(*c.Grade, 64)
		if err != nil {
			return nil
		}
		return g
	}
	panic("unknown column " + name)
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// less orders two cards by the query's sort keys, NULLs last.
func less(a, b model.Card, order []repository.OrderBy) bool {
	for _, o := range order {
		av, bv := column(a, o.Column), column(b, o.Column)
		if av == nil || bv == nil {
			if (av == nil) == (bv == nil) {
				continue
			}
			return bv == nil
		}
		c := compare(av, bv)
		if c == 0 {
			continue
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		return av.Compare(b.(time.Time))
	case string:
		return strings.Compare(av, b.(string))
	}
	x, _ := number(a)
	y, _ := number(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

type memOwnerStore struct {
	owners []model.OwnerProfile
	err    error
	calls  int
	asked  [][]string
}

func (m *memOwnerStore) OwnersByIDs(_ context.Context, ids []string) ([]model.OwnerProfile, error) {
	m.calls++
	m.asked = append(m.asked, ids)
	if m.err != nil {
		return nil, m.err
	}
	var out []model.OwnerProfile
	for _, o := range m.owners {
		if contains(ids, o.ID) {
			out = append(out, o)
		}
	}
	return out, nil
}

type memBucket struct {
	uploaded  []string
	removed   []string
	uploadErr error
	removeErr error
}

func (b *memBucket) Upload(_ context.Context, path, _ string, _ []byte, _ bool) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}
	b.uploaded = append(b.uploaded, path)
	return nil
}

func (b *memBucket) PublicURL(path string) string {
	return "https://store.test/storage/v1/object/public/card-images/" + path
}

func (b *memBucket) PathFromURL(u string) (string, bool) {
	const prefix = "https://store.test/storage/v1/object/public/card-images/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	return strings.TrimPrefix(u, prefix), true
}

func (b *memBucket) Remove(_ context.Context, paths []string) error {
	b.removed = append(b.removed, paths...)
	return b.removeErr
}

type recordingNotifier struct {
	listed  []string
	removed []string
}

func (r *recordingNotifier) CardListed(c *model.CardSummary) { r.listed = append(r.listed, c.ID) }
func (r *recordingNotifier) CardRemoved(c *model.Card)       { r.removed = append(r.removed, c.ID) }

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }
func i64p(i int64) *int64   { return &i }
func f64p(f float64) *float64 {
	return &f
}
