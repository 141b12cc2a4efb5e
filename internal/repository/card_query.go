package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Predicate is one condition of a card query. All predicates of a query are
// AND-ed together.
type Predicate interface {
	columns() []string
}

type Eq struct {
	Column string
	Value  any
}

type Gte struct {
	Column string
	Value  any
}

type Lte struct {
	Column string
	Value  any
}

// In matches rows whose column equals one of Values. An empty set matches
// nothing.
type In struct {
	Column string
	Values []string
}

type NotIn struct {
	Column string
	Values []string
}

type NotNull struct {
	Column string
}

// ContainsAny is a case-insensitive substring match of Text against any of
// Columns. Text is literal: LIKE wildcards in it are escaped.
type ContainsAny struct {
	Columns []string
	Text    string
}

func (p Eq) columns() []string          { return []string{p.Column} }
func (p Gte) columns() []string         { return []string{p.Column} }
func (p Lte) columns() []string         { return []string{p.Column} }
func (p In) columns() []string          { return []string{p.Column} }
func (p NotIn) columns() []string       { return []string{p.Column} }
func (p NotNull) columns() []string     { return []string{p.Column} }
func (p ContainsAny) columns() []string { return p.Columns }

// OrderBy sorts by one column. NULLs always sort last.
type OrderBy struct {
	Column string
	Desc   bool
}

type CardQuery struct {
	Where  []Predicate
	Order  []OrderBy
	Offset int
	Limit  int
}

// References reports whether any predicate of q uses column.
func (q CardQuery) References(column string) bool {
	for _, p := range q.Where {
		for _, c := range p.columns() {
			if c == column {
				return true
			}
		}
	}
	return false
}

// MissingColumnError reports that the store schema lacks a column the query
// needs.
type MissingColumnError struct {
	Column string
	Err    error
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q: %v", e.Column, e.Err)
}

func (e *MissingColumnError) Unwrap() error { return e.Err }

// IsMissingColumn reports whether err signals that column does not exist.
func IsMissingColumn(err error, column string) bool {
	var mc *MissingColumnError
	return errors.As(err, &mc) && mc.Column == column
}

const pgUndefinedColumn = "42703"

var undefinedColumnRe = regexp.MustCompile(`column "?(?:[a-z_]+\.)?([a-z_]+)"? does not exist`)

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUndefinedColumn {
		return err
	}
	column := ""
	if m := undefinedColumnRe.FindStringSubmatch(pgErr.Message); m != nil {
		column = m[1]
	}
	return &MissingColumnError{Column: column, Err: err}
}

var cardFilterColumns = map[string]bool{
	"user_id": true, "is_private": true, "for_sale": true, "price_cents": true,
	"year": true, "is_graded": true, "grading_company": true, "grade": true,
	"grade_number": true, "rookie": true, "autograph": true, "serial_numbered": true,
	"title": true, "player": true, "manufacturer": true, "set_name": true,
	"card_number": true, "created_at": true, "id": true,
}

// compileWhere renders predicates as a SQL condition with $N placeholders.
func compileWhere(preds []Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return "TRUE", nil, nil
	}

	var conditions []string
	var args []any
	argIdx := 1

	next := func(v any) string {
		args = append(args, v)
		ph := fmt.Sprintf("$%d", argIdx)
		argIdx++
		return ph
	}

	for _, p := range preds {
		for _, c := range p.columns() {
			if !cardFilterColumns[c] {
				return "", nil, fmt.Errorf("unknown card column %q", c)
			}
		}

		switch p := p.(type) {
		case Eq:
			conditions = append(conditions, fmt.Sprintf("%s = %s", columnExpr(p.Column), next(p.Value)))
		case Gte:
			conditions = append(conditions, fmt.Sprintf("%s >= %s", p.Column, next(p.Value)))
		case Lte:
			conditions = append(conditions, fmt.Sprintf("%s <= %s", p.Column, next(p.Value)))
		case In:
			if len(p.Values) == 0 {
				conditions = append(conditions, "FALSE")
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s = ANY(%s)", p.Column, next(p.Values)))
		case NotIn:
			if len(p.Values) == 0 {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("NOT (%s = ANY(%s))", p.Column, next(p.Values)))
		case NotNull:
			conditions = append(conditions, p.Column+" IS NOT NULL")
		case ContainsAny:
			ph := next("%" + escapeLike(p.Text) + "%")
			var ors []string
			for _, c := range p.Columns {
				ors = append(ors, fmt.Sprintf("%s ILIKE %s", c, ph))
			}
			conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
		default:
			return "", nil, fmt.Errorf("unsupported predicate %T", p)
		}
	}

	if len(conditions) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(conditions, " AND "), args, nil
}

func compileOrder(order []OrderBy) (string, error) {
	if len(order) == 0 {
		return "created_at DESC, id DESC", nil
	}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		if !cardFilterColumns[o.Column] {
			return "", fmt.Errorf("unknown card column %q", o.Column)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s %s NULLS LAST", o.Column, dir))
	}
	return strings.Join(parts, ", "), nil
}

// columnExpr compares uuid columns as text so ids can be bound as strings.
func columnExpr(column string) string {
	if column == "id" || column == "user_id" {
		return column + "::text"
	}
	return column
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE metacharacters in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
