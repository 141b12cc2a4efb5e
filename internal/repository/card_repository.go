package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/JulienRioux/slabbers/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cardColumns = `
	id::text, user_id::text, is_private, title, year, player, manufacturer,
	set_name, card_number, image_urls, is_graded, grading_company, grade,
	rookie, autograph, serial_numbered, print_run, for_sale, price_cents, currency,
	team, league, is_sport, sport, condition, condition_detail, country_of_origin,
	original_licensed_reprint, parallel_variety, features, season, year_manufactured,
	notes, created_at`

type CardRepository struct {
	pool *pgxpool.Pool
}

func NewCardRepository(pool *pgxpool.Pool) *CardRepository {
	return &CardRepository{pool: pool}
}

// ErrNotFound is returned when a lookup or owner-scoped write matches no row.
var ErrNotFound = errors.New("not found")

func scanCard(row pgx.Row) (*model.Card, error) {
	c := &model.Card{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.IsPrivate, &c.Title, &c.Year, &c.Player, &c.Manufacturer,
		&c.SetName, &c.CardNumber, &c.ImageURLs, &c.IsGraded, &c.GradingCompany, &c.Grade,
		&c.Rookie, &c.Autograph, &c.SerialNumbered, &c.PrintRun, &c.ForSale, &c.PriceCents, &c.Currency,
		&c.Team, &c.League, &c.IsSport, &c.Sport, &c.Condition, &c.ConditionDetail, &c.CountryOfOrigin,
		&c.OriginalLicensedReprint, &c.ParallelVariety, &c.Features, &c.Season, &c.YearManufactured,
		&c.Notes, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.ImageURLs == nil {
		c.ImageURLs = []string{}
	}
	return c, nil
}

// List returns one page of cards matching q and the number of matching rows
// ignoring Offset and Limit.
func (r *CardRepository) List(ctx context.Context, q CardQuery) ([]model.Card, int, error) {
	where, args, err := compileWhere(q.Where)
	if err != nil {
		return nil, 0, err
	}
	orderBy, err := compileOrder(q.Order)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cards WHERE "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, translatePgError(err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 24
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM cards
		WHERE %s
		ORDER BY %s
		LIMIT %d OFFSET %d
	`, cardColumns, where, orderBy, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translatePgError(err)
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translatePgError(err)
	}

	return cards, total, nil
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (*model.Card, error) {
	return scanCard(r.pool.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id::text = $1`, id))
}

func (r *CardRepository) Create(ctx context.Context, userID string, req *model.CreateCardRequest, imageURLs []string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cards (
			user_id, is_private, title, year, player, manufacturer,
			set_name, card_number, is_graded, grading_company, grade,
			rookie, autograph, serial_numbered, print_run,
			for_sale, price_cents, currency, image_urls
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id::text
	`,
		userID, req.IsPrivate, req.Title, req.Year, req.Player, req.Manufacturer,
		req.SetName, req.CardNumber, req.IsGraded, req.GradingCompany, req.Grade,
		req.Rookie, req.Autograph, req.SerialNumbered, req.PrintRun,
		req.ForSale, req.PriceCents, req.Currency, imageURLs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update overwrites the editable fields of a card owned by userID. It
// reports false when no such card exists.
func (r *CardRepository) Update(ctx context.Context, id, userID string, req *model.UpdateCardRequest) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cards SET
			title = $3, year = $4, player = $5, manufacturer = $6,
			team = $7, league = $8, is_sport = $9, sport = $10,
			condition = $11, condition_detail = $12, country_of_origin = $13,
			original_licensed_reprint = $14, parallel_variety = $15, features = $16,
			season = $17, year_manufactured = $18, is_private = $19,
			set_name = $20, card_number = $21, is_graded = $22, grading_company = $23, grade = $24,
			rookie = $25, autograph = $26, serial_numbered = $27, print_run = $28,
			for_sale = $29, price_cents = $30, currency = $31, notes = $32,
			updated_at = NOW()
		WHERE id::text = $1 AND user_id::text = $2
	`,
		id, userID,
		req.Title, req.Year, req.Player, req.Manufacturer,
		req.Team, req.League, req.IsSport, req.Sport,
		req.Condition, req.ConditionDetail, req.CountryOfOrigin,
		req.OriginalLicensedReprint, req.ParallelVariety, req.Features,
		req.Season, req.YearManufactured, req.IsPrivate,
		req.SetName, req.CardNumber, req.IsGraded, req.GradingCompany, req.Grade,
		req.Rookie, req.Autograph, req.SerialNumbered, req.PrintRun,
		req.ForSale, req.PriceCents, req.Currency, req.Notes,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CardRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id::text = $1 AND user_id::text = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CardRepository) Stats(ctx context.Context) (*model.CardStats, error) {
	s := &model.CardStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_private),
			COUNT(*) FILTER (WHERE NOT is_private AND for_sale),
			(SELECT COUNT(*) FROM profiles)
		FROM cards
	`).Scan(&s.Total, &s.Public, &s.ForSale, &s.Profiles)
	if err != nil {
		return nil, err
	}
	return s, nil
}
