package model

import "time"

type Card struct {
	ID                      string    `json:"id"`
	UserID                  string    `json:"user_id"`
	IsPrivate               bool      `json:"is_private"`
	Title                   string    `json:"title"`
	Year                    *int      `json:"year"`
	Player                  string    `json:"player"`
	Manufacturer            string    `json:"manufacturer"`
	SetName                 *string   `json:"set_name"`
	CardNumber              *string   `json:"card_number"`
	ImageURLs               []string  `json:"image_urls"`
	IsGraded                bool      `json:"is_graded"`
	GradingCompany          *string   `json:"grading_company"`
	Grade                   *string   `json:"grade"`
	Rookie                  bool      `json:"rookie"`
	Autograph               bool      `json:"autograph"`
	SerialNumbered          bool      `json:"serial_numbered"`
	PrintRun                *int      `json:"print_run"`
	ForSale                 bool      `json:"for_sale"`
	PriceCents              *int64    `json:"price_cents"`
	Currency                string    `json:"currency"`
	Team                    *string   `json:"team,omitempty"`
	League                  *string   `json:"league,omitempty"`
	IsSport                 bool      `json:"is_sport"`
	Sport                   *string   `json:"sport,omitempty"`
	Condition               *string   `json:"condition,omitempty"`
	ConditionDetail         *string   `json:"condition_detail,omitempty"`
	CountryOfOrigin         *string   `json:"country_of_origin,omitempty"`
	OriginalLicensedReprint *string   `json:"original_licensed_reprint,omitempty"`
	ParallelVariety         *string   `json:"parallel_variety,omitempty"`
	Features                *string   `json:"features,omitempty"`
	Season                  *string   `json:"season,omitempty"`
	YearManufactured        *int      `json:"year_manufactured,omitempty"`
	Notes                   *string   `json:"notes,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// OwnerProfile is the public fragment of a profile row attached to cards.
type OwnerProfile struct {
	ID          string  `json:"id"`
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

type CardSummary struct {
	Card
	Owner *OwnerProfile `json:"owner"`
}

// OwnerLabel is the name shown next to a card. Cards whose owner has no
// profile row fall back to a shortened user id.
func (s CardSummary) OwnerLabel() string {
	if s.Owner != nil {
		if s.Owner.DisplayName != nil && *s.Owner.DisplayName != "" {
			return *s.Owner.DisplayName
		}
		if s.Owner.Username != nil && *s.Owner.Username != "" {
			return *s.Owner.Username
		}
	}
	id := s.UserID
	if len(id) > 8 {
		id = id[:8]
	}
	return "user " + id
}

type CardPage struct {
	Items    []CardSummary `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
	HasPrev  bool          `json:"has_prev"`
	HasNext  bool          `json:"has_next"`
}

// CreateCardRequest carries the validated fields of a new card; images are
// uploaded separately and passed in as URLs.
type CreateCardRequest struct {
	IsPrivate      bool
	Title          string
	Year           int
	Player         string
	Manufacturer   string
	SetName        *string
	CardNumber     *string
	IsGraded       bool
	GradingCompany *string
	Grade          *string
	Rookie         bool
	Autograph      bool
	SerialNumbered bool
	PrintRun       *int
	ForSale        bool
	PriceCents     *int64
	Currency       string
}

type UpdateCardRequest struct {
	Title                   string
	Year                    *int
	Player                  string
	Manufacturer            string
	Team                    *string
	League                  *string
	IsSport                 bool
	Sport                   *string
	Condition               *string
	ConditionDetail         *string
	CountryOfOrigin         *string
	OriginalLicensedReprint *string
	ParallelVariety         *string
	Features                *string
	Season                  *string
	YearManufactured        *int
	IsPrivate               bool
	SetName                 *string
	CardNumber              *string
	IsGraded                bool
	GradingCompany          *string
	Grade                   *string
	Rookie                  bool
	Autograph               bool
	SerialNumbered          bool
	PrintRun                *int
	ForSale                 bool
	PriceCents              *int64
	Currency                string
	Notes                   *string
}

type CardStats struct {
	Total    int `json:"cards_total"`
	Public   int `json:"cards_public"`
	ForSale  int `json:"cards_for_sale"`
	Profiles int `json:"profiles_total"`
}
