package model

// MarketplaceListing is a cleaned marketplace search result. It only lives for
// the duration of one identification request.
type MarketplaceListing struct {
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	URL      string  `json:"web_url"`
	ImageURL string  `json:"image_url,omitempty"`
}

type PriceEstimate struct {
	EstimatedPrice *float64 `json:"estimated_price"`
	Currency       *string  `json:"estimated_currency"`
	ListingsUsed   int      `json:"ebay_listings_used"`
}

// Identification is the structured result of reading a card from photos.
type Identification struct {
	Confidence              int     `json:"confidence"`
	Title                   *string `json:"title"`
	Year                    *int    `json:"year"`
	Player                  *string `json:"player"`
	Manufacturer            *string `json:"manufacturer"`
	Team                    *string `json:"team"`
	League                  *string `json:"league"`
	Sport                   *string `json:"sport"`
	SetName                 *string `json:"set_name"`
	CardNumber              *string `json:"card_number"`
	Condition               *string `json:"condition"`
	ConditionDetail         *string `json:"condition_detail"`
	CountryOfOrigin         *string `json:"country_of_origin"`
	OriginalLicensedReprint *string `json:"original_licensed_reprint"`
	ParallelVariety         *string `json:"parallel_variety"`
	Features                *string `json:"features"`
	Season                  *string `json:"season"`
	YearManufactured        *int    `json:"year_manufactured"`
	Autograph               *bool   `json:"autograph"`
	IsGraded                *bool   `json:"is_graded"`
	GradingCompany          *string `json:"grading_company"`
	Grade                   *string `json:"grade"`
	EvidenceText            *string `json:"evidence_text"`
}

type IdentifyResult struct {
	Identification
	PriceEstimate
	Listings []MarketplaceListing `json:"ebay_listings"`
}

// BoundingBox is a pixel rectangle in image coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CropResult struct {
	BBox BoundingBox
	JPEG []byte
}
