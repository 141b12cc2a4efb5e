package ebay

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JulienRioux/slabbers/internal/model"
)

const (
	searchLimit   = 20
	mappedLimit   = 12
	minImageSize  = 500
	maxQueryChars = 120
	minQueryChars = 2
)

var marketplaces = map[string]string{
	"US": "EBAY_US",
	"CA": "EBAY_CA",
	"GB": "EBAY_GB",
	"DE": "EBAY_DE",
	"FR": "EBAY_FR",
	"AU": "EBAY_AU",
}

// DefaultCountry is used when the requested country has no marketplace.
const DefaultCountry = "CA"

// MarketplaceID maps a country code to its eBay marketplace.
func MarketplaceID(country string) string {
	if id, ok := marketplaces[strings.ToUpper(strings.TrimSpace(country))]; ok {
		return id
	}
	return marketplaces[DefaultCountry]
}

type searchResponse struct {
	ItemSummaries []ItemSummary `json:"itemSummaries"`
}

type ItemSummary struct {
	Title           string  `json:"title"`
	Price           *Money  `json:"price"`
	ItemWebURL      string  `json:"itemWebUrl"`
	Image           *Image  `json:"image"`
	ImageURL        string  `json:"imageUrl"`
	ThumbnailImages []Image `json:"thumbnailImages"`
}

type Image struct {
	ImageURL string `json:"imageUrl"`
}

type Money struct {
	Value    FlexibleNumber `json:"value"`
	Currency string         `json:"currency"`
}

// FlexibleNumber decodes a JSON number or a numeric string. Anything else
// decodes to 0.
type FlexibleNumber float64

func (n *FlexibleNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = FlexibleNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = FlexibleNumber(f)
			return nil
		}
	}
	*n = 0
	return nil
}

// FindListings searches for the identified card and returns the cleaned
// listings. An empty query returns no listings without calling eBay.
func (c *Client) FindListings(ctx context.Context, query, country string) ([]model.MarketplaceListing, error) {
	if utf8.RuneCountInString(query) < minQueryChars {
		return nil, nil
	}
	items, err := c.Search(ctx, query, MarketplaceID(country), searchLimit)
	if err != nil {
		return nil, err
	}
	return ToListings(items), nil
}

// ToListings maps the first item summaries to listings, dropping those
// without a title, a URL or a positive price.
func ToListings(items []ItemSummary) []model.MarketplaceListing {
	if len(items) > mappedLimit {
		items = items[:mappedLimit]
	}
	listings := []model.MarketplaceListing{}
	for _, it := range items {
		l := model.MarketplaceListing{
			Title:    it.Title,
			URL:      it.ItemWebURL,
			ImageURL: PickBestImageURL(it),
		}
		if it.Price != nil {
			l.Price = float64(it.Price.Value)
			l.Currency = it.Price.Currency
		}
		if l.Title == "" || l.URL == "" || !(l.Price > 0) {
			continue
		}
		listings = append(listings, l)
	}
	return listings
}

var imageSizeRe = regexp.MustCompile(`(?i)/s-l(\d+)([./])`)

func imageSize(u string) int {
	m := imageSizeRe.FindStringSubmatch(u)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// UpgradeImageURL rewrites an eBay image URL to at least minSize pixels.
// URLs without a size marker are returned unchanged.
func UpgradeImageURL(u string, minSize int) string {
	size := imageSize(u)
	if size < 0 || size >= minSize {
		return u
	}
	loc := imageSizeRe.FindStringSubmatchIndex(u)
	return u[:loc[0]] + "/s-l" + strconv.Itoa(minSize) + u[loc[4]:]
}

// PickBestImageURL returns the largest candidate image of an item after
// upgrading each to minImageSize.
func PickBestImageURL(it ItemSummary) string {
	var candidates []string
	if it.Image != nil {
		candidates = append(candidates, it.Image.ImageURL)
	}
	candidates = append(candidates, it.ImageURL)
	for _, t := range it.ThumbnailImages {
		candidates = append(candidates, t.ImageURL)
	}

	var upgraded []string
	for _, u := range candidates {
		if strings.TrimSpace(u) != "" {
			upgraded = append(upgraded, UpgradeImageURL(u, minImageSize))
		}
	}
	if len(upgraded) == 0 {
		return ""
	}
	sort.SliceStable(upgraded, func(i, j int) bool { return imageSize(upgraded[i]) > imageSize(upgraded[j]) })
	return upgraded[0]
}

// BuildQuery turns an identification into a search query of at most
// maxQueryChars characters.
func BuildQuery(id model.Identification) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if id.Year != nil {
		add(strconv.Itoa(*id.Year))
	}
	add(deref(id.Manufacturer))
	add(deref(id.SetName))
	add(deref(id.Player))
	if n := deref(id.CardNumber); strings.TrimSpace(n) != "" {
		add("#" + strings.TrimSpace(n))
	}
	if id.Autograph != nil && *id.Autograph {
		add("auto")
	}
	add(deref(id.GradingCompany))
	add(deref(id.Grade))

	q := strings.Join(parts, " ")
	if r := []rune(q); len(r) > maxQueryChars {
		q = strings.TrimSpace(string(r[:maxQueryChars]))
	}
	return q
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
