package ebay

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/JulienRioux/slabbers/internal/model"
)

func TestMarketplaceID(t *testing.T) {
	tests := map[string]string{"US": "EBAY_US", " gb ": "EBAY_GB", "au": "EBAY_AU", "JP": "EBAY_CA", "": "EBAY_CA"}
	for in, want := range tests {
		if got := MarketplaceID(in); got != want {
			t.Errorf("MarketplaceID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlexibleNumber(t *testing.T) {
	tests := map[string]float64{`12.5`: 12.5, `"12.50"`: 12.5, `" 7 "`: 7, `"abc"`: 0, `null`: 0, `true`: 0}
	for raw, want := range tests {
		var m Money
		if err := json.Unmarshal([]byte(`{"value":`+raw+`}`), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if float64(m.Value) != want {
			t.Errorf("value %s = %v, want %v", raw, m.Value, want)
		}
	}
}

func TestUpgradeImageURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://i.ebayimg.com/images/g/x/s-l225.jpg", "https://i.ebayimg.com/images/g/x/s-l500.jpg"},
		{"https://i.ebayimg.com/images/g/x/S-L140/abc", "https://i.ebayimg.com/images/g/x/s-l500/abc"},
		{"https://i.ebayimg.com/images/g/x/s-l1600.jpg", "https://i.ebayimg.com/images/g/x/s-l1600.jpg"},
		{"https://example.test/photo.jpg", "https://example.test/photo.jpg"},
	}
	for _, tt := range tests {
		if got := UpgradeImageURL(tt.in, 500); got != tt.want {
			t.Errorf("UpgradeImageURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPickBestImageURL(t *testing.T) {
	it := ItemSummary{
		Image:    &Image{ImageURL: "https://i.ebayimg.com/a/s-l225.jpg"},
		ImageURL: "",
		ThumbnailImages: []Image{
			{ImageURL: "https://i.ebayimg.com/b/s-l1600.jpg"},
			{ImageURL: "https://example.test/plain.jpg"},
		},
	}
	if got := PickBestImageURL(it); got != "https://i.ebayimg.com/b/s-l1600.jpg" {
		t.Fatalf("best = %q", got)
	}
	if got := PickBestImageURL(ItemSummary{}); got != "" {
		t.Fatalf("best of nothing = %q", got)
	}
}

func TestToListingsKeepsFirstTwelve(t *testing.T) {
	items := make([]ItemSummary, 20)
	for i := range items {
		items[i] = ItemSummary{Title: "t", ItemWebURL: "u", Price: &Money{Value: FlexibleNumber(i + 1), Currency: "CAD"}}
	}
	listings := ToListings(items)
	if len(listings) != 12 || listings[11].Price != 12 {
		t.Fatalf("listings = %d, last = %v", len(listings), listings[len(listings)-1].Price)
	}
}

func TestBuildQuery(t *testing.T) {
	year := 1989
	yes := true
	s := func(v string) *string { return &v }

	q := BuildQuery(model.Identification{
		Year: &year, Manufacturer: s("Upper Deck"), SetName: s(" "), Player: s("Ken Griffey Jr."),
		CardNumber: s(" 1 "), Autograph: &yes, GradingCompany: s("PSA"), Grade: s("9"),
	})
	if want := "1989 Upper Deck Ken Griffey Jr. #1 auto PSA 9"; q != want {
		t.Fatalf("query = %q, want %q", q, want)
	}

	if q := BuildQuery(model.Identification{}); q != "" {
		t.Fatalf("empty identification query = %q", q)
	}

	long := BuildQuery(model.Identification{Player: s(strings.Repeat("é", 200))})
	if n := len([]rune(long)); n != 120 {
		t.Fatalf("long query has %d characters", n)
	}
}
