package service

import (
	"context"
	"errors"
	"log"

	"github.com/JulienRioux/slabbers/internal/ebay"
	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/pricing"
	"github.com/JulienRioux/slabbers/internal/vision"
)

var ErrVisionUnavailable = errors.New("card identification is not configured")

// listingsReturned is how many comparable listings are sent back to the
// client. The estimate uses all of them.
const listingsReturned = 6

type CardIdentifier interface {
	Identify(ctx context.Context, images []vision.Image) (model.Identification, error)
}

type ListingFinder interface {
	FindListings(ctx context.Context, query, country string) ([]model.MarketplaceListing, error)
}

type IdentifyService struct {
	vision CardIdentifier
	market ListingFinder
}

// NewIdentifyService builds the identification flow. market may be nil, in
// which case results carry no listings or estimate.
func NewIdentifyService(v CardIdentifier, market ListingFinder) *IdentifyService {
	return &IdentifyService{vision: v, market: market}
}

// Identify reads the card in images and prices it against live marketplace
// listings in country. Marketplace failures leave the estimate empty.
func (s *IdentifyService) Identify(ctx context.Context, images []vision.Image, country string) (*model.IdentifyResult, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if s.vision == nil {
		return nil, ErrVisionUnavailable
	}

	id, err := s.vision.Identify(ctx, images)
	if err != nil {
		return nil, err
	}
	result := &model.IdentifyResult{
		Identification: id,
		Listings:       []model.MarketplaceListing{},
	}
	if s.market == nil {
		return result, nil
	}

	query := ebay.BuildQuery(id)
	listings, err := s.market.FindListings(ctx, query, country)
	if err != nil {
		log.Printf("[IDENTIFY] marketplace search for %q failed: %v", query, err)
		return result, nil
	}
	if len(listings) == 0 {
		return result, nil
	}

	result.PriceEstimate = pricing.Estimate(listings)
	if len(listings) > listingsReturned {
		listings = listings[:listingsReturned]
	}
	result.Listings = listings
	return result, nil
}
