package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/pricing"
	"github.com/JulienRioux/slabbers/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrCardNotFound       = errors.New("card not found")
	ErrNotCardOwner       = errors.New("not the card owner")
	ErrMissingFields      = errors.New("missing required fields: title, year, player, manufacturer")
	ErrNoImages           = errors.New("at least one image is required")
	ErrPriceRequired      = errors.New("price_cents is required when for_sale is true")
	ErrSportRequired      = errors.New("sport is required when is_sport is true")
	ErrInvalidGrade       = errors.New("numeric grades must be between 1 and 10 in half-point steps")
	ErrStorageUnavailable = errors.New("image storage is not configured")
)

// MaxCardImages is the number of images kept per card.
const MaxCardImages = 6

// CardStore is the persistence the card service needs.
type CardStore interface {
	List(ctx context.Context, q repository.CardQuery) ([]model.Card, int, error)
	GetByID(ctx context.Context, id string) (*model.Card, error)
	Create(ctx context.Context, userID string, req *model.CreateCardRequest, imageURLs []string) (string, error)
	Update(ctx context.Context, id, userID string, req *model.UpdateCardRequest) (bool, error)
	Delete(ctx context.Context, id, userID string) error
	Stats(ctx context.Context) (*model.CardStats, error)
}

type OwnerStore interface {
	OwnersByIDs(ctx context.Context, ids []string) ([]model.OwnerProfile, error)
}

// ImageBucket stores card photos.
type ImageBucket interface {
	Upload(ctx context.Context, path, contentType string, data []byte, upsert bool) error
	PublicURL(path string) string
	PathFromURL(url string) (string, bool)
	Remove(ctx context.Context, paths []string) error
}

// CardNotifier is told about cards entering or leaving the public
// marketplace.
type CardNotifier interface {
	CardListed(card *model.CardSummary)
	CardRemoved(card *model.Card)
}

// ImageUpload is one uploaded image file.
type ImageUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type CardService struct {
	cards     CardStore
	profiles  OwnerStore
	images    ImageBucket
	notifiers []CardNotifier
}

func NewCardService(cards CardStore, profiles OwnerStore, images ImageBucket, notifiers ...CardNotifier) *CardService {
	return &CardService{cards: cards, profiles: profiles, images: images, notifiers: notifiers}
}

func (s *CardService) CreateCard(ctx context.Context, userID string, req *model.CreateCardRequest, uploads []ImageUpload) (string, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Player = strings.TrimSpace(req.Player)
	req.Manufacturer = strings.TrimSpace(req.Manufacturer)
	if req.Title == "" || req.Player == "" || req.Manufacturer == "" || req.Year == 0 {
		return "", ErrMissingFields
	}
	if len(uploads) == 0 {
		return "", ErrNoImages
	}
	if len(uploads) > MaxCardImages {
		uploads = uploads[:MaxCardImages]
	}
	if req.ForSale && (req.PriceCents == nil || *req.PriceCents <= 0) {
		return "", ErrPriceRequired
	}
	if !req.ForSale {
		req.PriceCents = nil
	}
	req.Currency = normalizeCurrency(req.Currency)
	if req.IsGraded {
		grade, err := NormalizeGrade(req.Grade)
		if err != nil {
			return "", err
		}
		req.Grade = grade
	} else {
		req.GradingCompany, req.Grade = nil, nil
	}
	if !req.SerialNumbered {
		req.PrintRun = nil
	}

	if s.images == nil {
		return "", ErrStorageUnavailable
	}
	urls := make([]string, 0, len(uploads))
	for _, up := range uploads {
		path := cardImagePath(userID, up.Name)
		if err := s.images.Upload(ctx, path, up.ContentType, up.Data, false); err != nil {
			return "", fmt.Errorf("upload image: %w", err)
		}
		urls = append(urls, s.images.PublicURL(path))
	}

	id, err := s.cards.Create(ctx, userID, req, urls)
	if err != nil {
		return "", err
	}

	if !req.IsPrivate && req.ForSale {
		if card, err := s.cards.GetByID(ctx, id); err == nil {
			s.announce(ctx, card)
		} else {
			log.Printf("[CARDS] reload %s for notification: %v", id, err)
		}
	}
	return id, nil
}

func cardImagePath(userID, name string) string {
	safe := strings.ReplaceAll(strings.TrimSpace(name), "/", "-")
	if safe == "" {
		safe = "image"
	}
	return fmt.Sprintf("%s/%s-%s", userID, uuid.NewString(), safe)
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return pricing.DefaultCurrency
	}
	return c
}

// GetCard returns a card with its owner. Private cards are only visible to
// their owner; anyone else gets ErrCardNotFound.
func (s *CardService) GetCard(ctx context.Context, id, viewerID string) (*model.CardSummary, error) {
	card, err := s.cards.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}
	if card.IsPrivate && card.UserID != viewerID {
		return nil, ErrCardNotFound
	}
	items := s.attachOwners(ctx, []model.Card{*card})
	return &items[0], nil
}

// UpdateCard rewrites the editable fields of a card. Fields that depend on a
// switched-off flag are cleared.
func (s *CardService) UpdateCard(ctx context.Context, id, userID string, req *model.UpdateCardRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Player = strings.TrimSpace(req.Player)
	req.Manufacturer = strings.TrimSpace(req.Manufacturer)
	if req.Title == "" || req.Player == "" || req.Manufacturer == "" || req.Year == nil || *req.Year == 0 {
		return ErrMissingFields
	}
	if req.IsSport && req.Sport == nil {
		return ErrSportRequired
	}
	if req.ForSale && (req.PriceCents == nil || *req.PriceCents <= 0) {
		return ErrPriceRequired
	}

	if !req.IsSport {
		req.Team, req.League, req.Sport = nil, nil, nil
	}
	if req.IsGraded {
		grade, err := NormalizeGrade(req.Grade)
		if err != nil {
			return err
		}
		req.Grade = grade
	} else {
		req.GradingCompany, req.Grade = nil, nil
	}
	if !req.SerialNumbered {
		req.PrintRun = nil
	}
	if !req.ForSale {
		req.PriceCents = nil
	}
	req.Currency = normalizeCurrency(req.Currency)

	before, err := s.cards.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCardNotFound
	}
	if err != nil {
		return err
	}
	if before.UserID != userID {
		return ErrCardNotFound
	}

	ok, err := s.cards.Update(ctx, id, userID, req)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCardNotFound
	}

	wasListed := !before.IsPrivate && before.ForSale
	isListed := !req.IsPrivate && req.ForSale
	switch {
	case isListed && !wasListed:
		if card, err := s.cards.GetByID(ctx, id); err == nil {
			s.announce(ctx, card)
		}
	case wasListed && !isListed:
		s.withdraw(before)
	}
	return nil
}

// DeleteCard removes a card owned by userID. Stored images are removed on a
// best-effort basis before the row is deleted.
func (s *CardService) DeleteCard(ctx context.Context, id, userID string) error {
	card, err := s.cards.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCardNotFound
	}
	if err != nil {
		return err
	}
	if card.UserID != userID {
		return ErrNotCardOwner
	}

	s.removeImages(ctx, card.ImageURLs)

	if err := s.cards.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCardNotFound
		}
		return err
	}

	if !card.IsPrivate && card.ForSale {
		s.withdraw(card)
	}
	return nil
}

func (s *CardService) removeImages(ctx context.Context, urls []string) {
	if s.images == nil {
		return
	}
	var paths []string
	for _, u := range urls {
		if p, ok := s.images.PathFromURL(u); ok {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return
	}
	if err := s.images.Remove(ctx, paths); err != nil {
		log.Printf("[CARDS] image cleanup failed: %v", err)
	}
}

func (s *CardService) Stats(ctx context.Context) (*model.CardStats, error) {
	return s.cards.Stats(ctx)
}

func (s *CardService) announce(ctx context.Context, card *model.Card) {
	if len(s.notifiers) == 0 {
		return
	}
	items := s.attachOwners(ctx, []model.Card{*card})
	for _, n := range s.notifiers {
		n.CardListed(&items[0])
	}
}

func (s *CardService) withdraw(card *model.Card) {
	for _, n := range s.notifiers {
		n.CardRemoved(card)
	}
}
