package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// fakeCards pages over a fixed slice and ignores predicates.
type fakeCards struct {
	cards   []model.Card
	queries []repository.CardQuery
	created *model.CreateCardRequest
	updated *model.UpdateCardRequest
	deleted []string
}

func (f *fakeCards) List(_ context.Context, q repository.CardQuery) ([]model.Card, int, error) {
	f.queries = append(f.queries, q)
	start := min(q.Offset, len(f.cards))
	end := min(start+q.Limit, len(f.cards))
	return f.cards[start:end], len(f.cards), nil
}

func (f *fakeCards) GetByID(_ context.Context, id string) (*model.Card, error) {
	for i := range f.cards {
		if f.cards[i].ID == id {
			c := f.cards[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCards) Create(_ context.Context, userID string, req *model.CreateCardRequest, urls []string) (string, error) {
	f.created = req
	f.cards = append(f.cards, model.Card{ID: "new-card", UserID: userID, Title: req.Title, ImageURLs: urls})
	return "new-card", nil
}

func (f *fakeCards) Update(_ context.Context, id, userID string, req *model.UpdateCardRequest) (bool, error) {
	f.updated = req
	return true, nil
}

func (f *fakeCards) Delete(_ context.Context, id, _ string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCards) Stats(context.Context) (*model.CardStats, error) {
	return &model.CardStats{Total: len(f.cards), Public: 2, ForSale: 1, Profiles: 3}, nil
}

type fakeOwners struct{}

func (fakeOwners) OwnersByIDs(context.Context, []string) ([]model.OwnerProfile, error) {
	return nil, nil
}

type fakeBucket struct {
	uploaded []string
}

func (b *fakeBucket) Upload(_ context.Context, path, _ string, _ []byte, _ bool) error {
	b.uploaded = append(b.uploaded, path)
	return nil
}

func (b *fakeBucket) PublicURL(path string) string           { return "https://store.test/" + path }
func (b *fakeBucket) PathFromURL(string) (string, bool)      { return "", false }
func (b *fakeBucket) Remove(context.Context, []string) error { return nil }

// asUser stands in for the auth middleware.
func asUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id != "" {
			c.Locals("user_id", id)
		}
		return c.Next()
	}
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func decodeBody(t *testing.T, body []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}
