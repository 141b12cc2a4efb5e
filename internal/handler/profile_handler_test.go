package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/repository"
	"github.com/JulienRioux/slabbers/internal/service"

	"github.com/gofiber/fiber/v2"
)

type fakeProfiles struct {
	rows map[string]*model.Profile
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	if p, ok := f.rows[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProfiles) Upsert(_ context.Context, id string, username, displayName *string) (*model.Profile, error) {
	if username != nil && *username == "taken" {
		return nil, repository.ErrUsernameTaken
	}
	p := &model.Profile{ID: id, Username: username, DisplayName: displayName, UpdatedAt: time.Now()}
	f.rows[id] = p
	return p, nil
}

func (f *fakeProfiles) SetAvatar(_ context.Context, id, avatarURL string) error {
	p, ok := f.rows[id]
	if !ok {
		p = &model.Profile{ID: id}
		f.rows[id] = p
	}
	p.AvatarURL = &avatarURL
	return nil
}

func newProfileApp(store *fakeProfiles, avatars service.ImageBucket) *fiber.App {
	h := NewProfileHandler(service.NewProfileService(store, avatars))
	app := fiber.New()
	app.Get("/users/:id", h.Get)
	app.Put("/profile", asUser("u1"), h.Update)
	app.Post("/profile/avatar", asUser("u1"), h.UploadAvatar)
	return app
}

func TestProfileGet(t *testing.T) {
	name := "griffey24"
	store := &fakeProfiles{rows: map[string]*model.Profile{"u1": {ID: "u1", Username: &name}}}
	app := newProfileApp(store, nil)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var owner model.OwnerProfile
	decodeBody(t, body, &owner)
	if owner.ID != "u1" || owner.Username == nil || *owner.Username != name {
		t.Fatalf("owner = %+v", owner)
	}
	if strings.Contains(string(body), "created_at") {
		t.Fatalf("public profile leaks timestamps: %s", body)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/users/nobody", nil))
	if resp.StatusCode != 404 {
		t.Fatalf("missing profile status = %d", resp.StatusCode)
	}
}

func TestProfileUpdate(t *testing.T) {
	app := newProfileApp(&fakeProfiles{rows: map[string]*model.Profile{}}, nil)

	put := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/profile", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	resp, body := doRequest(t, app, put(`{"username":"  slabking ","display_name":"   "}`))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var p model.Profile
	decodeBody(t, body, &p)
	if p.Username == nil || *p.Username != "slabking" || p.DisplayName != nil {
		t.Fatalf("profile = %+v", p)
	}

	tests := []struct {
		body string
		want int
	}{
		{`{"username":"taken"}`, 409},
		{`{"username":"` + strings.Repeat("x", 33) + `"}`, 400},
		{`not json`, 400},
	}
	for _, tt := range tests {
		resp, _ := doRequest(t, app, put(tt.body))
		if resp.StatusCode != tt.want {
			t.Errorf("PUT %s = %d, want %d", tt.body, resp.StatusCode, tt.want)
		}
	}
}

func TestProfileUploadAvatar(t *testing.T) {
	store := &fakeProfiles{rows: map[string]*model.Profile{}}
	bucket := &fakeBucket{}
	app := newProfileApp(store, bucket)

	resp, body := doRequest(t, app, multipartRequest(t, "/profile/avatar", nil, "avatar", 1))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var out map[string]string
	decodeBody(t, body, &out)
	if out["avatar_url"] != "https://store.test/u1/avatar.jpg" {
		t.Fatalf("avatar_url = %q", out["avatar_url"])
	}
	if len(bucket.uploaded) != 1 || *store.rows["u1"].AvatarURL != out["avatar_url"] {
		t.Fatalf("uploaded = %v", bucket.uploaded)
	}

	resp, _ = doRequest(t, app, multipartRequest(t, "/profile/avatar", nil, "avatar", 0))
	if resp.StatusCode != 400 {
		t.Fatalf("missing file status = %d", resp.StatusCode)
	}

	noStorage := newProfileApp(store, nil)
	resp, _ = doRequest(t, noStorage, multipartRequest(t, "/profile/avatar", nil, "avatar", 1))
	if resp.StatusCode != 503 {
		t.Fatalf("storage disabled status = %d", resp.StatusCode)
	}
}
