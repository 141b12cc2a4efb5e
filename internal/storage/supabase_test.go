package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/storage/v1/object/card-images/user-1/abc-front.jpg" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer service-key" || r.Header.Get("apikey") != "service-key" {
			t.Errorf("auth headers = %v", r.Header)
		}
		if r.Header.Get("x-upsert") != "true" || r.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("headers = %v", r.Header)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "jpeg" {
			t.Errorf("body = %q", body)
		}
		_, _ = w.Write([]byte(`{"Key":"card-images/user-1/abc-front.jpg"}`))
	}))
	defer server.Close()

	bucket := NewClient(server.URL+"/", "service-key").Bucket("card-images")
	if err := bucket.Upload(context.Background(), "user-1/abc-front.jpg", "image/jpeg", []byte("jpeg"), true); err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestUploadConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, "k").Bucket("b").Upload(context.Background(), "p.jpg", "", nil, false)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusConflict || statusErr.Message != "The resource already exists" {
		t.Fatalf("err = %v", err)
	}
}

func TestRemove(t *testing.T) {
	var got map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/storage/v1/object/card-images" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	bucket := NewClient(server.URL, "k").Bucket("card-images")
	if err := bucket.Remove(context.Background(), []string{"u/a.jpg", "u/b.jpg"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if want := map[string][]string{"prefixes": {"u/a.jpg", "u/b.jpg"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("body = %v, want %v", got, want)
	}
	if err := bucket.Remove(context.Background(), nil); err != nil {
		t.Fatalf("empty Remove: %v", err)
	}
}

func TestPublicURLAndPathFromURL(t *testing.T) {
	bucket := NewClient("https://proj.supabase.co", "k").Bucket("card-images")

	public := bucket.PublicURL("user-1/abc my card.jpg")
	if want := "https://proj.supabase.co/storage/v1/object/public/card-images/user-1/abc%20my%20card.jpg"; public != want {
		t.Fatalf("PublicURL = %q, want %q", public, want)
	}

	tests := []struct {
		url  string
		path string
		ok   bool
	}{
		{public, "user-1/abc my card.jpg", true},
		{"https://proj.supabase.co/storage/v1/object/sign/card-images/user-1/x.png?token=abc", "user-1/x.png", true},
		{"https://proj.supabase.co/storage/v1/object/public/profile-avatars/user-1/avatar.png", "", false},
		{"https://elsewhere.test/x.jpg", "", false},
		{"https://proj.supabase.co/storage/v1/object/public/card-images/", "", false},
	}
	for _, tt := range tests {
		path, ok := bucket.PathFromURL(tt.url)
		if path != tt.path || ok != tt.ok {
			t.Errorf("PathFromURL(%q) = %q, %v; want %q, %v", tt.url, path, ok, tt.path, tt.ok)
		}
	}
}
