package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func whoAmIApp(mw fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/me", mw, func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	return app
}

func TestAuth(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	expired := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
	wrongKey := signToken(t, "other", jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	noSub := signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	noExp := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1"})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, 200, "user-1"},
		{"missing", "", 401, ""},
		{"not bearer", valid, 401, ""},
		{"expired", "Bearer " + expired, 401, ""},
		{"wrong key", "Bearer " + wrongKey, 401, ""},
		{"no subject", "Bearer " + noSub, 401, ""},
		{"no expiry", "Bearer " + noExp, 401, ""},
	}

	app := whoAmIApp(Auth(testSecret))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.body != "" {
				b, _ := io.ReadAll(resp.Body)
				if string(b) != tt.body {
					t.Fatalf("body = %q, want %q", b, tt.body)
				}
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{"sub": "user-2", "exp": time.Now().Add(time.Hour).Unix()})
	app := whoAmIApp(OptionalAuth(testSecret))

	for header, want := range map[string]string{
		"":                "",
		"Bearer garbage":  "",
		"Bearer " + valid: "user-2",
	} {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		b, _ := io.ReadAll(resp.Body)
		if string(b) != want {
			t.Fatalf("header %q: user = %q, want %q", header, b, want)
		}
	}
}

func TestAdminKey(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", AdminKey("k"), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	for key, want := range map[string]int{"": 403, "wrong": 403, "k": 204} {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("X-Admin-Key", key)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != want {
			t.Fatalf("key %q: status = %d, want %d", key, resp.StatusCode, want)
		}
	}

	disabled := fiber.New()
	disabled.Get("/admin", AdminKey(""), func(c *fiber.Ctx) error { return c.SendStatus(204) })
	resp, _ := disabled.Test(httptest.NewRequest("GET", "/admin", nil))
	if resp.StatusCode != 403 {
		t.Fatalf("empty admin key must lock the route, got %d", resp.StatusCode)
	}
}
