package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func newTestAuth() *Auth {
	return NewAuth("test-secret", "ephemeral-chat", 0, logger.NewNop())
}

func TestActor_RoundTrip(t *testing.T) {
	a := newTestAuth()

	for _, want := range []entity.Actor{{ID: "alice"}, {ID: "root", Admin: true}} {
		token, err := a.Sign(want, time.Minute)
		if err != nil {
			t.Fatal(err)
		}

		got, err := a.Actor(token)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("actor = %+v, want %+v", got, want)
		}
	}
}

func TestActor_Rejects(t *testing.T) {
	a := newTestAuth()

	expired, _ := a.Sign(entity.Actor{ID: "alice"}, -time.Minute)
	foreign, _ := NewAuth("other-secret", "ephemeral-chat", 0, logger.NewNop()).Sign(entity.Actor{ID: "alice"}, time.Minute)
	otherIssuer, _ := NewAuth("test-secret", "someone-else", 0, logger.NewNop()).Sign(entity.Actor{ID: "alice"}, time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "ephemeral-chat",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("test-secret"))
	separator, _ := a.Sign(entity.Actor{ID: "alice:admin"}, time.Minute)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"expired":       expired,
		"wrong secret":  foreign,
		"wrong issuer":  otherIssuer,
		"no subject":    noSubject,
		"colon subject": separator,
		"alg none":      none,
		"garbage":       "not.a.token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Actor(token); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	a := newTestAuth()

	app := fiber.New()
	app.Get("/me", a.Handler(), func(ctx *fiber.Ctx) error {
		actor, _ := ActorFrom(ctx)

		return ctx.SendString(actor.ID)
	})

	token, _ := a.Sign(entity.Actor{ID: "bob"}, time.Minute)

	tests := []struct {
		name   string
		target string
		header string
		status int
		body   string
	}{
		{name: "header", target: "/me", header: "Bearer " + token, status: http.StatusOK, body: "bob"},
		{name: "query", target: "/me?access_token=" + token, status: http.StatusOK, body: "bob"},
		{name: "missing", target: "/me", status: http.StatusUnauthorized},
		{name: "bad", target: "/me", header: "Bearer nope", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.body != "" {
				b, _ := io.ReadAll(resp.Body)
				if string(b) != tt.body {
					t.Errorf("body = %q, want %q", b, tt.body)
				}
			}
		})
	}
}
