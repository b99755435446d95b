package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

func TestErrorHandler(t *testing.T) {
	s := New(logger.NewNop())
	s.App.Get("/teapot", func(*fiber.Ctx) error { return fiber.NewError(http.StatusTeapot, "short and stout") })
	s.App.Get("/boom", func(*fiber.Ctx) error { return errors.New("db password leaked in here") })
	s.App.Get("/panic", func(*fiber.Ctx) error { panic("oops") })

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{path: "/teapot", status: http.StatusTeapot, msg: "short and stout"},
		{path: "/boom", status: http.StatusInternalServerError, msg: "internal error"},
		{path: "/panic", status: http.StatusInternalServerError, msg: "internal error"},
		{path: "/missing", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}

			var body struct {
				Error string `json:"error"`
			}
			if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if tt.msg != "" && body.Error != tt.msg {
				t.Errorf("error = %q, want %q", body.Error, tt.msg)
			}
		})
	}
}
