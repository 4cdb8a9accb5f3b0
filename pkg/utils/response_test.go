package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func performResponseTestRequest(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding %s response body: %v", path, err)
	}
	return resp.StatusCode, body
}

func TestEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/success", func(c *fiber.Ctx) error {
		return Success(c, fiber.StatusCreated, fiber.Map{"id": 1})
	})
	app.Get("/error", func(c *fiber.Ctx) error {
		return Error(c, fiber.StatusConflict, "This email is already registered. Try logging in.")
	})

	t.Run("success wraps data", func(t *testing.T) {
		status, body := performResponseTestRequest(t, app, "/success")
		if status != fiber.StatusCreated {
			t.Fatalf("expected status %d, got %d", fiber.StatusCreated, status)
		}
		if body["success"] != true {
			t.Fatalf("expected success=true, got %v", body["success"])
		}
		data, ok := body["data"].(map[string]any)
		if !ok || data["id"] != float64(1) {
			t.Fatalf("unexpected data payload %v", body["data"])
		}
	})

	t.Run("error carries message only", func(t *testing.T) {
		status, body := performResponseTestRequest(t, app, "/error")
		if status != fiber.StatusConflict {
			t.Fatalf("expected status %d, got %d", fiber.StatusConflict, status)
		}
		if body["success"] != false {
			t.Fatalf("expected success=false, got %v", body["success"])
		}
		if body["error"] != "This email is already registered. Try logging in." {
			t.Fatalf("unexpected error message %v", body["error"])
		}
		if _, ok := body["data"]; ok {
			t.Fatal("expected no data field on error envelope")
		}
	})
}
