package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/healthmate/server/internal/middleware"
	"github.com/healthmate/server/internal/services"
	"github.com/healthmate/server/internal/session"
	"github.com/healthmate/server/internal/storage"
	"github.com/healthmate/server/internal/testutil"
	"github.com/healthmate/server/pkg/utils"
	"gorm.io/gorm"
)

// fakeModel answers with a canned reply, or fails with err.
type fakeModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeModel) set(reply string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
	f.err = err
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	model    *fakeModel
	store    *storage.LocalStore
	sessions *session.MemoryStore
}

var testSetupOnce sync.Once

const testAssistantModel = "gemini-test"

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		utils.ConfigureJWT("test-secret", 24)
		utils.ConfigurePasswordHashing(1024, 1)
	})

	db := testutil.OpenDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed creating local store: %v", err)
	}

	model := &fakeModel{reply: "You likely have a common cold."}
	sessions := session.NewMemoryStore(time.Hour)
	audit := services.NewAuditService(db)
	t.Cleanup(audit.Close)

	documents := services.NewDocumentService(db)
	routes := &Routes{
		Auth:         NewAuthHandler(services.NewCredentialService(db), sessions, audit),
		Consultation: NewConsultationHandler(services.NewAssistantService(model, 5*time.Second, false), sessions),
		Records:      NewRecordsHandler(services.NewIngestionService(db, store, documents, time.Hour), documents, audit),
		Session:      middleware.NewSessionMiddleware(sessions),

		AssistantModel: testAssistantModel,
	}

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	routes.Mount(app)

	return &testEnv{app: app, db: db, model: model, store: store, sessions: sessions}
}

func registrationPayload(email string) map[string]string {
	return map[string]string{
		"firstName":   "Ann",
		"lastName":    "Lee",
		"dateOfBirth": "1990-01-01",
		"email":       email,
		"password":    "pw123",
	}
}

// signUpAndLogin registers a user through the API and returns a bearer token for a fresh session.
func signUpAndLogin(t *testing.T, env *testEnv, email string) string {
	t.Helper()

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", registrationPayload(email), nil)
	assertStatus(t, resp, fiber.StatusCreated)
	resp.Body.Close()

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": "pw123",
	}, nil)
	assertStatus(t, resp, fiber.StatusOK)
	data := decodeJSONMap(t, resp)["data"].(map[string]any)
	return data["token"].(string)
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func performUpload(t *testing.T, app *fiber.App, path, filename, contentType string, data []byte, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	partHeader.Set("Content-Type", contentType)
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("failed creating multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed writing multipart body: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	requestHeaders := map[string]string{"Content-Type": writer.FormDataContentType()}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	return performRequest(t, app, http.MethodPost, path, &buf, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
