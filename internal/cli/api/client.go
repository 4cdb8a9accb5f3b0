package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client wraps HTTP calls to the HealthMate API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a Client from a base URL (e.g. http://localhost:8080) and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/") + "/api",
		Token:   token,
		HTTPClient: &http.Client{
			// The assistant may take up to a minute to answer.
			Timeout: 2 * time.Minute,
		},
	}
}

// Response is the standard { success, data, error } envelope.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// APIError is returned when the server sends a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func (c *Client) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: string(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) Get(path string, out interface{}) error {
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// Post sends a POST with a JSON body; a nil body sends none.
func (c *Client) Post(path string, body interface{}, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := c.newRequest(http.MethodPost, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doJSON(req, out)
}

// Upload streams filePath as a multipart "file" field.
func (c *Client) Upload(path, filePath, contentType string, out interface{}) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()

		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filePath)))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := writer.Close(); err != nil {
			pw.CloseWithError(err)
		}
	}()

	req, err := c.newRequest(http.MethodPost, path, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.doJSON(req, out)
}

func (c *Client) Register(in RegisterRequest) (*RegisterResponse, error) {
	var resp Response[RegisterResponse]
	if err := c.Post("/auth/register", in, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) Login(email, password string) (*LoginResponse, error) {
	var resp Response[LoginResponse]
	body := map[string]string{"email": email, "password": password}
	if err := c.Post("/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) Logout() error {
	return c.Post("/auth/logout", nil, nil)
}

func (c *Client) Me() (*MeResponse, error) {
	var resp Response[MeResponse]
	if err := c.Get("/auth/me", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) Activity() ([]ActivityEntry, error) {
	var resp Response[[]ActivityEntry]
	if err := c.Get("/auth/activity", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Transcript() (*TranscriptResponse, error) {
	var resp Response[TranscriptResponse]
	if err := c.Get("/consultation", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) SendMessage(message string) (*MessageResponse, error) {
	var resp Response[MessageResponse]
	if err := c.Post("/consultation/messages", map[string]string{"message": message}, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) StageRecord(filePath string) (*StagedUpload, error) {
	var resp Response[StagedUpload]
	if err := c.Upload("/records/stage", filePath, "application/pdf", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) ConfirmRecord(storageLocation, fileName string) (*Record, error) {
	var resp Response[Record]
	body := map[string]string{"storageLocation": storageLocation, "fileName": fileName}
	if err := c.Post("/records", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) Records() ([]Record, error) {
	var resp Response[[]Record]
	if err := c.Get("/records", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) RecordText(id uint) (*RecordText, error) {
	var resp Response[RecordText]
	if err := c.Get(fmt.Sprintf("/records/%d/text", id), &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) Version() (*VersionInfo, error) {
	var resp Response[VersionInfo]
	if err := c.Get("/version", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
