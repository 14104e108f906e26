// Package client - HTTP и WebSocket клиент API панели безопасности.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 4 << 20
)

// APIError - ответ сервера с кодом не 2xx
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client - клиент API. Безопасен для конкурентного использования.
type Client struct {
	baseURL    string
	apiKey     string
	deviceID   string
	http       *http.Client
	normalizer *normalizer.Normalizer
}

// Option настраивает Client
type Option func(*Client)

// WithDeviceID задает идентификатор устройства для голосовых сигналов
func WithDeviceID(id string) Option {
	return func(c *Client) { c.deviceID = id }
}

// WithHTTPClient подменяет http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New создает клиента к baseURL (например http://localhost:8080/api/v1)
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		http:       &http.Client{Timeout: timeout},
		normalizer: normalizer.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL возвращает адрес API
func (c *Client) BaseURL() string { return c.baseURL }

// ListIncidents - GET /incidents
func (c *Client) ListIncidents(ctx context.Context) ([]models.Incident, error) {
	var out struct {
		Incidents []models.Incident `json:"incidents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/incidents", nil, &out); err != nil {
		return nil, err
	}
	return out.Incidents, nil
}

// Summary - GET /summary
func (c *Client) Summary(ctx context.Context) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/summary", nil, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// ListLostFound - GET /lostfound
func (c *Client) ListLostFound(ctx context.Context) ([]models.LostFoundItem, error) {
	var out struct {
		Items []models.LostFoundItem `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/lostfound", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ReportLostFound - POST /lostfound/report (multipart)
func (c *Client) ReportLostFound(ctx context.Context, reporter, description string, image []byte) (models.LostFoundItem, error) {
	fields := map[string]string{"reporter": reporter, "description": description}
	body, contentType, err := multipartBody(fields, image)
	if err != nil {
		return models.LostFoundItem{}, err
	}
	var out struct {
		Item models.LostFoundItem `json:"item"`
	}
	if err := c.do(ctx, http.MethodPost, "/lostfound/report", body, contentType, &out); err != nil {
		return models.LostFoundItem{}, err
	}
	return out.Item, nil
}

// AddIncident - POST /incidents/add
func (c *Client) AddIncident(ctx context.Context, inc models.Incident) (models.Incident, error) {
	var out struct {
		Incident models.Incident `json:"incident"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/incidents/add", inc, &out); err != nil {
		return models.Incident{}, err
	}
	return out.Incident, nil
}

// Ingest нормализует производный инцидент на устройстве и отправляет его на сервер
func (c *Client) Ingest(ctx context.Context, p normalizer.Payload) (models.Incident, error) {
	inc, err := c.normalizer.Normalize(p)
	if err != nil {
		return models.Incident{}, fmt.Errorf("client: normalize: %w", err)
	}
	if inc.SourceDeviceID == "" {
		inc.SourceDeviceID = c.deviceID
	}
	return c.AddIncident(ctx, inc)
}

// SubmitVoiceAlert - POST /voice-alert
func (c *Client) SubmitVoiceAlert(ctx context.Context, alert models.VoiceAlert) error {
	sub := models.VoiceAlertSubmission{
		VoiceAlert: alert,
		DeviceID:   c.deviceID,
		DeviceInfo: &models.DeviceInfo{DeviceID: c.deviceID, Platform: "go"},
	}
	return c.doJSON(ctx, http.MethodPost, "/voice-alert", sub, nil)
}

// UpdateStatus - PATCH /incidents/:id/status
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.Status) (models.Incident, error) {
	var out struct {
		Incident models.Incident `json:"incident"`
	}
	path := "/incidents/" + url.PathEscape(id) + "/status"
	if err := c.doJSON(ctx, http.MethodPatch, path, map[string]string{"status": string(status)}, &out); err != nil {
		return models.Incident{}, err
	}
	return out.Incident, nil
}

// StartCamera - POST /camera/start
func (c *Client) StartCamera(ctx context.Context, zone, source string) error {
	return c.doJSON(ctx, http.MethodPost, "/camera/start", map[string]string{"zone": zone, "source": source}, nil)
}

// StopCamera - POST /camera/stop/:zone
func (c *Client) StopCamera(ctx context.Context, zone string) error {
	return c.doJSON(ctx, http.MethodPost, "/camera/stop/"+url.PathEscape(zone), nil, nil)
}

// AnalyzeFrame - POST /camera/analyze (multipart image)
func (c *Client) AnalyzeFrame(ctx context.Context, frame []byte) (models.FrameAnalysis, error) {
	body, contentType, err := multipartBody(nil, frame)
	if err != nil {
		return models.FrameAnalysis{}, err
	}
	var out struct {
		Analysis models.FrameAnalysis `json:"analysis"`
	}
	if err := c.do(ctx, http.MethodPost, "/camera/analyze", body, contentType, &out); err != nil {
		return models.FrameAnalysis{}, err
	}
	return out.Analysis, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBody)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(limited).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

func multipartBody(fields map[string]string, image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("client: write field %s: %w", k, err)
		}
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "frame.jpg")
		if err != nil {
			return nil, "", fmt.Errorf("client: create file part: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return nil, "", fmt.Errorf("client: write image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("client: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
