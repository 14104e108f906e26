package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
)

// ErrNotConfigured - адрес сервиса зрения не задан
var ErrNotConfigured = errors.New("vision service is not configured")

// CameraStatus - ответ сервиса на запуск и остановку камеры
type CameraStatus struct {
	Status string `json:"status"`
	Zone   string `json:"zone"`
}

// Client - HTTP клиент внешнего сервиса зрения
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиент; пустой baseURL дает ErrNotConfigured на каждый вызов
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze отправляет кадр на анализ
func (c *Client) Analyze(ctx context.Context, frame []byte) (models.FrameAnalysis, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return models.FrameAnalysis{}, fmt.Errorf("vision: could not build form: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return models.FrameAnalysis{}, fmt.Errorf("vision: could not build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return models.FrameAnalysis{}, fmt.Errorf("vision: could not build form: %w", err)
	}

	var resp struct {
		Status   string               `json:"status"`
		Message  string               `json:"message"`
		Analysis models.FrameAnalysis `json:"analysis"`
	}
	if err := c.do(ctx, "/camera/analyze", mw.FormDataContentType(), &body, &resp); err != nil {
		return models.FrameAnalysis{}, err
	}
	if resp.Status == "error" {
		return models.FrameAnalysis{}, fmt.Errorf("vision: analysis failed: %s", resp.Message)
	}
	return resp.Analysis, nil
}

// Start запускает анализ потока камеры для зоны
func (c *Client) Start(ctx context.Context, zone, source string) (CameraStatus, error) {
	payload, err := json.Marshal(map[string]string{"zone": zone, "source": source})
	if err != nil {
		return CameraStatus{}, fmt.Errorf("vision: could not marshal request: %w", err)
	}
	var status CameraStatus
	err = c.do(ctx, "/camera/start", "application/json", bytes.NewReader(payload), &status)
	return status, err
}

// Stop останавливает анализ потока камеры для зоны
func (c *Client) Stop(ctx context.Context, zone string) (CameraStatus, error) {
	var status CameraStatus
	err := c.do(ctx, "/camera/stop/"+url.PathEscape(zone), "application/json", nil, &status)
	return status, err
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("vision: could not create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vision: request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vision: %s responded with %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vision: could not decode %s response: %w", path, err)
	}
	return nil
}
