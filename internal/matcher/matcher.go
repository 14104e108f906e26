// Package matcher сверяет кадр камеры с бюро находок и поднимает
// уверенные совпадения до инцидентов.
package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
)

const (
	matchPath       = "/lostfound/match"
	maxResponseBody = 1 << 20
)

// Matcher возвращает кандидатов совпадения для кадра
//
//go:generate mockgen -source=matcher.go -destination=mocks/mock_matcher.go -package=mocks
type Matcher interface {
	Match(ctx context.Context, frame []byte) ([]models.MatchCandidate, error)
}

// HTTPMatcher - клиент сервиса сопоставления (multipart поле image)
type HTTPMatcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPMatcher создает клиента к baseURL
func NewHTTPMatcher(baseURL, apiKey string, timeout time.Duration) *HTTPMatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type matchResponse struct {
	Matches []models.MatchCandidate `json:"matches"`
}

func (m *HTTPMatcher) Match(ctx context.Context, frame []byte) ([]models.MatchCandidate, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("matcher: could not build form: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("matcher: could not write frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("matcher: could not close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+matchPath, &body)
	if err != nil {
		return nil, fmt.Errorf("matcher: could not create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if m.apiKey != "" {
		req.Header.Set("X-API-Key", m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matcher: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil, fmt.Errorf("matcher: unexpected status %d", resp.StatusCode)
	}

	var out matchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("matcher: could not decode response: %w", err)
	}
	return out.Matches, nil
}

// Top возвращает кандидата с наибольшим score
func Top(candidates []models.MatchCandidate) (models.MatchCandidate, bool) {
	if len(candidates) == 0 {
		return models.MatchCandidate{}, false
	}
	sorted := make([]models.MatchCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return sorted[0], true
}
