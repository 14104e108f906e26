package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
)

// DecodeRaw разбирает слабо типизированный JSON производителя в вариант Payload.
// Неизвестные поля и поля неверного типа игнорируются; ошибкой считается только
// нечитаемый JSON.
func DecodeRaw(source Source, data []byte) (Payload, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: empty object", ErrMalformed)
	}
	return FromMap(source, m)
}

// FromMap строит Payload из уже разобранного объекта
func FromMap(source Source, m map[string]any) (Payload, error) {
	switch source {
	case SourceVision:
		return VisionPayload{
			ID:          str(m, "id"),
			Type:        models.IncidentType(str(m, "type")),
			Severity:    num(m, "severity"),
			Zone:        str(m, "zone"),
			Description: str(m, "description"),
			Timestamp:   timestamp(m, "timestamp"),
			Location:    location(m),
			CameraID:    firstStr(m, "cameraId", "camera_id", "source"),
		}, nil
	case SourceVoice:
		category := firstStr(m, "category", "type")
		category = strings.TrimPrefix(category, "voice_")
		alert := models.VoiceAlert{
			ID:        str(m, "id"),
			Category:  models.VoiceCategory(category),
			Timestamp: timestamp(m, "timestamp"),
			Location:  location(m),
		}
		if c := num(m, "confidence"); c != nil {
			alert.Confidence = *c
		}
		if l := num(m, "audioLevel"); l != nil {
			alert.AudioLevel = *l
		}
		return VoicePayload{Alert: alert, DeviceID: str(m, "deviceId")}, nil
	case SourceMatch:
		score := num(m, "score")
		if score == nil {
			return nil, fmt.Errorf("%w: match without score", ErrMalformed)
		}
		return MatchPayload{
			Candidate: models.MatchCandidate{
				ID:          str(m, "id"),
				Score:       *score,
				Description: str(m, "description"),
				ImageRef:    str(m, "imageRef"),
			},
			Zone:     str(m, "zone"),
			DeviceID: str(m, "deviceId"),
		}, nil
	case SourceManual:
		return ManualPayload{
			ID:             str(m, "id"),
			Type:           models.IncidentType(str(m, "type")),
			Severity:       num(m, "severity"),
			Zone:           str(m, "zone"),
			Status:         models.Status(str(m, "status")),
			Description:    str(m, "description"),
			Timestamp:      timestamp(m, "timestamp"),
			Location:       location(m),
			SourceDeviceID: firstStr(m, "sourceDeviceId", "deviceId"),
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown source %q", ErrMalformed, source)
}

// NormalizeRawBatch разбирает и нормализует пачку сырых записей одного источника
func (n *Normalizer) NormalizeRawBatch(source Source, records []json.RawMessage) ([]models.Incident, error) {
	payloads := make([]Payload, 0, len(records))
	var errs []error
	for i, rec := range records {
		p, err := DecodeRaw(source, rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		payloads = append(payloads, p)
	}
	incidents, err := n.NormalizeBatch(payloads)
	if err != nil {
		errs = append(errs, err)
	}
	return incidents, errors.Join(errs...)
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m, k); s != "" {
			return s
		}
	}
	return ""
}

func num(m map[string]any, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f
		}
	}
	return nil
}

func timestamp(m map[string]any, key string) time.Time {
	s := str(m, key)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// location понимает оба формата: вложенный объект location и плоские lat/lng
func location(m map[string]any) *models.Location {
	if nested, ok := m["location"].(map[string]any); ok {
		lat := firstNum(nested, "lat", "latitude")
		lng := firstNum(nested, "lng", "longitude")
		if lat != nil && lng != nil {
			loc := &models.Location{Lat: *lat, Lng: *lng}
			if acc := firstNum(nested, "accuracyMeters", "accuracy"); acc != nil {
				loc.AccuracyMeters = *acc
			}
			return loc
		}
	}
	lat := firstNum(m, "lat", "latitude")
	lng := firstNum(m, "lng", "longitude")
	if lat != nil && lng != nil {
		return &models.Location{Lat: *lat, Lng: *lng}
	}
	return nil
}

func firstNum(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if v := num(m, k); v != nil {
			return v
		}
	}
	return nil
}
