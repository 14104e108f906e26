package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// IncidentType - тип инцидента в ленте
type IncidentType string

const (
	TypeFireDetected   IncidentType = "fire_detected"
	TypeSmokeDetected  IncidentType = "smoke_detected"
	TypeCrowdSurge     IncidentType = "crowd_surge"
	TypePanic          IncidentType = "panic"
	TypeLostFoundMatch IncidentType = "lost_found_match"
	TypeVoiceHelp      IncidentType = "voice_help"
	TypeVoiceScream    IncidentType = "voice_scream"
	TypeVoiceChild     IncidentType = "voice_child"
	TypeVoiceDistress  IncidentType = "voice_distress"
)

var incidentTypes = map[IncidentType]struct{}{
	TypeFireDetected:   {},
	TypeSmokeDetected:  {},
	TypeCrowdSurge:     {},
	TypePanic:          {},
	TypeLostFoundMatch: {},
	TypeVoiceHelp:      {},
	TypeVoiceScream:    {},
	TypeVoiceChild:     {},
	TypeVoiceDistress:  {},
}

// Valid сообщает, входит ли тип в перечисление
func (t IncidentType) Valid() bool {
	_, ok := incidentTypes[t]
	return ok
}

// IsVoice - инцидент получен от детектора голоса
func (t IncidentType) IsVoice() bool {
	switch t {
	case TypeVoiceHelp, TypeVoiceScream, TypeVoiceChild, TypeVoiceDistress:
		return true
	}
	return false
}

// Status - стадия жизненного цикла инцидента
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// ErrStatusRegression возвращается при попытке вернуть статус назад
var ErrStatusRegression = errors.New("status cannot regress")

// Rank возвращает порядковый номер статуса, 0 для неизвестных значений
func (s Status) Rank() int {
	switch s {
	case StatusActive:
		return 1
	case StatusAcknowledged:
		return 2
	case StatusResolved:
		return 3
	}
	return 0
}

// Valid сообщает, является ли статус допустимым
func (s Status) Valid() bool {
	return s.Rank() > 0
}

// Advance переводит статус вперед. Переход назад дает ErrStatusRegression.
func (s Status) Advance(to Status) (Status, error) {
	if !to.Valid() {
		return s, fmt.Errorf("unknown status %q", to)
	}
	if to.Rank() < s.Rank() {
		return s, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, s, to)
	}
	return to, nil
}

// Latest возвращает более поздний из двух статусов
func Latest(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Location - координаты источника события
type Location struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	AccuracyMeters float64 `json:"accuracyMeters"`
}

// Incident - нормализованное событие безопасности
type Incident struct {
	ID             string       `json:"id"`
	Type           IncidentType `json:"type"`
	Severity       float64      `json:"severity"`
	Confidence     int          `json:"confidence"`
	Zone           string       `json:"zone"`
	Description    string       `json:"description"`
	Timestamp      time.Time    `json:"timestamp"`
	Status         Status       `json:"status"`
	Location       *Location    `json:"location,omitempty"`
	SourceDeviceID string       `json:"sourceDeviceId,omitempty"`
}

// ClampSeverity ограничивает severity отрезком [0,1]
func ClampSeverity(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// ConfidenceFor вычисляет процент уверенности из severity
func ConfidenceFor(severity float64) int {
	return int(math.Round(ClampSeverity(severity) * 100))
}

// Priority - приоритет уведомления
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
)

// PriorityFor отображает severity в приоритет уведомления
func PriorityFor(severity float64) Priority {
	switch {
	case severity > 0.7:
		return PriorityCritical
	case severity > 0.4:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}
