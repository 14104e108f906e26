package normalizer

import (
	"time"

	"github.com/shenikar/event_rescue/internal/models"
)

// Source - производитель сырого события
type Source string

const (
	SourceVision Source = "vision"
	SourceVoice  Source = "voice"
	SourceMatch  Source = "match"
	SourceManual Source = "manual"
)

// Payload - закрытое объединение полезных нагрузок производителей.
// Реализации: VisionPayload, VoicePayload, MatchPayload, ManualPayload.
type Payload interface {
	Source() Source
}

// VisionPayload - событие анализа сцены. Обязательное поле: Type.
type VisionPayload struct {
	ID          string
	Type        models.IncidentType
	Severity    *float64
	Zone        string
	Description string
	Timestamp   time.Time
	Location    *models.Location
	CameraID    string
}

func (VisionPayload) Source() Source { return SourceVision }

// VoicePayload - сигнал детектора голоса. Обязательное поле: Alert.Category.
type VoicePayload struct {
	Alert    models.VoiceAlert
	DeviceID string
}

func (VoicePayload) Source() Source { return SourceVoice }

// MatchPayload - кандидат совпадения, прошедший порог. Обязательное поле: Candidate.Score.
type MatchPayload struct {
	Candidate models.MatchCandidate
	Zone      string
	DeviceID  string
}

func (MatchPayload) Source() Source { return SourceMatch }

// ManualPayload - инцидент, добавленный вручную или производным путем (POST incident add).
// Обязательное поле: Type.
type ManualPayload struct {
	ID             string
	Type           models.IncidentType
	Severity       *float64
	Zone           string
	Status         models.Status
	Description    string
	Timestamp      time.Time
	Location       *models.Location
	SourceDeviceID string
}

func (ManualPayload) Source() Source { return SourceManual }
