package v1

import (
	"time"

	"github.com/shenikar/event_rescue/internal/dispatch"
	"github.com/shenikar/event_rescue/internal/models"
)

// LocationDTO DTO координат
// @Description DTO координат
type LocationDTO struct {
	Lat            float64 `json:"lat" validate:"latitude"`
	Lng            float64 `json:"lng" validate:"longitude"`
	AccuracyMeters float64 `json:"accuracyMeters" validate:"gte=0"`
}

// AddIncidentRequest DTO для добавления инцидента
// @Description DTO для добавления инцидента. Severity вне [0,1] обрезается,
// @Description поле неверного типа и неизвестный статус заменяются значением по умолчанию.
type AddIncidentRequest struct {
	ID             string       `json:"id,omitempty" validate:"omitempty,max=128"`
	Type           string       `json:"type" validate:"required,max=64"`
	Severity       *float64     `json:"severity,omitempty"`
	Zone           string       `json:"zone,omitempty" validate:"max=255"`
	Status         string       `json:"status,omitempty"`
	Description    string       `json:"description,omitempty"`
	Timestamp      *time.Time   `json:"timestamp,omitempty"`
	Location       *LocationDTO `json:"location,omitempty" validate:"omitempty"`
	SourceDeviceID string       `json:"sourceDeviceId,omitempty"`
}

// UpdateStatusRequest DTO для смены статуса
// @Description DTO для смены статуса. Статус не может вернуться назад.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active acknowledged resolved"`
}

// VoiceAlertRequest DTO голосового сигнала
// @Description DTO голосового сигнала от устройства участника
type VoiceAlertRequest struct {
	ID         string             `json:"id,omitempty"`
	Category   string             `json:"category" validate:"required,oneof=help scream child distress"`
	Confidence float64            `json:"confidence" validate:"gte=0,lte=100"`
	Timestamp  *time.Time         `json:"timestamp,omitempty"`
	Location   *LocationDTO       `json:"location,omitempty" validate:"omitempty"`
	AudioLevel float64            `json:"audioLevel"`
	DeviceID   string             `json:"deviceId,omitempty"`
	DeviceInfo *models.DeviceInfo `json:"deviceInfo,omitempty"`
}

// DispatchRequest DTO ручного вызова службы
// @Description DTO ручного вызова службы
type DispatchRequest struct {
	IncidentID string `json:"incidentId" validate:"required"`
}

// CameraStartRequest DTO запуска камеры
// @Description DTO запуска камеры
type CameraStartRequest struct {
	Zone   string `json:"zone" validate:"required,max=255"`
	Source string `json:"source,omitempty"`
}

// IncidentResponse DTO ответа с одним инцидентом
// @Description DTO ответа с одним инцидентом
type IncidentResponse struct {
	Incident models.Incident `json:"incident"`
}

// IncidentListResponse DTO ответа с лентой
// @Description DTO ответа с лентой, новые первыми
type IncidentListResponse struct {
	Incidents []models.Incident `json:"incidents"`
	Count     int               `json:"count"`
}

// BatchResponse DTO ответа на пакетное добавление
// @Description DTO ответа на пакетное добавление
type BatchResponse struct {
	Incidents []models.Incident `json:"incidents"`
	Errors    []string          `json:"errors,omitempty"`
}

// VoiceAlertResponse DTO ответа на голосовой сигнал
// @Description DTO ответа на голосовой сигнал
type VoiceAlertResponse struct {
	Status   string          `json:"status"`
	AlertID  string          `json:"alert_id"`
	Incident models.Incident `json:"incident"`
}

// DispatchResponse DTO ответа на вызов службы
// @Description DTO ответа на вызов службы
type DispatchResponse struct {
	Status string         `json:"status"`
	Event  dispatch.Event `json:"event"`
}

// SummaryResponse DTO текстовой сводки
// @Description DTO текстовой сводки
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// LostFoundListResponse DTO списка бюро находок
// @Description DTO списка бюро находок
type LostFoundListResponse struct {
	Items []models.LostFoundItem `json:"items"`
}

// LostFoundReportResponse DTO ответа на заявку
// @Description DTO ответа на заявку
type LostFoundReportResponse struct {
	Status string               `json:"status"`
	Item   models.LostFoundItem `json:"item"`
}

// MatchResponse DTO кандидатов совпадения
// @Description DTO кандидатов совпадения
type MatchResponse struct {
	Matches []models.MatchCandidate `json:"matches"`
}

// CameraResponse DTO состояния камеры
// @Description DTO состояния камеры
type CameraResponse struct {
	Status string `json:"status"`
	Zone   string `json:"zone"`
}

// AnalyzeResponse DTO результата анализа кадра
// @Description DTO результата анализа кадра. Incident заполнен, если кадр дал инцидент.
type AnalyzeResponse struct {
	Status   string               `json:"status"`
	Analysis models.FrameAnalysis `json:"analysis"`
	Incident *models.Incident     `json:"incident,omitempty"`
}
