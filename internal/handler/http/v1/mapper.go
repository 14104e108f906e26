package v1

import (
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
)

// ManualPayloadToDTO возвращает разобранную запись в форму DTO для валидации
func ManualPayloadToDTO(p normalizer.ManualPayload) AddIncidentRequest {
	dto := AddIncidentRequest{
		ID:             p.ID,
		Type:           string(p.Type),
		Severity:       p.Severity,
		Zone:           p.Zone,
		Status:         string(p.Status),
		Description:    p.Description,
		SourceDeviceID: p.SourceDeviceID,
	}
	if !p.Timestamp.IsZero() {
		ts := p.Timestamp
		dto.Timestamp = &ts
	}
	if p.Location != nil {
		dto.Location = &LocationDTO{
			Lat:            p.Location.Lat,
			Lng:            p.Location.Lng,
			AccuracyMeters: p.Location.AccuracyMeters,
		}
	}
	return dto
}

// DTOToVoiceSubmission преобразует DTO голосового сигнала в доменную модель
func DTOToVoiceSubmission(dto VoiceAlertRequest) models.VoiceAlertSubmission {
	sub := models.VoiceAlertSubmission{
		VoiceAlert: models.VoiceAlert{
			ID:         dto.ID,
			Category:   models.VoiceCategory(dto.Category),
			Confidence: dto.Confidence,
			Location:   dtoToLocation(dto.Location),
			AudioLevel: dto.AudioLevel,
		},
		DeviceID:   dto.DeviceID,
		DeviceInfo: dto.DeviceInfo,
	}
	if dto.Timestamp != nil {
		sub.Timestamp = *dto.Timestamp
	}
	if sub.DeviceID == "" && dto.DeviceInfo != nil {
		sub.DeviceID = dto.DeviceInfo.DeviceID
	}
	return sub
}

func dtoToLocation(dto *LocationDTO) *models.Location {
	if dto == nil {
		return nil
	}
	return &models.Location{
		Lat:            dto.Lat,
		Lng:            dto.Lng,
		AccuracyMeters: dto.AccuracyMeters,
	}
}

// ModelsToIncidentList упаковывает ленту в DTO ответа
func ModelsToIncidentList(incidents []models.Incident) IncidentListResponse {
	if incidents == nil {
		incidents = []models.Incident{}
	}
	return IncidentListResponse{Incidents: incidents, Count: len(incidents)}
}
