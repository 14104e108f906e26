package models

import "time"

// VoiceCategory - класс голосового сигнала
type VoiceCategory string

const (
	VoiceHelp     VoiceCategory = "help"
	VoiceScream   VoiceCategory = "scream"
	VoiceChild    VoiceCategory = "child"
	VoiceDistress VoiceCategory = "distress"
)

// Valid сообщает, входит ли категория в перечисление
func (c VoiceCategory) Valid() bool {
	switch c {
	case VoiceHelp, VoiceScream, VoiceChild, VoiceDistress:
		return true
	}
	return false
}

// IncidentType возвращает тип инцидента для категории
func (c VoiceCategory) IncidentType() IncidentType {
	return IncidentType("voice_" + string(c))
}

// VoiceAlert - сигнал детектора голоса. После создания не изменяется.
type VoiceAlert struct {
	ID         string        `json:"id"`
	Category   VoiceCategory `json:"category"`
	Confidence float64       `json:"confidence"`
	Timestamp  time.Time     `json:"timestamp"`
	Location   *Location     `json:"location,omitempty"`
	AudioLevel float64       `json:"audioLevel"`
}

// DeviceInfo - метаданные устройства, отправившего сигнал
type DeviceInfo struct {
	DeviceID  string `json:"deviceId"`
	UserAgent string `json:"userAgent,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// VoiceAlertSubmission - тело запроса POST /voice-alert
type VoiceAlertSubmission struct {
	VoiceAlert
	DeviceID   string      `json:"deviceId"`
	DeviceInfo *DeviceInfo `json:"deviceInfo,omitempty"`
}
