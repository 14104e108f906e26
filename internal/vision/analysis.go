package vision

import (
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
)

const maxSafetyScore = 10

// PayloadFromAnalysis превращает анализ кадра с огнем или дымом в событие сцены.
// Огонь важнее дыма. Severity растет с падением оценки безопасности.
func PayloadFromAnalysis(a models.FrameAnalysis, zone string) (normalizer.VisionPayload, bool) {
	var typ models.IncidentType
	switch {
	case a.FireDetected:
		typ = models.TypeFireDetected
	case a.SmokeDetected:
		typ = models.TypeSmokeDetected
	default:
		return normalizer.VisionPayload{}, false
	}
	severity := models.ClampSeverity(1 - a.SafetyScore/maxSafetyScore)
	return normalizer.VisionPayload{
		Type:     typ,
		Severity: &severity,
		Zone:     zone,
	}, true
}
