package dispatch

import (
	"github.com/shenikar/event_rescue/internal/models"
)

const DefaultVoiceConfidence = 70

// Reason - причина вызова службы
type Reason string

const (
	ReasonVoiceAlert Reason = "voice_alert"
	ReasonCritical   Reason = "critical_severity"
	ReasonManual     Reason = "manual"
)

// Team - служба, которой уходит вызов
type Team string

const (
	TeamFire     Team = "fire"
	TeamMedical  Team = "medical"
	TeamSecurity Team = "security"
)

// Policy решает, нужен ли вызов службы для нового инцидента
type Policy struct {
	// VoiceConfidence - порог уверенности голосового сигнала, строго больше
	VoiceConfidence int
}

// Evaluate возвращает причину вызова или false, если вызов не нужен
func (p Policy) Evaluate(inc models.Incident) (Reason, bool) {
	if inc.Status == models.StatusResolved {
		return "", false
	}
	if inc.Type.IsVoice() && inc.Confidence > p.VoiceConfidence {
		return ReasonVoiceAlert, true
	}
	if models.PriorityFor(inc.Severity) == models.PriorityCritical {
		return ReasonCritical, true
	}
	return "", false
}

// TeamFor выбирает ведущую службу по типу инцидента
func TeamFor(t models.IncidentType) Team {
	switch t {
	case models.TypeFireDetected, models.TypeSmokeDetected:
		return TeamFire
	case models.TypeVoiceChild, models.TypeVoiceDistress:
		return TeamMedical
	}
	return TeamSecurity
}

// Responder - тип выездного сотрудника
type Responder string

const (
	ResponderPediatrician Responder = "pediatrician"
	ResponderParamedic    Responder = "paramedic"
	ResponderMedic        Responder = "medic"
	ResponderSecurity     Responder = "security"
	ResponderCrowdControl Responder = "crowd_control"
	ResponderObserver     Responder = "observer"
)

const (
	distressHigh   = 0.8
	distressMedium = 0.4
)

// Responders выбирает состав выезда. Сначала жесткие правила по типу,
// затем правила по severity. Порядок сохраняется, дубликаты убираются.
func Responders(inc models.Incident) []Responder {
	var out []Responder
	child := inc.Type == models.TypeVoiceChild

	if child {
		out = append(out, ResponderPediatrician)
	}
	if inc.Type == models.TypeFireDetected || inc.Type == models.TypeSmokeDetected {
		out = append(out, ResponderSecurity, ResponderCrowdControl)
	}

	switch {
	case inc.Severity >= distressHigh:
		out = append(out, ResponderParamedic, ResponderSecurity)
	case inc.Severity >= distressMedium:
		if inc.Type == models.TypeCrowdSurge {
			out = append(out, ResponderCrowdControl)
		}
		out = append(out, ResponderMedic)
	case child:
		out = append(out, ResponderMedic)
	default:
		out = append(out, ResponderObserver)
	}

	seen := make(map[Responder]bool, len(out))
	uniq := out[:0]
	for _, r := range out {
		if !seen[r] {
			seen[r] = true
			uniq = append(uniq, r)
		}
	}
	return uniq
}
