package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/event_rescue/internal/models"
)

const (
	DefaultSeverity = 0.5
	DefaultZone     = "Unknown"
	VoiceZone       = "Mobile Device"
	// maxMatchSeverity не дает совпадению достичь полной уверенности
	maxMatchSeverity = 0.99
)

var (
	ErrUnknownType = errors.New("unknown incident type")
	ErrMalformed   = errors.New("malformed payload")
)

// Normalizer приводит полезные нагрузки производителей к каноническому Incident
type Normalizer struct {
	now   func() time.Time
	newID func() string
}

// Option настраивает Normalizer
type Option func(*Normalizer)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов
func WithIDGenerator(gen func() string) Option {
	return func(n *Normalizer) { n.newID = gen }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize приводит одну полезную нагрузку к Incident
func (n *Normalizer) Normalize(p Payload) (models.Incident, error) {
	switch v := p.(type) {
	case VisionPayload:
		return n.fromVision(v)
	case *VisionPayload:
		return n.fromVision(*v)
	case VoicePayload:
		return n.fromVoice(v)
	case *VoicePayload:
		return n.fromVoice(*v)
	case MatchPayload:
		return n.fromMatch(v)
	case *MatchPayload:
		return n.fromMatch(*v)
	case ManualPayload:
		return n.fromManual(v)
	case *ManualPayload:
		return n.fromManual(*v)
	case nil:
		return models.Incident{}, fmt.Errorf("%w: nil payload", ErrMalformed)
	}
	return models.Incident{}, fmt.Errorf("%w: unsupported payload %T", ErrMalformed, p)
}

// NormalizeBatch нормализует пачку. Плохая запись не блокирует остальные:
// возвращаются все удачные инциденты и объединенная ошибка по неудачным.
func (n *Normalizer) NormalizeBatch(payloads []Payload) ([]models.Incident, error) {
	incidents := make([]models.Incident, 0, len(payloads))
	var errs []error
	for i, p := range payloads {
		inc, err := n.Normalize(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		incidents = append(incidents, inc)
	}
	return incidents, errors.Join(errs...)
}

func (n *Normalizer) fromVision(v VisionPayload) (models.Incident, error) {
	if v.Type == "" {
		return models.Incident{}, fmt.Errorf("%w: vision event without type", ErrMalformed)
	}
	if !v.Type.Valid() {
		return models.Incident{}, fmt.Errorf("%w: %q", ErrUnknownType, v.Type)
	}
	return n.build(incidentFields{
		id:          v.ID,
		typ:         v.Type,
		severity:    v.Severity,
		zone:        v.Zone,
		description: v.Description,
		timestamp:   v.Timestamp,
		location:    v.Location,
		deviceID:    v.CameraID,
	}), nil
}

func (n *Normalizer) fromVoice(v VoicePayload) (models.Incident, error) {
	if !v.Alert.Category.Valid() {
		return models.Incident{}, fmt.Errorf("%w: voice category %q", ErrUnknownType, v.Alert.Category)
	}
	severity := v.Alert.Confidence / 100
	return n.build(incidentFields{
		id:        v.Alert.ID,
		typ:       v.Alert.Category.IncidentType(),
		severity:  &severity,
		zone:      VoiceZone,
		timestamp: v.Alert.Timestamp,
		location:  v.Alert.Location,
		deviceID:  v.DeviceID,
	}), nil
}

func (n *Normalizer) fromMatch(v MatchPayload) (models.Incident, error) {
	if math.IsNaN(v.Candidate.Score) || v.Candidate.Score < 0 {
		return models.Incident{}, fmt.Errorf("%w: match score %v", ErrMalformed, v.Candidate.Score)
	}
	severity := math.Min(v.Candidate.Score, maxMatchSeverity)
	description := "Possible match"
	if d := strings.TrimSpace(v.Candidate.Description); d != "" {
		description = "Possible match: " + d
	}
	return n.build(incidentFields{
		typ:         models.TypeLostFoundMatch,
		severity:    &severity,
		zone:        v.Zone,
		description: description,
		deviceID:    v.DeviceID,
	}), nil
}

func (n *Normalizer) fromManual(v ManualPayload) (models.Incident, error) {
	if v.Type == "" {
		return models.Incident{}, fmt.Errorf("%w: incident without type", ErrMalformed)
	}
	if !v.Type.Valid() {
		return models.Incident{}, fmt.Errorf("%w: %q", ErrUnknownType, v.Type)
	}
	inc := n.build(incidentFields{
		id:          v.ID,
		typ:         v.Type,
		severity:    v.Severity,
		zone:        v.Zone,
		description: v.Description,
		timestamp:   v.Timestamp,
		location:    v.Location,
		deviceID:    v.SourceDeviceID,
	})
	// неизвестный статус игнорируется, остается active
	if v.Status.Valid() {
		inc.Status = v.Status
	}
	return inc, nil
}

type incidentFields struct {
	id          string
	typ         models.IncidentType
	severity    *float64
	zone        string
	description string
	timestamp   time.Time
	location    *models.Location
	deviceID    string
}

func (n *Normalizer) build(f incidentFields) models.Incident {
	severity := DefaultSeverity
	if f.severity != nil && !math.IsNaN(*f.severity) {
		severity = models.ClampSeverity(*f.severity)
	}

	zone := strings.TrimSpace(f.zone)
	if zone == "" {
		zone = DefaultZone
	}

	description := strings.TrimSpace(f.description)
	if description == "" {
		description = fmt.Sprintf("detected %s in %s", f.typ, zone)
	}

	id := strings.TrimSpace(f.id)
	if id == "" {
		id = n.newID()
	}

	ts := f.timestamp
	if ts.IsZero() {
		ts = n.now()
	}

	var loc *models.Location
	if f.location != nil {
		cp := *f.location
		loc = &cp
	}

	return models.Incident{
		ID:             id,
		Type:           f.typ,
		Severity:       severity,
		Confidence:     models.ConfidenceFor(severity),
		Zone:           zone,
		Description:    description,
		Timestamp:      ts.UTC(),
		Status:         models.StatusActive,
		Location:       loc,
		SourceDeviceID: strings.TrimSpace(f.deviceID),
	}
}
