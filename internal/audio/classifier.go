// Package audio обнаруживает голосовые сигналы бедствия по уровню звука с микрофона.
package audio

import "github.com/shenikar/event_rescue/internal/models"

// Пороговые значения средней амплитуды спектра (0..255)
const (
	MinMagnitude    = 90.0
	HelpMagnitude   = 120.0
	ScreamMagnitude = 150.0

	maxConfidence = 95.0
)

// Thresholds - границы классов
type Thresholds struct {
	Min    float64
	Help   float64
	Scream float64
}

// DefaultThresholds возвращает пороги по умолчанию
func DefaultThresholds() Thresholds {
	return Thresholds{Min: MinMagnitude, Help: HelpMagnitude, Scream: ScreamMagnitude}
}

// Classifier сопоставляет амплитуде категорию сигнала
type Classifier interface {
	Classify(magnitude float64) (models.VoiceCategory, bool)
}

// ThresholdClassifier - классификация по порогам. Категория child не выдается:
// все, что не выше Min, считается тишиной.
type ThresholdClassifier struct {
	Thresholds Thresholds
}

// NewThresholdClassifier создает классификатор с заданными порогами
func NewThresholdClassifier(t Thresholds) *ThresholdClassifier {
	return &ThresholdClassifier{Thresholds: t}
}

func (c *ThresholdClassifier) Classify(magnitude float64) (models.VoiceCategory, bool) {
	switch {
	case magnitude > c.Thresholds.Scream:
		return models.VoiceScream, true
	case magnitude > c.Thresholds.Help:
		return models.VoiceHelp, true
	case magnitude > c.Thresholds.Min:
		return models.VoiceDistress, true
	}
	return "", false
}

// Confidence = min(magnitude/2, 95)
func Confidence(magnitude float64) float64 {
	c := magnitude / 2
	if c > maxConfidence {
		return maxConfidence
	}
	if c < 0 {
		return 0
	}
	return c
}
