package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/event_rescue/internal/models"
)

// DefaultCooldown - минимальный интервал между двумя сигналами
const DefaultCooldown = 2500 * time.Millisecond

// Detector превращает поток измерений амплитуды в редкие сигналы бедствия
type Detector struct {
	classifier Classifier
	cooldown   time.Duration
	newID      func() string

	mu       sync.Mutex
	lastEmit time.Time
	emitted  bool
}

// NewDetector создает детектор. Отрицательный cooldown трактуется как ноль.
func NewDetector(classifier Classifier, cooldown time.Duration) *Detector {
	if cooldown < 0 {
		cooldown = 0
	}
	return &Detector{
		classifier: classifier,
		cooldown:   cooldown,
		newID:      uuid.NewString,
	}
}

// Observe принимает одно измерение. Сигнал выдается, если классификатор
// вернул категорию и с прошлого сигнала прошло не меньше cooldown.
func (d *Detector) Observe(now time.Time, magnitude float64) (models.VoiceAlert, bool) {
	category, ok := d.classifier.Classify(magnitude)
	if !ok {
		return models.VoiceAlert{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.emitted && now.Sub(d.lastEmit) < d.cooldown {
		return models.VoiceAlert{}, false
	}
	d.emitted = true
	d.lastEmit = now

	return models.VoiceAlert{
		ID:         d.newID(),
		Category:   category,
		Confidence: Confidence(magnitude),
		Timestamp:  now.UTC(),
		AudioLevel: magnitude,
	}, true
}

// Reset забывает время последнего сигнала
func (d *Detector) Reset() {
	d.mu.Lock()
	d.emitted = false
	d.lastEmit = time.Time{}
	d.mu.Unlock()
}
