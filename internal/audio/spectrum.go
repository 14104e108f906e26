package audio

import "math"

// Параметры анализатора: окно 256 отсчетов, 128 полос
const (
	DefaultFFTSize   = 256
	DefaultSmoothing = 0.8

	minDecibels = -100.0
	maxDecibels = -30.0
)

// Analyser строит байтовый спектр амплитуд: окно Блэкмана, ДПФ,
// сглаживание во времени и перевод диапазона -100..-30 дБ в 0..255.
type Analyser struct {
	size      int
	smoothing float64
	window    []float64
	cos       []float64
	sin       []float64
	smoothed  []float64
	frame     []float64
}

// NewAnalyser создает анализатор на fftSize отсчетов (степень двойки не обязательна)
func NewAnalyser(fftSize int, smoothing float64) *Analyser {
	if fftSize < 2 {
		fftSize = DefaultFFTSize
	}
	if smoothing < 0 || smoothing >= 1 {
		smoothing = 0
	}
	a := &Analyser{
		size:      fftSize,
		smoothing: smoothing,
		window:    make([]float64, fftSize),
		cos:       make([]float64, fftSize),
		sin:       make([]float64, fftSize),
		smoothed:  make([]float64, fftSize/2),
		frame:     make([]float64, fftSize),
	}
	const alpha = 0.16
	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	for n := 0; n < fftSize; n++ {
		phase := 2 * math.Pi * float64(n) / float64(fftSize)
		a.window[n] = a0 - a1*math.Cos(phase) + a2*math.Cos(2*phase)
		a.cos[n] = math.Cos(phase)
		a.sin[n] = math.Sin(phase)
	}
	return a
}

// Bins - число частотных полос
func (a *Analyser) Bins() int { return a.size / 2 }

// FFTSize - размер окна в отсчетах
func (a *Analyser) FFTSize() int { return a.size }

// ByteFrequencyData заполняет dst по последним FFTSize отсчетам samples.
// Недостающие отсчеты считаются нулями. Не потокобезопасен.
func (a *Analyser) ByteFrequencyData(samples []float32, dst []uint8) {
	for i := range a.frame {
		a.frame[i] = 0
	}
	src := samples
	if len(src) > a.size {
		src = src[len(src)-a.size:]
	}
	offset := a.size - len(src)
	for i, v := range src {
		a.frame[offset+i] = float64(v) * a.window[offset+i]
	}

	n := a.size
	bins := a.Bins()
	for k := 0; k < bins; k++ {
		var re, im float64
		for t := 0; t < n; t++ {
			idx := (k * t) % n
			re += a.frame[t] * a.cos[idx]
			im -= a.frame[t] * a.sin[idx]
		}
		mag := math.Sqrt(re*re+im*im) / float64(n)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
	}

	for k := 0; k < len(dst); k++ {
		if k >= bins {
			dst[k] = 0
			continue
		}
		dst[k] = toByte(a.smoothed[k])
	}
}

func toByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
	switch {
	case scaled <= 0:
		return 0
	case scaled >= 255:
		return 255
	}
	return uint8(scaled)
}

// Spectrum - разовый расчет спектра без сглаживания
func Spectrum(samples []float32, fftSize int) []uint8 {
	a := NewAnalyser(fftSize, 0)
	out := make([]uint8, a.Bins())
	a.ByteFrequencyData(samples, out)
	return out
}

// AverageMagnitude - среднее по полосам спектра
func AverageMagnitude(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins))
}
