package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/shenikar/event_rescue/internal/capture"
	"github.com/youpy/go-wav"
)

// DefaultSampleRate - частота захвата микрофона
const DefaultSampleRate = 16000

// Source отдает текущий байтовый спектр
type Source interface {
	Frequencies(dst []uint8) error
}

// Input - устройство, которое можно открыть и с которого можно снять спектр
type Input interface {
	capture.Device
	Source
}

// Microphone захватывает моно PCM float32 через malgo и хранит
// последние FFTSize отсчетов в кольцевом буфере.
type Microphone struct {
	sampleRate uint32

	mu       sync.Mutex
	ring     []float32
	pos      int
	scratch  []float32
	analyser *Analyser

	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMicrophone создает микрофон, захват начинается в Open
func NewMicrophone(sampleRate uint32, fftSize int) *Microphone {
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	a := NewAnalyser(fftSize, DefaultSmoothing)
	return &Microphone{
		sampleRate: sampleRate,
		ring:       make([]float32, a.FFTSize()),
		scratch:    make([]float32, a.FFTSize()),
		analyser:   a,
	}
}

func (m *Microphone) Open() error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: malgo init: %v", capture.ErrUnavailable, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = m.sampleRate
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: m.onFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: init device: %v", capture.ErrUnavailable, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: start device: %v", capture.ErrUnavailable, err)
	}

	m.ctx = ctx
	m.device = device
	return nil
}

func (m *Microphone) onFrames(_, input []byte, frames uint32) {
	if frames == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < int(frames) && (i+1)*4 <= len(input); i++ {
		m.ring[m.pos] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
		m.pos = (m.pos + 1) % len(m.ring)
	}
}

func (m *Microphone) Frequencies(dst []uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return capture.ErrNoActiveStream
	}
	n := copy(m.scratch, m.ring[m.pos:])
	copy(m.scratch[n:], m.ring[:m.pos])
	m.analyser.ByteFrequencyData(m.scratch, dst)
	return nil
}

func (m *Microphone) Close() error {
	m.mu.Lock()
	device, ctx := m.device, m.ctx
	m.device, m.ctx = nil, nil
	for i := range m.ring {
		m.ring[i] = 0
	}
	m.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	if ctx != nil {
		err := ctx.Uninit()
		ctx.Free()
		return err
	}
	return nil
}

// WAVSource проигрывает записанный файл по кругу: каждое чтение сдвигает окно на FFTSize отсчетов
type WAVSource struct {
	path string

	mu         sync.Mutex
	samples    []float32
	sampleRate int
	pos        int
	scratch    []float32
	analyser   *Analyser
}

// NewWAVSource создает источник, файл читается в Open
func NewWAVSource(path string, fftSize int) *WAVSource {
	a := NewAnalyser(fftSize, DefaultSmoothing)
	return &WAVSource{
		path:     path,
		scratch:  make([]float32, a.FFTSize()),
		analyser: a,
	}
}

func (w *WAVSource) Open() error {
	samples, rate, err := LoadWAV(w.path)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrUnavailable, err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("%w: %s has no samples", capture.ErrUnavailable, w.path)
	}
	w.mu.Lock()
	w.samples = samples
	w.sampleRate = rate
	w.pos = 0
	w.mu.Unlock()
	return nil
}

func (w *WAVSource) Frequencies(dst []uint8) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return capture.ErrNoActiveStream
	}
	for i := range w.scratch {
		w.scratch[i] = w.samples[(w.pos+i)%len(w.samples)]
	}
	w.pos = (w.pos + len(w.scratch)) % len(w.samples)
	w.analyser.ByteFrequencyData(w.scratch, dst)
	return nil
}

// SampleRate - частота дискретизации загруженного файла
func (w *WAVSource) SampleRate() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sampleRate
}

func (w *WAVSource) Close() error {
	w.mu.Lock()
	w.samples = nil
	w.mu.Unlock()
	return nil
}

// LoadWAV читает моно или стерео WAV в float32, стерео сводится в моно
func LoadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	reader := wav.NewReader(f)
	format, err := reader.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("wav format: %w", err)
	}
	channels := int(format.NumChannels)
	if channels < 1 || channels > 2 {
		return nil, 0, fmt.Errorf("wav: only mono or stereo supported, got %d channels", channels)
	}

	var out []float32
	for {
		chunk, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading wav samples: %w", err)
		}
		for _, s := range chunk {
			v := reader.FloatValue(s, 0)
			if channels == 2 {
				v = (v + reader.FloatValue(s, 1)) / 2
			}
			out = append(out, float32(v))
		}
	}
	return out, int(format.SampleRate), nil
}
