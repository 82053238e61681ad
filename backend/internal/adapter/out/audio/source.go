package audio

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"
)

// Source звуковой клип интерактивного объекта. Реализует порт AudioSource
// и beep.Streamer, так что его можно отдать в speaker или смешать в микшере.
type Source struct {
	mu sync.Mutex

	format beep.Format
	clip   beep.StreamSeeker
	ctrl   *beep.Ctrl
	volume *effects.Volume

	level   float64
	playing bool
	loop    bool
}

// NewSource оборачивает буфер клипа. Источник стартует на паузе с нулевой громкостью.
func NewSource(buffer *beep.Buffer, loop bool) *Source {
	clip := buffer.Streamer(0, buffer.Len())
	ctrl := &beep.Ctrl{Streamer: clip, Paused: true}
	s := &Source{
		format: buffer.Format(),
		clip:   clip,
		ctrl:   ctrl,
		volume: &effects.Volume{Streamer: ctrl, Base: 2},
		loop:   loop,
	}
	s.applyVolume(0)
	return s
}

// NewToneClip генерирует синусоиду заданной длины
func NewToneClip(sampleRate beep.SampleRate, freq float64, length time.Duration) (*beep.Buffer, error) {
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return nil, fmt.Errorf("генерация тона %v Гц: %w", freq, err)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2})
	buffer.Append(beep.Take(sampleRate.N(length), sine))
	return buffer, nil
}

// LoadWAV читает WAV-файл целиком в память
func LoadWAV(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие клипа %s: %w", path, err)
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("декодирование клипа %s: %w", path, err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	return buffer, nil
}

// Format формат клипа
func (s *Source) Format() beep.Format {
	return s.format
}

func (s *Source) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetVolume принимает линейную громкость [0, 1], effects.Volume работает в log2
func (s *Source) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyVolume(v)
}

func (s *Source) applyVolume(v float64) {
	s.level = math.Max(0, math.Min(1, v))
	if s.level <= 0 {
		s.volume.Silent = true
		s.volume.Volume = 0
		return
	}
	s.volume.Silent = false
	s.volume.Volume = math.Log2(s.level)
}

// SetTime перематывает клип; позиция за концом зажимается
func (s *Source) SetTime(pos time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.format.SampleRate.N(pos)
	if p < 0 {
		p = 0
	}
	if p > s.clip.Len() {
		p = s.clip.Len()
	}
	_ = s.clip.Seek(p)
}

// Position текущая позиция воспроизведения
func (s *Source) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format.SampleRate.D(s.clip.Position())
}

func (s *Source) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Play продолжает воспроизведение с текущей позиции
func (s *Source) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.ctrl.Paused = false
}

// Stream никогда не заканчивается: на паузе и после конца клипа отдает тишину
func (s *Source) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filled := 0
	for filled < len(samples) {
		if !s.playing {
			clear(samples[filled:])
			break
		}

		n, _ := s.volume.Stream(samples[filled:])
		filled += n
		if filled == len(samples) {
			break
		}

		// Клип кончился
		if s.loop && s.clip.Len() > 0 {
			_ = s.clip.Seek(0)
			continue
		}
		s.playing = false
		s.ctrl.Paused = true
	}

	return len(samples), true
}

func (s *Source) Err() error {
	return s.clip.Err()
}
