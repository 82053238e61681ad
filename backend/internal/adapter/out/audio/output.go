package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/speaker"
)

// PlayOnSpeaker отдает источник звуковому устройству хоста.
// Без устройства сцена продолжает работать, звук просто не слышен.
func PlayOnSpeaker(src *Source, latency time.Duration) error {
	sr := src.Format().SampleRate
	if err := speaker.Init(sr, sr.N(latency)); err != nil {
		return fmt.Errorf("инициализация звукового устройства: %w", err)
	}
	speaker.Play(src)
	return nil
}
