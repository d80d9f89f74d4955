package speech

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

var _ domain.AudioPlayer = (*Player)(nil)

// pollInterval is how often Play checks whether the clip has drained.
const pollInterval = 10 * time.Millisecond

// Player plays WAV clips one at a time through the oto output device.
// Clips at other sample rates or channel counts are converted first.
type Player struct {
	ctx *oto.Context
	log *logger.Logger

	mu      sync.Mutex
	current *clip
}

type clip struct {
	out     *oto.Player
	stopped chan struct{}
	once    sync.Once
}

func (c *clip) stop() {
	c.once.Do(func() {
		c.out.Pause()
		close(c.stopped)
	})
}

// NewPlayer opens the output device. It fails when no device is available.
func NewPlayer(log *logger.Logger) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("speech: opening audio device: %w", err)
	}
	<-ready
	log.Debug("player ready (%d Hz, %d ch)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play blocks until the clip finishes or Stop is called. A clip still
// playing when Play is called again is cut off.
func (p *Player) Play(wav []byte) error {
	format, raw, err := parseWAV(wav)
	if err != nil {
		return err
	}
	pcm, err := toPlayback(format, raw)
	if err != nil {
		return err
	}

	c := &clip{out: p.ctx.NewPlayer(bytes.NewReader(pcm)), stopped: make(chan struct{})}
	p.mu.Lock()
	prev := p.current
	p.current = c
	p.mu.Unlock()
	if prev != nil {
		prev.stop()
	}

	c.out.Play()
	p.log.Debug("playing %d bytes (source %d Hz, %d ch)", len(pcm), format.SampleRate, format.Channels)

	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
wait:
	for c.out.IsPlaying() {
		select {
		case <-c.stopped:
			break wait
		case <-tick.C:
		}
	}

	p.mu.Lock()
	if p.current == c {
		p.current = nil
	}
	p.mu.Unlock()
	return c.out.Close()
}

// Stop cuts off the clip being played. Safe when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	c := p.current
	p.current = nil
	p.mu.Unlock()
	if c != nil {
		c.stop()
		p.log.Debug("playback interrupted")
	}
}
